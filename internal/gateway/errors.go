// Package gateway turns credential state and the provider catalog into the
// usable-model projection: which (model, provider) pairings can serve a
// request right now, and which provider is the best pick for a model.
package gateway

// Category classifies a gateway failure for caller-side handling decisions.
type Category string

const (
	// CategoryConfiguration means no usable credential resolves the request.
	// Surfaced synchronously, never retried automatically.
	CategoryConfiguration Category = "configuration"
	// CategoryProtocol means the remote engine violated the stream contract.
	// Fatal to the single in-flight request.
	CategoryProtocol Category = "protocol"
	// CategoryTransport means the invocation or channel itself failed.
	// Retrying is the caller's responsibility.
	CategoryTransport Category = "transport"
	// CategoryCancelled means the caller's context was cancelled.
	CategoryCancelled Category = "cancelled"
	// CategoryInternal marks invariant violations inside this module.
	CategoryInternal Category = "internal"
)

// Error is the typed failure value used across the gateway, stream, and store
// packages.
type Error struct {
	Category Category
	Code     string
	Message  string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Is matches on the error code, so wrapped errors compare against the
// sentinels below via errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	// ErrNoProvider: no provider with a usable credential serves the model.
	// A user configuration problem, not a bug.
	ErrNoProvider = &Error{
		Category: CategoryConfiguration,
		Code:     "no_provider_for_model",
		Message:  "no usable provider for model",
	}

	// ErrProviderNotConstructed: selection resolved a provider whose factory
	// was never built. An internal invariant violation, distinct from
	// ErrNoProvider so it is never mistaken for a configuration problem.
	ErrProviderNotConstructed = &Error{
		Category: CategoryInternal,
		Code:     "provider_not_constructed",
		Message:  "selected provider has no constructed factory",
	}

	// ErrRequestIDMismatch: the engine echoed a request id other than the one
	// generated locally, which signals cross-talk between requests.
	ErrRequestIDMismatch = &Error{
		Category: CategoryProtocol,
		Code:     "request_id_mismatch",
		Message:  "remote echoed a different request id",
	}

	// ErrCancelled: the caller's cancellation signal fired. Never conflated
	// with transport failures.
	ErrCancelled = &Error{
		Category: CategoryCancelled,
		Code:     "request_cancelled",
		Message:  "request cancelled by caller",
	}

	// ErrStreamClosed: the event channel or queue closed before a terminal
	// event arrived.
	ErrStreamClosed = &Error{
		Category: CategoryTransport,
		Code:     "stream_closed",
		Message:  "event stream closed before completion",
	}
)
