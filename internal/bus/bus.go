// Package bus is the asynchronous message-passing boundary to the remote
// engine: invoke a command, subscribe to a channel. The engine's own
// per-provider protocol handling lives on the far side of this interface.
package bus

import (
	"context"
	"errors"

	"github.com/talkcody/modelgate/internal/json"
)

// Handler receives one event payload published on a subscribed channel.
// Handlers run on the bus's dispatch goroutine and must not block.
type Handler func(payload json.RawMessage)

// Bus is the message-passing primitive. Both methods are safe for concurrent
// use.
type Bus interface {
	// Invoke sends a command and waits for its response payload.
	Invoke(ctx context.Context, command string, payload any) (json.RawMessage, error)

	// Subscribe registers a handler for a channel and returns an unsubscribe
	// function. Unsubscribing twice is safe.
	Subscribe(channel string, handler Handler) (func(), error)
}

// ErrClosed is returned once the bus connection is gone.
var ErrClosed = errors.New("bus: connection closed")

// InvokeError carries an error response from the remote engine.
type InvokeError struct {
	Command string
	Message string
}

func (e *InvokeError) Error() string {
	return "bus: invoke " + e.Command + " failed: " + e.Message
}
