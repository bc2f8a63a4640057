package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	log "github.com/talkcody/modelgate/internal/logging"

	"github.com/talkcody/modelgate/internal/bus"
	"github.com/talkcody/modelgate/internal/gateway"
	"github.com/talkcody/modelgate/internal/json"
)

const (
	// CommandStreamText is the engine command that starts a streaming
	// generation.
	CommandStreamText = "stream.text"

	// channelPrefix derives the per-request event channel from the request
	// id. Each request gets an isolated channel; no ordering exists across
	// requests.
	channelPrefix = "stream.events."
)

// EventChannel returns the channel name carrying events for a request id.
func EventChannel(requestID string) string {
	return channelPrefix + requestID
}

// request lifecycle states
const (
	stateCreated int32 = iota
	stateListening
	stateSent
	stateStreaming
	stateDone
	stateErrored
	stateAborted
)

// Client issues streaming requests over a bus.
type Client struct {
	bus bus.Bus
}

// NewClient returns a client on b.
func NewClient(b bus.Bus) *Client {
	return &Client{bus: b}
}

// invokePayload is the full wire payload of one stream.text invocation.
type invokePayload struct {
	RequestID string                `json:"requestId"`
	Model     gateway.CallableModel `json:"model"`
	Messages  []Message             `json:"messages"`
	Tools     []Tool                `json:"tools,omitempty"`
	Sampling  *Sampling             `json:"sampling,omitempty"`
	Trace     *Trace                `json:"trace,omitempty"`
}

// invokeAck is the engine's response; it must echo the request id.
type invokeAck struct {
	RequestID string `json:"requestId"`
}

// Stream is the consumable side of one in-flight request: a lazy, single-pass,
// forward-only event sequence correlated by request id.
type Stream struct {
	RequestID string

	queue    *Queue
	state    atomic.Int32
	tornDown atomic.Bool

	mu          sync.Mutex
	unsubscribe func()
	stopWatch   func() bool
}

// Next yields the next event. io.EOF follows the terminal event; a distinct
// cancellation error follows an abort.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	return s.queue.Next(ctx)
}

// Close tears the stream down. Safe to call any number of times, including
// after a terminal event already did it.
func (s *Stream) Close() {
	s.teardown()
}

// attach hands the subscription and cancel-watch handles to the stream. If a
// teardown already ran (cancellation can fire at any point), the handles are
// released immediately instead of leaking.
func (s *Stream) attach(unsubscribe func(), stopWatch func() bool) {
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.stopWatch = stopWatch
	s.mu.Unlock()
	if s.tornDown.Load() {
		s.release()
	}
}

func (s *Stream) release() {
	s.mu.Lock()
	unsubscribe, stopWatch := s.unsubscribe, s.stopWatch
	s.unsubscribe, s.stopWatch = nil, nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	if stopWatch != nil {
		stopWatch()
	}
}

// teardown unsubscribes, detaches the cancel watcher, and closes the queue.
// Idempotent: the handles are cleared on first release and the queue ignores
// repeated closes.
func (s *Stream) teardown() {
	s.tornDown.Store(true)
	s.release()
	s.queue.Finish()
}

// fail ends the queue with err and tears down. Buffered events still drain
// before the consumer sees err.
func (s *Stream) fail(err error, state int32) {
	s.state.Store(state)
	s.queue.Fail(err)
	s.teardown()
}

// handle processes one inbound channel payload.
func (s *Stream) handle(payload json.RawMessage) {
	ev, err := Normalize(payload)
	if err != nil {
		// Protocol failure: fatal to this request only.
		log.WithError(err).WithField("request_id", s.RequestID).Warn("stream: tearing down after malformed event")
		s.fail(err, stateErrored)
		return
	}

	s.state.CompareAndSwap(stateSent, stateStreaming)
	s.queue.Push(ev)

	if ev.Terminal() {
		if ev.Type == EventError {
			s.state.Store(stateErrored)
		} else {
			s.state.Store(stateDone)
		}
		s.teardown()
	}
}

// StreamText subscribes to the request's event channel, then dispatches the
// invocation, and returns the correlated event stream. The subscription is
// established strictly before the invoke, so the engine can never emit into
// the void. Cancelling ctx — at any point, even before subscription — tears
// everything down and surfaces a cancellation error. Cancellation is
// cooperative: it does not guarantee the engine halts compute instantly.
func (c *Client) StreamText(ctx context.Context, req Request, model gateway.CallableModel) (*Stream, error) {
	// CREATED: request id and local wiring exist before anything remote.
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	s := &Stream{
		RequestID: requestID,
		queue:     NewQueue(),
	}
	s.state.Store(stateCreated)

	if ctx.Err() != nil {
		s.state.Store(stateAborted)
		return nil, fmt.Errorf("%w: before subscription", gateway.ErrCancelled)
	}

	// LISTENING: the subscription must exist before the invoke is issued.
	unsubscribe, err := c.bus.Subscribe(EventChannel(requestID), s.handle)
	if err != nil {
		return nil, fmt.Errorf("stream: subscribe: %w", err)
	}

	stopWatch := context.AfterFunc(ctx, func() {
		s.fail(gateway.ErrCancelled, stateAborted)
	})
	s.attach(unsubscribe, stopWatch)
	s.state.CompareAndSwap(stateCreated, stateListening)

	// SENT: the invocation carries the locally generated id, guaranteeing
	// remote and local agree on the correlation key.
	payload := invokePayload{
		RequestID: requestID,
		Model:     model,
		Messages:  req.Messages,
		Tools:     req.Tools,
		Sampling:  req.Sampling,
		Trace:     req.Trace,
	}

	resp, err := c.bus.Invoke(ctx, CommandStreamText, payload)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.fail(gateway.ErrCancelled, stateAborted)
			return nil, gateway.ErrCancelled
		}
		s.fail(err, stateErrored)
		return nil, fmt.Errorf("stream: invoke: %w", err)
	}
	s.state.CompareAndSwap(stateListening, stateSent)

	var ack invokeAck
	if err := json.Unmarshal(resp, &ack); err != nil {
		s.fail(gateway.ErrRequestIDMismatch, stateErrored)
		return nil, fmt.Errorf("stream: malformed ack: %w", err)
	}
	if ack.RequestID != requestID {
		// Cross-talk between concurrent requests: fatal for this one.
		s.fail(gateway.ErrRequestIDMismatch, stateErrored)
		return nil, fmt.Errorf("%w: sent %s, got %s", gateway.ErrRequestIDMismatch, requestID, ack.RequestID)
	}

	return s, nil
}

// TextResult is the outcome of CollectText.
type TextResult struct {
	RequestID    string
	Text         string
	FinishReason string
	Usage        *Usage
}

// CollectText drains a full stream, concatenating text deltas and capturing
// the finish reason. Error events observed mid-stream are logged, not
// raised; only a failure of the sequence itself is returned. When the engine
// reported no usage, a local estimate fills the gap.
func (c *Client) CollectText(ctx context.Context, req Request, model gateway.CallableModel) (*TextResult, error) {
	s, err := c.StreamText(ctx, req, model)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var text strings.Builder
	result := &TextResult{RequestID: s.RequestID}

	for {
		ev, err := s.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch ev.Type {
		case EventTextDelta:
			text.WriteString(ev.Text)
		case EventUsage:
			result.Usage = ev.Usage
		case EventDone:
			result.FinishReason = ev.FinishReason
		case EventError:
			log.WithField("request_id", s.RequestID).Warnf("stream: engine reported error: %s", ev.Message)
			if result.FinishReason == "" {
				result.FinishReason = "error"
			}
		}
	}

	result.Text = text.String()
	if result.Usage == nil {
		result.Usage = EstimateUsage(req, result.Text)
	}
	return result, nil
}
