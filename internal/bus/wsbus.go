package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	log "github.com/talkcody/modelgate/internal/logging"

	"github.com/talkcody/modelgate/internal/json"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// WSBus speaks the envelope protocol over one websocket connection to the
// remote engine.
type WSBus struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Envelope
	subs    map[string]map[uint64]Handler
	nextSub uint64
	closed  bool

	done chan struct{}
}

// Dial connects to the engine at url and starts the read and keepalive
// loops.
func Dial(ctx context.Context, url string) (*WSBus, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bus: dial %s: %w", url, err)
	}

	b := &WSBus{
		conn:    conn,
		pending: make(map[string]chan Envelope),
		subs:    make(map[string]map[uint64]Handler),
		done:    make(chan struct{}),
	}
	go b.readLoop()
	go b.pingLoop()
	return b, nil
}

// Invoke sends a command frame and waits for the matching result or error
// frame, or for ctx to end.
func (b *WSBus) Invoke(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("bus: encode payload: %w", err)
	}

	id := uuid.NewString()
	ch := make(chan Envelope, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.pending[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	frame := Envelope{ID: id, Type: TypeInvoke, Command: command, Payload: encoded}
	if err := b.write(frame); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, ErrClosed
	case resp := <-ch:
		if resp.Type == TypeError {
			return nil, &InvokeError{Command: command, Message: resp.Error}
		}
		return resp.Payload, nil
	}
}

// Subscribe registers a handler for events on channel. The returned function
// removes it; calling it more than once is safe.
func (b *WSBus) Subscribe(channel string, handler Handler) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.nextSub++
	id := b.nextSub
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[uint64]Handler)
	}
	b.subs[channel][id] = handler
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			if handlers, ok := b.subs[channel]; ok {
				delete(handlers, id)
				if len(handlers) == 0 {
					delete(b.subs, channel)
				}
			}
			b.mu.Unlock()
		})
	}
	return unsubscribe, nil
}

// Close tears the connection down and fails all pending invocations.
func (b *WSBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()
	return b.conn.Close()
}

func (b *WSBus) write(env Envelope) error {
	data, err := EncodeEnvelope(env)
	if err != nil {
		return fmt.Errorf("bus: encode frame: %w", err)
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("bus: write: %w", err)
	}
	return nil
}

func (b *WSBus) readLoop() {
	defer func() { _ = b.Close() }()

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			b.mu.Lock()
			closed := b.closed
			b.mu.Unlock()
			if !closed {
				log.WithError(err).Warn("bus: read loop ended")
			}
			return
		}

		env, err := DecodeEnvelope(data)
		if err != nil {
			log.WithError(err).Warn("bus: dropping malformed frame")
			continue
		}

		switch env.Type {
		case TypeResult, TypeError:
			b.mu.Lock()
			ch := b.pending[env.ID]
			b.mu.Unlock()
			if ch != nil {
				ch <- env
			}
		case TypeEvent:
			b.dispatch(env)
		case TypePing:
			_ = b.write(Envelope{ID: env.ID, Type: TypePong})
		case TypePong:
			// keepalive response, nothing to do
		default:
			log.Warnf("bus: unknown frame type %q", env.Type)
		}
	}
}

func (b *WSBus) dispatch(env Envelope) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[env.Channel]))
	for _, h := range b.subs[env.Channel] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(env.Payload)
	}
}

func (b *WSBus) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			if err := b.write(Envelope{ID: uuid.NewString(), Type: TypePing}); err != nil {
				return
			}
		}
	}
}
