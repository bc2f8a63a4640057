package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/talkcody/modelgate/internal/json"
)

// CommandFunc handles one invoked command on an in-process bus.
type CommandFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// MemBus is an in-process Bus for tests and embedding: commands run in the
// caller's goroutine, events are published synchronously.
type MemBus struct {
	mu       sync.Mutex
	commands map[string]CommandFunc
	subs     map[string]map[uint64]Handler
	nextSub  uint64
}

// NewMemBus returns an empty in-process bus.
func NewMemBus() *MemBus {
	return &MemBus{
		commands: make(map[string]CommandFunc),
		subs:     make(map[string]map[uint64]Handler),
	}
}

// Handle registers the function backing a command.
func (b *MemBus) Handle(command string, fn CommandFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands[command] = fn
}

// Invoke runs the registered command synchronously.
func (b *MemBus) Invoke(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	b.mu.Lock()
	fn := b.commands[command]
	b.mu.Unlock()
	if fn == nil {
		return nil, &InvokeError{Command: command, Message: "unknown command"}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("bus: encode payload: %w", err)
	}
	return fn(ctx, encoded)
}

// Subscribe registers a channel handler.
func (b *MemBus) Subscribe(channel string, handler Handler) (func(), error) {
	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[uint64]Handler)
	}
	b.subs[channel][id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
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
	}, nil
}

// Publish delivers an event to every subscriber of channel.
func (b *MemBus) Publish(channel string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: encode event: %w", err)
	}

	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[channel]))
	for _, h := range b.subs[channel] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(encoded)
	}
	return nil
}

// SubscriberCount reports how many handlers a channel currently has.
func (b *MemBus) SubscriberCount(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}
