package bus

import (
	"github.com/talkcody/modelgate/internal/json"
)

// Envelope is the JSON frame exchanged with the remote engine.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Command string          `json:"command,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

const (
	// TypeInvoke carries a command invocation to the engine.
	TypeInvoke = "invoke"
	// TypeResult carries the engine's response to an invocation.
	TypeResult = "result"
	// TypeError carries an invocation failure.
	TypeError = "error"
	// TypeEvent carries a channel event published by the engine.
	TypeEvent = "event"
	// TypePing and TypePong keep the connection alive.
	TypePing = "ping"
	TypePong = "pong"
)

// EncodeEnvelope serializes a frame.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// DecodeEnvelope parses a frame.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
