package bus

import (
	"context"
	"testing"

	"github.com/talkcody/modelgate/internal/json"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	in := Envelope{
		ID:      "req-1",
		Type:    TypeEvent,
		Channel: "stream.events.req-1",
		Payload: json.RawMessage(`{"type":"text-delta","text":"hi"}`),
	}
	data, err := EncodeEnvelope(in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.ID != in.ID || out.Type != in.Type || out.Channel != in.Channel {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if string(out.Payload) != string(in.Payload) {
		t.Errorf("payload mismatch: %s", out.Payload)
	}
}

func TestMemBusInvoke(t *testing.T) {
	b := NewMemBus()
	b.Handle("echo", func(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
		return payload, nil
	})

	resp, err := b.Invoke(context.Background(), "echo", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if string(resp) != `{"k":"v"}` {
		t.Errorf("resp = %s", resp)
	}

	if _, err := b.Invoke(context.Background(), "nope", nil); err == nil {
		t.Error("unknown command should fail")
	}
}

func TestMemBusSubscribeUnsubscribe(t *testing.T) {
	b := NewMemBus()

	var got []string
	unsub, err := b.Subscribe("ch", func(payload json.RawMessage) {
		got = append(got, string(payload))
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	_ = b.Publish("ch", 1)
	_ = b.Publish("other", 2)
	if len(got) != 1 || got[0] != "1" {
		t.Errorf("got = %v", got)
	}

	unsub()
	unsub() // second call is a no-op
	_ = b.Publish("ch", 3)
	if len(got) != 1 {
		t.Errorf("handler fired after unsubscribe: %v", got)
	}
	if b.SubscriberCount("ch") != 0 {
		t.Error("subscriber leaked")
	}
}
