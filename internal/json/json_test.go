package json

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Model    string  `json:"model"`
	Tokens   int     `json:"tokens"`
	Price    float64 `json:"price,omitempty"`
	Provider string  `json:"provider,omitempty"`
}

func TestMarshalRoundTrip(t *testing.T) {
	in := sample{Model: "claude-sonnet-4-5", Tokens: 128, Price: 3.0}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"model":"claude-sonnet-4-5"`) {
		t.Errorf("unexpected encoding: %s", data)
	}

	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`{"id":"req-1"}`, true},
		{`[1,2,3]`, true},
		{`not json`, false},
		{`{"open":`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := Valid([]byte(tt.input)); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.Encode(sample{Model: "gpt-5", Tokens: 1}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := enc.Encode(sample{Model: "gemini-2.5-pro", Tokens: 2}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	dec := NewDecoder(&buf)
	var first, second sample
	if err := dec.Decode(&first); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := dec.Decode(&second); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if first.Model != "gpt-5" || second.Model != "gemini-2.5-pro" {
		t.Errorf("decoded out of order: %q then %q", first.Model, second.Model)
	}
}
