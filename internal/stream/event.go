// Package stream implements the streaming request client: request/event
// types, the push-to-pull event queue, and the correlation of channel events
// with the request that produced them.
package stream

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/talkcody/modelgate/internal/json"
)

// EventType tags one entry of the stream event union.
type EventType string

const (
	EventTextStart      EventType = "text-start"
	EventTextDelta      EventType = "text-delta"
	EventToolCall       EventType = "tool-call"
	EventReasoningStart EventType = "reasoning-start"
	EventReasoningDelta EventType = "reasoning-delta"
	EventReasoningEnd   EventType = "reasoning-end"
	EventUsage          EventType = "usage"
	EventDone           EventType = "done"
	EventError          EventType = "error"
	EventRaw            EventType = "raw"
)

// Usage carries token counts reported by the engine, or estimated locally
// when the engine stayed silent.
type Usage struct {
	InputTokens     int64 `json:"inputTokens"`
	OutputTokens    int64 `json:"outputTokens"`
	ReasoningTokens int64 `json:"reasoningTokens,omitempty"`
	TotalTokens     int64 `json:"totalTokens"`
	Estimated       bool  `json:"estimated,omitempty"`
}

// Event is one unit of a model's streamed response. Done and Error are
// terminal: nothing follows them for the same request id.
type Event struct {
	Type EventType `json:"type"`

	// Text carries the delta for text and reasoning events.
	Text string `json:"text,omitempty"`

	// ID identifies a tool call or reasoning block.
	ID string `json:"id,omitempty"`

	ToolName  string          `json:"toolName,omitempty"`
	ToolInput json.RawMessage `json:"toolInput,omitempty"`

	Usage *Usage `json:"usage,omitempty"`

	// FinishReason is set on done events.
	FinishReason string `json:"finishReason,omitempty"`

	// Message is set on error events.
	Message string `json:"message,omitempty"`

	// Raw is the unmodified provider payload for raw passthrough events.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Terminal reports whether no further events will follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// textAliases are provider-native keys that mean "text delta".
var textAliases = []string{"delta", "content", "reasoning_content", "thinking"}

// finishAliases are provider-native keys that mean "finish reason".
var finishAliases = []string{"finish_reason", "stop_reason", "finishReason"}

// Normalize decodes one inbound channel payload into a canonical Event,
// renaming provider-native metadata keys to their canonical fields. A payload
// without a recognizable type is a protocol violation, fatal to the request.
func Normalize(payload json.RawMessage) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("stream: malformed event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("stream: event without type: %s", payload)
	}

	doc := gjson.ParseBytes(payload)

	if ev.Text == "" {
		for _, alias := range textAliases {
			if v := doc.Get(alias); v.Exists() {
				ev.Text = v.String()
				break
			}
		}
	}

	if ev.FinishReason == "" {
		for _, alias := range finishAliases {
			if v := doc.Get(alias); v.Exists() {
				ev.FinishReason = v.String()
				break
			}
		}
	}

	// Decoding leaves a zero Usage behind when the provider used its own
	// key spellings; re-read those off the raw document.
	if ev.Type == EventUsage && (ev.Usage == nil || *ev.Usage == (Usage{})) {
		ev.Usage = normalizeUsage(doc)
	}

	if ev.Type == EventToolCall && ev.ToolName == "" {
		if v := doc.Get("name"); v.Exists() {
			ev.ToolName = v.String()
		}
		if len(ev.ToolInput) == 0 {
			if v := doc.Get("input"); v.Exists() {
				ev.ToolInput = json.RawMessage(v.Raw)
			} else if v := doc.Get("arguments"); v.Exists() {
				ev.ToolInput = json.RawMessage(v.Raw)
			}
		}
	}

	if ev.Type == EventRaw && len(ev.Raw) == 0 {
		ev.Raw = payload
	}

	return ev, nil
}

// normalizeUsage maps the various provider usage key spellings onto one
// shape.
func normalizeUsage(doc gjson.Result) *Usage {
	u := &Usage{}

	pick := func(paths ...string) int64 {
		for _, p := range paths {
			if v := doc.Get(p); v.Exists() {
				return v.Int()
			}
		}
		return 0
	}

	u.InputTokens = pick("usage.inputTokens", "usage.input_tokens", "usage.prompt_tokens", "inputTokens", "input_tokens", "prompt_tokens")
	u.OutputTokens = pick("usage.outputTokens", "usage.output_tokens", "usage.completion_tokens", "outputTokens", "output_tokens", "completion_tokens")
	u.ReasoningTokens = pick("usage.reasoningTokens", "usage.reasoning_tokens", "reasoningTokens", "reasoning_tokens", "thoughts_token_count")
	u.TotalTokens = pick("usage.totalTokens", "usage.total_tokens", "totalTokens", "total_tokens")
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens + u.ReasoningTokens
	}
	return u
}
