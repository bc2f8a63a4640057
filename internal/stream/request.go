package stream

import (
	"github.com/talkcody/modelgate/internal/json"
)

// Role names the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType tags one typed content part.
type PartType string

const (
	PartText       PartType = "text"
	PartImage      PartType = "image"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
	PartReasoning  PartType = "reasoning"
)

// Part is one typed piece of message content.
type Part struct {
	Type PartType `json:"type"`

	Text string `json:"text,omitempty"`

	// Image carries a URL or data URI.
	Image string `json:"image,omitempty"`

	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
}

// Message is one conversation turn. Content is either a plain string or a
// list of typed parts; both may not be set at once.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`
}

// Tool declares one callable tool schema passed through to the engine.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Sampling holds optional sampling parameters. Nil pointers mean "engine
// default".
type Sampling struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
}

// Trace is optional tracing context forwarded verbatim with the invocation.
type Trace struct {
	TraceID      string            `json:"traceId,omitempty"`
	SpanName     string            `json:"spanName,omitempty"`
	ParentSpanID string            `json:"parentSpanId,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Request is one streaming text-generation request. It exists only for the
// duration of a single call.
type Request struct {
	// Model is the model key, optionally suffixed "@providerId".
	Model string `json:"model"`

	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
	Sampling *Sampling `json:"sampling,omitempty"`

	// RequestID is generated by the client when left empty.
	RequestID string `json:"requestId,omitempty"`

	Trace *Trace `json:"trace,omitempty"`
}
