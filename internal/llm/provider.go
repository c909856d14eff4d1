package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for LLM interaction.
// Implementations wrap one vendor SDK bound to one model.
type Provider interface {
	// Complete sends a prompt to the LLM and returns its raw output.
	// The response Content is whatever the model produced; extraction and
	// validation are the caller's concern.
	Complete(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// ResponseMode selects how strictly the provider constrains output format.
type ResponseMode string

const (
	// ModeSchema requests the provider's native structured-output
	// mechanism with the request Schema enforced.
	ModeSchema ResponseMode = "schema"

	// ModeObject requests JSON-biased output without schema enforcement.
	ModeObject ResponseMode = "object"

	// ModePlain requests free text. Format instructions, if any, live in
	// the prompt itself.
	ModePlain ResponseMode = "plain"
)

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the LLM's role and constraints.
	System string

	// Messages is the conversation history. For single-turn generation
	// (the common case here), this contains one user message.
	Messages []Message

	// Mode selects the response-format strictness.
	Mode ResponseMode

	// Schema is the JSON Schema the response must conform to.
	// Consulted only when Mode is ModeSchema.
	Schema *Schema

	// Tool, when set, is offered as a function the model may call.
	// Used for true-batch generation where the tool accepts an array.
	Tool *Tool

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema (used as tool name for Anthropic,
	// schema name for OpenAI). Kebab-case, e.g. "lesson".
	Name string

	// Description is a human-readable description of what this schema
	// represents. Sent to the LLM to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Tool describes a callable function offered to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is the primary message text as raw bytes. May be valid
	// JSON, fenced JSON, or prose depending on the request Mode and the
	// model's mood.
	Content json.RawMessage

	// Reasoning is the secondary reasoning/thinking channel, when the
	// model exposes one. Empty otherwise.
	Reasoning string

	// ToolArgs is the argument string of the first tool call, when the
	// model chose to call the offered Tool. Empty otherwise.
	ToolArgs string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens"
	StopReason string
}

const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// Truncated reports whether generation stopped at the token limit.
func (r *Response) Truncated() bool {
	return r.StopReason == StopMaxTokens
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
