// Package llm provides a unified interface for interacting with Large Language Models.
package llm

import "encoding/json"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	// RoleSystem represents a system message.
	RoleSystem Role = "system"
	// RoleUser represents a message from the user.
	RoleUser Role = "user"
	// RoleAssistant represents a message from the assistant/model.
	RoleAssistant Role = "assistant"
	// RoleTool represents a tool execution result returned to the model.
	RoleTool Role = "tool"
)

// Message represents a single message in a conversation.
type Message struct {
	// Role indicates who sent this message.
	Role Role `json:"role"`
	// Content is the text content of the message.
	Content string `json:"content"`
	// ToolCalls carries the tool invocations requested by an assistant
	// message, if any.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool-role message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	// ID identifies the call within the conversation.
	ID string `json:"id"`
	// Name is the tool being invoked.
	Name string `json:"name"`
	// Arguments is the JSON-encoded argument object.
	Arguments json.RawMessage `json:"arguments"`
}

// Tool describes a tool the model may invoke.
type Tool struct {
	// Name is the tool identifier sent to the model.
	Name string `json:"name"`
	// Description tells the model what the tool does.
	Description string `json:"description"`
	// InputSchema is the JSON Schema of the tool's argument object.
	InputSchema json.RawMessage `json:"input_schema"`
}

// Request is a single chat completion request.
type Request struct {
	// SystemPrompt is prepended to the conversation as a system message.
	SystemPrompt string
	// Messages is the conversation so far.
	Messages []Message
	// Tools lists the tools the model may call. Empty means plain chat.
	Tools []Tool
	// MaxOutputTokens caps the completion length. Zero uses the
	// provider default.
	MaxOutputTokens int
	// Temperature controls sampling. Nil uses the provider default.
	Temperature *float64
}

// Response represents a response from the LLM.
type Response struct {
	// Content is the text content of the response.
	Content string `json:"content"`
	// ToolCalls lists the tool invocations the model requested.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// FinishReason is the provider's stop reason ("stop", "tool_calls",
	// "length").
	FinishReason string `json:"finish_reason,omitempty"`
	// Usage contains token usage information.
	Usage TokenUsage `json:"usage"`
}

// HasToolCalls reports whether the model requested any tool invocations.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// TokenUsage contains token usage information for a request.
type TokenUsage struct {
	// InputTokens is the number of tokens in the prompt.
	InputTokens int `json:"input_tokens"`
	// OutputTokens is the number of tokens in the completion.
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage from another request.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
