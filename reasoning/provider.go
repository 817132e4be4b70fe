package reasoning

import (
	"context"
	"encoding/json"

	"github.com/BaSui01/teamflow/types"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a chat transcript.
type Message struct {
	Role       Role             `json:"role"`
	Content    string           `json:"content,omitempty"`
	Name       string           `json:"name,omitempty"`
	ToolCalls  []types.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

// ToolSchema describes a callable tool to the backend.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"` // JSON Schema
}

// ChatRequest is a single completion request.
type ChatRequest struct {
	Model       string       `json:"model"`
	Messages    []Message    `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float32      `json:"temperature,omitempty"`
	Tools       []ToolSchema `json:"tools,omitempty"`
	ToolChoice  string       `json:"tool_choice,omitempty"` // auto/none/<tool name>
}

// ChatResponse is the backend's answer: assistant text, tool calls, or both.
type ChatResponse struct {
	Content      string           `json:"content,omitempty"`
	ToolCalls    []types.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string           `json:"finish_reason,omitempty"`
	Model        string           `json:"model,omitempty"`
	Usage        types.TokenUsage `json:"usage,omitempty"`
}

// WantsTools reports whether the backend asked for tool executions.
func (r *ChatResponse) WantsTools() bool { return len(r.ToolCalls) > 0 }

// Provider is a chat-completion backend.
//
// Completion is synchronous and must honor ctx cancellation. Failures come
// back as *types.Error with PROVIDER_UNAVAILABLE, RATE_LIMITED, TIMEOUT, or
// UNAUTHORIZED codes so callers can decide on retries without inspecting
// transport details.
type Provider interface {
	Name() string
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
