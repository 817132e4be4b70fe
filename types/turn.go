package types

import (
	"encoding/json"
	"time"
)

// Role represents the author of a conversation turn.
type Role string

const (
	RoleUser        Role = "user"
	RoleAgent       Role = "agent"
	RoleSystemError Role = "system-error"
)

// ToolCall represents a tool invocation request emitted by an agent's
// reasoning step, before it has been dispatched.
type ToolCall struct {
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolInvocation is the completed record of a single tool dispatch.
// Immutable once FinishedAt is set.
type ToolInvocation struct {
	ToolName     string          `json:"toolName"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	StartedAt    time.Time       `json:"startedAt"`
	FinishedAt   time.Time       `json:"finishedAt"`
}

// Failed reports whether the invocation ended in an error outcome.
func (ti ToolInvocation) Failed() bool {
	return ti.ErrorMessage != ""
}

// HandoffRecord captures a routing transition that produced a turn:
// which agent handed control to which, and the routing rationale.
type HandoffRecord struct {
	FromAgent     string `json:"fromAgent"`
	ToAgent       string `json:"toAgent"`
	Rationale     string `json:"rationale,omitempty"`
	Clarification bool   `json:"clarification,omitempty"`
}

// Turn is a single entry in a conversation transcript.
// Turns are immutable once appended to a session.
type Turn struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	AgentName string           `json:"agentName,omitempty"`
	ToolCalls []ToolInvocation `json:"toolCalls,omitempty"`
	Handoff   *HandoffRecord   `json:"handoff,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewUserTurn creates a user turn with the current timestamp.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAgentTurn creates an agent turn attributed to the named agent.
func NewAgentTurn(agentName, content string) Turn {
	return Turn{Role: RoleAgent, AgentName: agentName, Content: content, Timestamp: time.Now()}
}

// NewErrorTurn creates an in-band system-error turn. The content is shown to
// the user in place of an agent answer; the conversation remains usable.
func NewErrorTurn(content string) Turn {
	return Turn{Role: RoleSystemError, Content: content, Timestamp: time.Now()}
}

// WithToolCalls attaches completed tool invocations to the turn.
func (t Turn) WithToolCalls(calls []ToolInvocation) Turn {
	t.ToolCalls = calls
	return t
}

// WithHandoff attaches a handoff record to the turn.
func (t Turn) WithHandoff(h *HandoffRecord) Turn {
	t.Handoff = h
	return t
}
