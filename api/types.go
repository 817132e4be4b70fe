package api

import (
	"encoding/json"
	"time"

	"github.com/BaSui01/teamflow/session"
	"github.com/BaSui01/teamflow/types"
)

// InteractRequest is the POST /v1/interact body. An absent conversationId
// starts a new conversation.
type InteractRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	TeamName       string `json:"teamName"`
	Message        string `json:"message"`
}

// ToolCallInfo is one completed tool invocation on a turn.
type ToolCallInfo struct {
	ToolName     string          `json:"toolName"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// HandoffInfo describes a routing transition recorded on a turn.
type HandoffInfo struct {
	FromAgent     string `json:"fromAgent"`
	ToAgent       string `json:"toAgent"`
	Rationale     string `json:"rationale,omitempty"`
	Clarification bool   `json:"clarification,omitempty"`
}

// InteractResponse is the responding turn of one exchange.
type InteractResponse struct {
	ConversationID string         `json:"conversationId"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	AgentName      string         `json:"agentName,omitempty"`
	ToolCalls      []ToolCallInfo `json:"toolCalls"`
	Handoff        *HandoffInfo   `json:"handoff,omitempty"`
	ActiveAgent    string         `json:"activeAgent,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// TurnInfo is one transcript entry in a conversation fetch.
type TurnInfo struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	AgentName string         `json:"agentName,omitempty"`
	ToolCalls []ToolCallInfo `json:"toolCalls,omitempty"`
	Handoff   *HandoffInfo   `json:"handoff,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ConversationResponse is the GET /v1/conversations/{id} body.
type ConversationResponse struct {
	ConversationID string     `json:"conversationId"`
	TeamName       string     `json:"teamName"`
	ActiveAgent    string     `json:"activeAgent"`
	Turns          []TurnInfo `json:"turns"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// TeamInfo is one entry of the GET /v1/teams listing.
type TeamInfo struct {
	TeamName      string `json:"team_name"`
	DesignPattern string `json:"design_pattern"`
	Description   string `json:"description"`
}

// NewToolCallInfos converts invocation records to wire form.
func NewToolCallInfos(invocations []types.ToolInvocation) []ToolCallInfo {
	out := make([]ToolCallInfo, 0, len(invocations))
	for _, inv := range invocations {
		out = append(out, ToolCallInfo{
			ToolName:     inv.ToolName,
			Input:        inv.Input,
			Output:       inv.Output,
			ErrorMessage: inv.ErrorMessage,
		})
	}
	return out
}

// NewHandoffInfo converts a handoff record, passing nil through.
func NewHandoffInfo(h *types.HandoffRecord) *HandoffInfo {
	if h == nil {
		return nil
	}
	return &HandoffInfo{
		FromAgent:     h.FromAgent,
		ToAgent:       h.ToAgent,
		Rationale:     h.Rationale,
		Clarification: h.Clarification,
	}
}

// NewTurnInfo converts a stored turn to wire form.
func NewTurnInfo(turn types.Turn) TurnInfo {
	return TurnInfo{
		ID:        turn.ID,
		Role:      string(turn.Role),
		Content:   turn.Content,
		AgentName: turn.AgentName,
		ToolCalls: NewToolCallInfos(turn.ToolCalls),
		Handoff:   NewHandoffInfo(turn.Handoff),
		Timestamp: turn.Timestamp,
	}
}

// NewConversationResponse converts a session snapshot to wire form.
func NewConversationResponse(sess *session.Session) ConversationResponse {
	turns := make([]TurnInfo, 0, len(sess.Turns))
	for _, turn := range sess.Turns {
		turns = append(turns, NewTurnInfo(turn))
	}
	return ConversationResponse{
		ConversationID: sess.ConversationID,
		TeamName:       sess.TeamName,
		ActiveAgent:    sess.ActiveAgent,
		Turns:          turns,
		CreatedAt:      sess.CreatedAt,
		UpdatedAt:      sess.UpdatedAt,
	}
}
