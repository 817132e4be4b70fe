package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/teamflow/types"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// Session is the per-conversation state: transcript plus active-agent pointer.
// Instances returned by a Store are snapshots owned by the caller.
type Session struct {
	ConversationID string       `json:"conversation_id"`
	TeamName       string       `json:"team_name"`
	ActiveAgent    string       `json:"active_agent"`
	Turns          []types.Turn `json:"turns"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// LastTurn returns the most recent turn, or nil for an empty transcript.
func (s *Session) LastTurn() *types.Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	return &s.Turns[len(s.Turns)-1]
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	out := *s
	out.Turns = make([]types.Turn, len(s.Turns))
	copy(out.Turns, s.Turns)
	return &out
}

// HandoffValidator checks that an active-agent transition is legal for a
// team. The team registry implements this; stores that are handed a nil
// validator skip the check.
type HandoffValidator interface {
	ValidateHandoff(teamName, from, to string) error
}

// Store persists conversation sessions.
//
// GetOrCreate is idempotent: replaying it for an existing conversation
// returns the stored state, never a fresh session. AppendTurn is the only
// transcript mutator and is strictly append-only. SetActiveAgent validates
// the transition through the HandoffValidator (initial assignment excepted).
// Sessions are destroyed only by explicit Delete.
type Store interface {
	GetOrCreate(ctx context.Context, conversationID, teamName, initialAgent string) (*Session, error)
	Get(ctx context.Context, conversationID string) (*Session, error)
	AppendTurn(ctx context.Context, conversationID string, turn types.Turn) (types.Turn, error)
	SetActiveAgent(ctx context.Context, conversationID, agentName string) error
	Delete(ctx context.Context, conversationID string) error

	Close() error
	Ping(ctx context.Context) error
}

func notFoundErr(conversationID string) error {
	return types.NewError(types.ErrSessionNotFound,
		fmt.Sprintf("conversation %q not found", conversationID)).
		WithHTTPStatus(404).
		WithCause(ErrNotFound)
}
