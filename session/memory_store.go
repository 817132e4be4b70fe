package session

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/teamflow/types"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development and testing.
type MemoryStore struct {
	sessions  map[string]*Session
	validator HandoffValidator
	keyed     *KeyedMutex
	mu        sync.RWMutex
	closed    bool
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(validator HandoffValidator) *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*Session),
		validator: validator,
		keyed:     NewKeyedMutex(),
	}
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// GetOrCreate returns the existing session or creates a new one whose active
// agent is initialAgent.
func (s *MemoryStore) GetOrCreate(ctx context.Context, conversationID, teamName, initialAgent string) (*Session, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if sess, ok := s.sessions[conversationID]; ok {
		return sess.Clone(), nil
	}
	now := time.Now()
	sess := &Session{
		ConversationID: conversationID,
		TeamName:       teamName,
		ActiveAgent:    initialAgent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.sessions[conversationID] = sess
	return sess.Clone(), nil
}

// Get returns the session for the conversation id.
func (s *MemoryStore) Get(ctx context.Context, conversationID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	sess, ok := s.sessions[conversationID]
	if !ok {
		return nil, notFoundErr(conversationID)
	}
	return sess.Clone(), nil
}

// AppendTurn appends a turn to the transcript. Append-only: prior turns are
// never edited or removed.
func (s *MemoryStore) AppendTurn(ctx context.Context, conversationID string, turn types.Turn) (types.Turn, error) {
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.Turn{}, ErrStoreClosed
	}
	sess, ok := s.sessions[conversationID]
	if !ok {
		return types.Turn{}, notFoundErr(conversationID)
	}
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	sess.Turns = append(sess.Turns, turn)
	sess.UpdatedAt = time.Now()
	return turn, nil
}

// SetActiveAgent updates the routing state after validating the transition.
func (s *MemoryStore) SetActiveAgent(ctx context.Context, conversationID, agentName string) error {
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	sess, ok := s.sessions[conversationID]
	if !ok {
		return notFoundErr(conversationID)
	}
	if s.validator != nil {
		if err := s.validator.ValidateHandoff(sess.TeamName, sess.ActiveAgent, agentName); err != nil {
			return err
		}
	}
	sess.ActiveAgent = agentName
	sess.UpdatedAt = time.Now()
	return nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (s *MemoryStore) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.sessions, conversationID)
	return nil
}
