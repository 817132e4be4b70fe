package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/teamflow/types"
	"github.com/google/uuid"
)

// FileStore is a file-based implementation of Store, one JSON document per
// conversation. Writes go through a temp file and an atomic rename so a crash
// never leaves a torn session on disk. Suitable for single-node deployments.
type FileStore struct {
	baseDir   string
	sessions  map[string]*Session // in-memory cache, disk is authoritative
	validator HandoffValidator
	keyed     *KeyedMutex
	mu        sync.RWMutex
	closed    bool
}

// NewFileStore creates a file-based session store rooted at baseDir, loading
// any sessions already on disk.
func NewFileStore(baseDir string, validator HandoffValidator) (*FileStore, error) {
	dir := filepath.Join(baseDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session store directory: %w", err)
	}
	s := &FileStore{
		baseDir:   dir,
		sessions:  make(map[string]*Session),
		validator: validator,
		keyed:     NewKeyedMutex(),
	}
	if err := s.loadFromDisk(); err != nil {
		return nil, fmt.Errorf("load sessions from disk: %w", err)
	}
	return s, nil
}

func (s *FileStore) loadFromDisk() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			return err
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return fmt.Errorf("corrupt session file %s: %w", entry.Name(), err)
		}
		s.sessions[sess.ConversationID] = &sess
	}
	return nil
}

func (s *FileStore) path(conversationID string) string {
	return filepath.Join(s.baseDir, conversationID+".json")
}

// validateConversationID rejects ids that would escape the store directory
// once used as a file name.
func validateConversationID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("invalid conversation id %q", id)).WithHTTPStatus(400)
	}
	return nil
}

// persist writes the session durably before returning.
func (s *FileStore) persist(sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	tmp := s.path(sess.ConversationID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(sess.ConversationID))
}

// Close closes the store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store directory is reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := os.Stat(s.baseDir)
	return err
}

// GetOrCreate returns the existing session or creates and persists a new one.
func (s *FileStore) GetOrCreate(ctx context.Context, conversationID, teamName, initialAgent string) (*Session, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
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
	if err := s.persist(sess); err != nil {
		return nil, err
	}
	s.sessions[conversationID] = sess
	return sess.Clone(), nil
}

// Get returns the session for the conversation id.
func (s *FileStore) Get(ctx context.Context, conversationID string) (*Session, error) {
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

// AppendTurn appends a turn and persists before returning.
func (s *FileStore) AppendTurn(ctx context.Context, conversationID string, turn types.Turn) (types.Turn, error) {
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
	if err := s.persist(sess); err != nil {
		// Roll the in-memory copy back so cache and disk stay consistent.
		sess.Turns = sess.Turns[:len(sess.Turns)-1]
		return types.Turn{}, err
	}
	return turn, nil
}

// SetActiveAgent updates the routing state after validating the transition.
func (s *FileStore) SetActiveAgent(ctx context.Context, conversationID, agentName string) error {
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
	prev := sess.ActiveAgent
	sess.ActiveAgent = agentName
	sess.UpdatedAt = time.Now()
	if err := s.persist(sess); err != nil {
		sess.ActiveAgent = prev
		return err
	}
	return nil
}

// Delete removes the session from memory and disk.
func (s *FileStore) Delete(ctx context.Context, conversationID string) error {
	if err := validateConversationID(conversationID); err != nil {
		return err
	}
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.sessions, conversationID)
	if err := os.Remove(s.path(conversationID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
