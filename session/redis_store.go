package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/teamflow/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig contains Redis-specific configuration.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	PoolSize  int    `json:"pool_size" yaml:"pool_size"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// RedisStore is a Redis-backed implementation of Store.
// Suitable for distributed deployments. The transcript lives in a Redis list
// (append-only by construction); session metadata lives in a hash.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	validator HandoffValidator
	keyed     *KeyedMutex
}

// NewRedisStore creates a Redis-backed session store and verifies the
// connection.
func NewRedisStore(cfg RedisConfig, validator HandoffValidator) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "teamflow:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix + "session:",
		validator: validator,
		keyed:     NewKeyedMutex(),
	}, nil
}

func (s *RedisStore) metaKey(id string) string  { return s.keyPrefix + "meta:" + id }
func (s *RedisStore) turnsKey(id string) string { return s.keyPrefix + "turns:" + id }

// Close closes the store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetOrCreate returns the existing session or creates a new one.
func (s *RedisStore) GetOrCreate(ctx context.Context, conversationID, teamName, initialAgent string) (*Session, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	meta, err := s.client.HGetAll(ctx, s.metaKey(conversationID)).Result()
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		return s.load(ctx, conversationID, meta)
	}

	now := time.Now()
	if err := s.client.HSet(ctx, s.metaKey(conversationID), map[string]any{
		"team_name":    teamName,
		"active_agent": initialAgent,
		"created_at":   now.Format(time.RFC3339Nano),
		"updated_at":   now.Format(time.RFC3339Nano),
	}).Err(); err != nil {
		return nil, err
	}
	return &Session{
		ConversationID: conversationID,
		TeamName:       teamName,
		ActiveAgent:    initialAgent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Get returns the session for the conversation id.
func (s *RedisStore) Get(ctx context.Context, conversationID string) (*Session, error) {
	meta, err := s.client.HGetAll(ctx, s.metaKey(conversationID)).Result()
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, notFoundErr(conversationID)
	}
	return s.load(ctx, conversationID, meta)
}

func (s *RedisStore) load(ctx context.Context, conversationID string, meta map[string]string) (*Session, error) {
	raw, err := s.client.LRange(ctx, s.turnsKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	turns := make([]types.Turn, 0, len(raw))
	for _, item := range raw {
		var turn types.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("corrupt turn in conversation %s: %w", conversationID, err)
		}
		turns = append(turns, turn)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, meta["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, meta["updated_at"])
	return &Session{
		ConversationID: conversationID,
		TeamName:       meta["team_name"],
		ActiveAgent:    meta["active_agent"],
		Turns:          turns,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// AppendTurn appends a turn via RPUSH, preserving total order per
// conversation.
func (s *RedisStore) AppendTurn(ctx context.Context, conversationID string, turn types.Turn) (types.Turn, error) {
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	exists, err := s.client.Exists(ctx, s.metaKey(conversationID)).Result()
	if err != nil {
		return types.Turn{}, err
	}
	if exists == 0 {
		return types.Turn{}, notFoundErr(conversationID)
	}
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return types.Turn{}, err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.turnsKey(conversationID), data)
	pipe.HSet(ctx, s.metaKey(conversationID), "updated_at", time.Now().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return types.Turn{}, err
	}
	return turn, nil
}

// SetActiveAgent updates the routing state after validating the transition.
func (s *RedisStore) SetActiveAgent(ctx context.Context, conversationID, agentName string) error {
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	meta, err := s.client.HGetAll(ctx, s.metaKey(conversationID)).Result()
	if err != nil {
		return err
	}
	if len(meta) == 0 {
		return notFoundErr(conversationID)
	}
	if s.validator != nil {
		if err := s.validator.ValidateHandoff(meta["team_name"], meta["active_agent"], agentName); err != nil {
			return err
		}
	}
	return s.client.HSet(ctx, s.metaKey(conversationID),
		"active_agent", agentName,
		"updated_at", time.Now().Format(time.RFC3339Nano),
	).Err()
}

// Delete removes the session keys.
func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)
	return s.client.Del(ctx, s.metaKey(conversationID), s.turnsKey(conversationID)).Err()
}
