package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/BaSui01/teamflow/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sessionRow is the relational projection of session metadata.
type sessionRow struct {
	ConversationID string `gorm:"primaryKey;size:64"`
	TeamName       string `gorm:"size:255;not null"`
	ActiveAgent    string `gorm:"size:255;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (sessionRow) TableName() string { return "sessions" }

// turnRow stores one transcript entry. Seq carries the append order; the
// turn itself is stored as JSON since its shape is owned by the types
// package, not the schema.
type turnRow struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"size:64;index:idx_turns_conv_seq,unique,priority:1;not null"`
	Seq            int    `gorm:"index:idx_turns_conv_seq,unique,priority:2;not null"`
	Payload        []byte `gorm:"not null"`
	CreatedAt      time.Time
}

func (turnRow) TableName() string { return "turns" }

// GormStore is a GORM-backed implementation of Store. The shipped dialector
// is pure-Go SQLite; any gorm.Dialector works.
type GormStore struct {
	db        *gorm.DB
	validator HandoffValidator
	keyed     *KeyedMutex
}

// NewGormStore creates a GORM-backed session store and migrates its tables.
func NewGormStore(db *gorm.DB, validator HandoffValidator) (*GormStore, error) {
	if err := db.AutoMigrate(&sessionRow{}, &turnRow{}); err != nil {
		return nil, err
	}
	return &GormStore{
		db:        db,
		validator: validator,
		keyed:     NewKeyedMutex(),
	}, nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetOrCreate returns the existing session or inserts a new one.
func (s *GormStore) GetOrCreate(ctx context.Context, conversationID, teamName, initialAgent string) (*Session, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "conversation_id = ?", conversationID).Error
	if err == nil {
		return s.load(ctx, row)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	row = sessionRow{
		ConversationID: conversationID,
		TeamName:       teamName,
		ActiveAgent:    initialAgent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
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
func (s *GormStore) Get(ctx context.Context, conversationID string) (*Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "conversation_id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundErr(conversationID)
	}
	if err != nil {
		return nil, err
	}
	return s.load(ctx, row)
}

func (s *GormStore) load(ctx context.Context, row sessionRow) (*Session, error) {
	var turnRows []turnRow
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", row.ConversationID).
		Order("seq ASC").
		Find(&turnRows).Error; err != nil {
		return nil, err
	}
	turns := make([]types.Turn, 0, len(turnRows))
	for _, tr := range turnRows {
		var turn types.Turn
		if err := json.Unmarshal(tr.Payload, &turn); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return &Session{
		ConversationID: row.ConversationID,
		TeamName:       row.TeamName,
		ActiveAgent:    row.ActiveAgent,
		Turns:          turns,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

// AppendTurn inserts the turn with the next sequence number in one
// transaction, so the commit is the durability point.
func (s *GormStore) AppendTurn(ctx context.Context, conversationID string, turn types.Turn) (types.Turn, error) {
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	payload, err := json.Marshal(turn)
	if err != nil {
		return types.Turn{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		if err := tx.First(&row, "conversation_id = ?", conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr(conversationID)
			}
			return err
		}
		var count int64
		if err := tx.Model(&turnRow{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
			return err
		}
		if err := tx.Create(&turnRow{
			ConversationID: conversationID,
			Seq:            int(count),
			Payload:        payload,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&sessionRow{}).
			Where("conversation_id = ?", conversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return types.Turn{}, err
	}
	return turn, nil
}

// SetActiveAgent updates the routing state after validating the transition.
func (s *GormStore) SetActiveAgent(ctx context.Context, conversationID, agentName string) error {
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "conversation_id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr(conversationID)
	}
	if err != nil {
		return err
	}
	if s.validator != nil {
		if err := s.validator.ValidateHandoff(row.TeamName, row.ActiveAgent, agentName); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]any{"active_agent": agentName, "updated_at": time.Now()}).Error
}

// Delete removes the session and its turns.
func (s *GormStore) Delete(ctx context.Context, conversationID string) error {
	s.keyed.Lock(conversationID)
	defer s.keyed.Unlock(conversationID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&turnRow{}, "conversation_id = ?", conversationID).Error; err != nil {
			return err
		}
		return tx.Delete(&sessionRow{}, "conversation_id = ?", conversationID).Error
	})
}
