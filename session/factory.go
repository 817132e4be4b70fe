package session

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoreType represents the type of storage backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQLite StoreType = "sqlite"
)

// Config is the session store configuration.
type Config struct {
	// Type is the storage backend type.
	Type StoreType `json:"type" yaml:"type"`

	// BaseDir is the base directory for file-based storage.
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`

	// Redis configuration (only used when Type is "redis").
	Redis RedisConfig `json:"redis" yaml:"redis"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Type:       StoreTypeMemory,
		BaseDir:    "./data",
		SQLitePath: "./data/teamflow.db",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "teamflow:",
		},
	}
}

// NewStore creates a session store for the configured backend.
func NewStore(cfg Config, validator HandoffValidator) (Store, error) {
	switch cfg.Type {
	case StoreTypeMemory, "":
		return NewMemoryStore(validator), nil
	case StoreTypeFile:
		return NewFileStore(cfg.BaseDir, validator)
	case StoreTypeRedis:
		return NewRedisStore(cfg.Redis, validator)
	case StoreTypeSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
			Logger: logger.Discard,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		return NewGormStore(db, validator)
	default:
		return nil, fmt.Errorf("unknown session store type: %s", cfg.Type)
	}
}
