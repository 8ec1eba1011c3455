package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/journal"
)

// ErrCursorNotFound is returned by Load when nothing was saved for a key
var ErrCursorNotFound = journal.ErrCursorNotFound

// CursorStore persists journal cursors. It satisfies journal.CursorStore.
type CursorStore interface {
	journal.CursorStore

	// Delete forgets the cursor for key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Type names a cursor store backend
type Type string

const (
	TypeMemory     Type = "memory"
	TypeFilesystem Type = "filesystem"
	TypeRedis      Type = "redis"
	TypePostgres   Type = "postgres"
	TypeSQLite     Type = "sqlite"
	TypeS3         Type = "s3"
)

// Config for the cursor store backend
type Config struct {
	Type Type `yaml:"type"`

	// Filesystem config
	FilesystemRoot string `yaml:"filesystem_root"`

	// SQL config, used by postgres and sqlite
	DSN         string        `yaml:"dsn"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`

	// Redis config
	RedisURL  string `yaml:"redis_url"`
	KeyPrefix string `yaml:"key_prefix"`

	// S3 config
	S3Bucket       string `yaml:"s3_bucket"`
	S3Prefix       string `yaml:"s3_prefix"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:        TypeMemory,
		MaxConns:    5,
		MinConns:    1,
		Timeout:     5 * time.Second,
		MaxLifetime: time.Hour,
		KeyPrefix:   "ioevents:cursor:",
		S3Prefix:    "cursors/",
		S3Region:    "us-east-1",
	}
}

// NewCursorStore builds the store selected by cfg.Type
func NewCursorStore(ctx context.Context, cfg Config, logger *logrus.Logger) (CursorStore, error) {
	switch cfg.Type {
	case "", TypeMemory:
		return NewMemoryCursorStore(), nil
	case TypeFilesystem:
		return NewFileSystemCursorStore(cfg.FilesystemRoot)
	case TypeRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("no Redis URL provided for cursor store")
		}
		return NewRedisCursorStoreFromURL(ctx, cfg.RedisURL, cfg.KeyPrefix)
	case TypePostgres, TypeSQLite:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("no DSN provided for %s cursor store", cfg.Type)
		}
		return OpenSQLCursorStore(ctx, cfg, logger)
	case TypeS3:
		return NewS3CursorStoreFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown cursor store type %q", cfg.Type)
	}
}
