package keycache

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTTL matches how long the CDN keys are expected to stay valid
const DefaultTTL = 24 * time.Hour

// Cache stores public key PEM text by key file name
type Cache interface {
	// Get returns the cached value, ErrCacheMiss, or an error wrapping ErrCacheUnavailable
	Get(ctx context.Context, key string) (string, error)
	// Put stores value under key
	Put(ctx context.Context, key, value string) error
	Close() error
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	HitRate   float64
	ItemCount int64
}

// Type names a cache backend
type Type string

const (
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
)

// Config holds cache configuration
type Config struct {
	Type       Type          `yaml:"type"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
	RedisURL   string        `yaml:"redis_url"`
	KeyPrefix  string        `yaml:"key_prefix"`
}

// DefaultConfig returns an in-memory cache configuration
func DefaultConfig() Config {
	return Config{
		Type:       TypeMemory,
		MaxEntries: 128,
		TTL:        DefaultTTL,
		KeyPrefix:  "ioevents:pubkey:",
	}
}

// New builds the cache selected by cfg.Type
func New(ctx context.Context, cfg Config, logger *logrus.Logger) (Cache, error) {
	switch cfg.Type {
	case "", TypeMemory:
		return NewMemoryCache(cfg.MaxEntries, cfg.TTL), nil
	case TypeRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("no Redis URL provided for key cache")
		}
		return NewRedisCacheFromURL(ctx, cfg.RedisURL, cfg.KeyPrefix, cfg.TTL, logger)
	default:
		return nil, fmt.Errorf("unknown key cache type %q", cfg.Type)
	}
}
