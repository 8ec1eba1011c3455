package keycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/observability"
)

// RedisCache shares fetched keys between processes
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisCache wraps an existing client. The caller keeps ownership of client
// unless Close is called.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: observability.OrDefault(logger),
	}
}

// NewRedisCacheFromURL connects to redisURL and verifies the connection
func NewRedisCacheFromURL(ctx context.Context, redisURL, prefix string, ttl time.Duration, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCache(client, prefix, ttl, logger), nil
}

// Get retrieves a cached value. Entries not in the envelope format are deleted
// and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	redisKey := c.prefix + key

	data, err := c.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	} else if err != nil {
		return "", fmt.Errorf("%w: redis get failed: %v", ErrCacheUnavailable, err)
	}

	entry, err := DecodeEntry(data)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Deleting corrupt key cache entry")
		c.client.Del(ctx, redisKey)
		return "", ErrCacheMiss
	}

	return entry.Value, nil
}

// Put stores a value with the configured TTL
func (c *RedisCache) Put(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	data, err := NewEntry(value).Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set failed: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Close closes the redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
