package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisFieldNext      = "next"
	redisFieldUpdatedAt = "updated_at"
)

// RedisCursorStore keeps each cursor in a hash holding the next URL and the
// time it was saved. Cursors never expire.
type RedisCursorStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCursorStore wraps an existing client
func NewRedisCursorStore(client *redis.Client, prefix string) *RedisCursorStore {
	return &RedisCursorStore{client: client, prefix: prefix}
}

// NewRedisCursorStoreFromURL dials redisURL and pings it once
func NewRedisCursorStoreFromURL(ctx context.Context, redisURL, prefix string) (*RedisCursorStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCursorStore(client, prefix), nil
}

func (s *RedisCursorStore) Load(ctx context.Context, key string) (string, error) {
	next, err := s.client.HGet(ctx, s.prefix+key, redisFieldNext).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrCursorNotFound
	case err != nil:
		return "", fmt.Errorf("load cursor %q: %w", key, err)
	}
	return next, nil
}

func (s *RedisCursorStore) Save(ctx context.Context, key, nextURL string) error {
	err := s.client.HSet(ctx, s.prefix+key,
		redisFieldNext, nextURL,
		redisFieldUpdatedAt, time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("save cursor %q: %w", key, err)
	}
	return nil
}

func (s *RedisCursorStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete cursor %q: %w", key, err)
	}
	return nil
}

func (s *RedisCursorStore) Close() error {
	return s.client.Close()
}
