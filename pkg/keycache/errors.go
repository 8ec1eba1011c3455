package keycache

import "errors"

var (
	// ErrCacheMiss is returned when a key is not cached or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the backing store cannot be reached
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrInvalidKey is returned for an empty cache key
	ErrInvalidKey = errors.New("invalid cache key")
)
