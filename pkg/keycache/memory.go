package keycache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is a process-local LRU with per-entry expiry
type MemoryCache struct {
	cache  *lru.LRU[string, Entry]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates a cache holding at most maxEntries keys for ttl
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		cache: lru.NewLRU[string, Entry](maxEntries, nil, ttl),
	}
}

// Get retrieves a cached value
func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	entry, ok := c.cache.Get(key)
	if !ok || entry.Value == "" {
		c.misses.Add(1)
		return "", ErrCacheMiss
	}

	c.hits.Add(1)
	return entry.Value, nil
}

// Put stores a value
func (c *MemoryCache) Put(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	c.cache.Add(key, NewEntry(value))
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() Stats {
	stats := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		ItemCount: int64(c.cache.Len()),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Close releases resources
func (c *MemoryCache) Close() error {
	c.cache.Purge()
	return nil
}
