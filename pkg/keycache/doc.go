// Package keycache stores public key PEM text fetched from the security CDN.
//
// Two backends implement Cache: MemoryCache, an expiring LRU local to the
// process, and RedisCache, shared between webhook receivers. Both use the
// Entry envelope, so a value is always read back the way it was written.
// Expiry belongs to the backend; callers only Get and Put.
//
//	cache, err := keycache.New(ctx, keycache.Config{
//		Type:     keycache.TypeRedis,
//		RedisURL: "redis://localhost:6379/0",
//		TTL:      24 * time.Hour,
//	}, logger)
//
// Get returns ErrCacheMiss for absent, expired or corrupt entries and an error
// wrapping ErrCacheUnavailable when the store cannot be reached.
package keycache
