// Package cache is the in-process TTL cache behind market metadata
// lookups: matched-pair legs survive here between discovery refreshes,
// and per-market fee overrides sit here between catalog fetches.
package cache

import "time"

// Cache is a TTL'd key/value store. Set is best-effort: the backing
// store may decline admission under pressure, so callers treat cached
// values as hints and fall back to the source of truth on a miss.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration) bool
	Delete(key string)
	Close()
}
