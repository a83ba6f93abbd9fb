package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache wraps a ristretto store sized by entry count. Every
// entry costs 1, so MaxEntries bounds items rather than bytes; the
// metadata this cache holds is small and uniform.
type RistrettoCache struct {
	store  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig sizes the cache.
type RistrettoConfig struct {
	MaxEntries int64
	Logger     *zap.Logger
}

// NewRistrettoCache builds a count-bounded cache. Frequency counters
// follow ristretto's guidance of 10x the expected entry count.
func NewRistrettoCache(cfg *RistrettoConfig) (*RistrettoCache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("max entries must be positive, got %d", cfg.MaxEntries)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto store: %w", err)
	}

	return &RistrettoCache{store: store, logger: cfg.Logger}, nil
}

func (r *RistrettoCache) Get(key string) (any, bool) {
	value, found := r.store.Get(key)
	if found {
		LookupsTotal.WithLabelValues("hit").Inc()
	} else {
		LookupsTotal.WithLabelValues("miss").Inc()
	}
	return value, found
}

// Set stores value under key for ttl. A false return means ristretto
// declined admission; the entry is simply not cached.
func (r *RistrettoCache) Set(key string, value any, ttl time.Duration) bool {
	admitted := r.store.SetWithTTL(key, value, 1, ttl)
	if !admitted {
		WritesDroppedTotal.Inc()
		r.logger.Debug("cache-write-dropped", zap.String("key", key))
	}
	return admitted
}

func (r *RistrettoCache) Delete(key string) {
	r.store.Del(key)
}

func (r *RistrettoCache) Close() {
	r.store.Close()
}

// Wait blocks until pending writes are applied. Tests call this before
// reading back a value they just stored.
func (r *RistrettoCache) Wait() {
	r.store.Wait()
}
