// Package retry runs short venue calls again after transient failures,
// with exponential backoff and jitter. Callers decide retryability via a
// predicate so validation and auth failures always fail fast.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Config holds the backoff schedule.
type Config struct {
	MaxAttempts       int // total attempts including the first
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterPercent     float64 // 0.2 = up to 20% added to each delay
}

// DefaultConfig is the schedule venue clients use: one retry, short first
// delay. Quote polling must give up quickly; the next tick repolls anyway.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       2,
		InitialDelay:      250 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0.2,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 250 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.BackoffMultiplier < 1.0 {
		c.BackoffMultiplier = 2.0
	}

	return c
}

// Do runs fn until it succeeds, returns an error shouldRetry rejects,
// exhausts the attempt budget, or ctx ends. The last error is returned
// wrapped with the attempt count.
func Do(ctx context.Context, cfg Config, shouldRetry func(error) bool, fn func(context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(jittered(delay, cfg.JitterPercent)):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// jittered applies backoff * (1.0 + random(0, jitterPercent)).
func jittered(d time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 {
		return d
	}
	jitter := rand.Float64() * jitterPercent

	return time.Duration(float64(d) * (1.0 + jitter))
}
