// Package circuitbreaker halts trade execution once realized losses in
// the current UTC day cross the configured limit. Losses come from
// stranded legs; the executor reports them, the agent consults Allow
// before attempting a new opportunity.
package circuitbreaker

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

// Event is emitted when the breaker trips. The channel is buffered and
// never blocks the executor path.
type Event struct {
	TrippedAt time.Time
	Losses    *big.Int // 6-dp USDT
	Limit     *big.Int // 6-dp USDT
}

// DailyLossBreaker accumulates realized losses per UTC calendar day and
// blocks new trades once the limit is reached. The meter resets at the
// next UTC midnight and the breaker re-arms.
type DailyLossBreaker struct {
	allowed atomic.Bool // Atomic for lock-free reads

	limit  *big.Int
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	day       string // UTC day the meter covers
	losses    *big.Int
	trippedAt time.Time

	events chan Event
}

// Config holds breaker configuration.
type Config struct {
	DailyLossLimit *big.Int // 6-dp USDT; nil means the 50 USDT default
	Logger         *zap.Logger
}

// Status holds current breaker state for debugging and HTTP endpoints.
type Status struct {
	Allowed   bool
	Day       string
	Losses    *big.Int
	Limit     *big.Int
	TrippedAt time.Time
}

// New creates a daily loss breaker with the given configuration.
func New(cfg *Config) (*DailyLossBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	limit := cfg.DailyLossLimit
	if limit == nil {
		limit = big.NewInt(50_000_000)
	}
	if limit.Sign() <= 0 {
		return nil, fmt.Errorf("daily loss limit must be positive")
	}

	b := &DailyLossBreaker{
		limit:  new(big.Int).Set(limit),
		logger: cfg.Logger,
		now:    time.Now,
		losses: new(big.Int),
		events: make(chan Event, 1),
	}
	b.day = b.now().UTC().Format(dayLayout)
	b.allowed.Store(true)

	BreakerAllowed.Set(1)
	DailyLossesUsdt.Set(0)
	DailyLossLimitUsdt.Set(usdtApprox(b.limit))

	return b, nil
}

// Allow reports whether new trades may be attempted. Safe to call from
// hot paths; only touches the mutex when the UTC day has rolled over.
func (b *DailyLossBreaker) Allow() bool {
	b.rollWindow()

	return b.allowed.Load()
}

// RecordLoss adds a realized loss to the current day's meter and trips
// the breaker when the limit is reached. Call it with the cost of a
// stranded leg after a failed hedge.
func (b *DailyLossBreaker) RecordLoss(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		b.logger.Warn("invalid-loss-amount", zap.Any("amount", amount))
		return
	}

	b.rollWindow()

	b.mu.Lock()
	b.losses.Add(b.losses, amount)
	losses := new(big.Int).Set(b.losses)
	b.mu.Unlock()

	DailyLossesUsdt.Set(usdtApprox(losses))

	if losses.Cmp(b.limit) < 0 {
		b.logger.Debug("loss-recorded",
			zap.String("loss", amount.String()),
			zap.String("day_total", losses.String()),
			zap.String("limit", b.limit.String()))
		return
	}

	if b.allowed.CompareAndSwap(true, false) {
		trippedAt := b.now().UTC()
		b.mu.Lock()
		b.trippedAt = trippedAt
		b.mu.Unlock()

		BreakerAllowed.Set(0)
		BreakerTripsTotal.Inc()

		b.logger.Warn("daily-loss-breaker-tripped",
			zap.String("losses", losses.String()),
			zap.String("limit", b.limit.String()),
			zap.Time("tripped_at", trippedAt))

		select {
		case b.events <- Event{TrippedAt: trippedAt, Losses: losses, Limit: new(big.Int).Set(b.limit)}:
		default:
		}
	}
}

// Events returns the trip notification channel. One event per trip; a
// slow consumer drops events rather than blocking the executor.
func (b *DailyLossBreaker) Events() <-chan Event {
	return b.events
}

// Losses returns a copy of the current day's loss meter.
func (b *DailyLossBreaker) Losses() *big.Int {
	b.rollWindow()

	b.mu.Lock()
	defer b.mu.Unlock()

	return new(big.Int).Set(b.losses)
}

// GetStatus returns current breaker state for debugging and HTTP endpoints.
func (b *DailyLossBreaker) GetStatus() Status {
	b.rollWindow()

	b.mu.Lock()
	defer b.mu.Unlock()

	return Status{
		Allowed:   b.allowed.Load(),
		Day:       b.day,
		Losses:    new(big.Int).Set(b.losses),
		Limit:     new(big.Int).Set(b.limit),
		TrippedAt: b.trippedAt,
	}
}

// rollWindow resets the meter and re-arms the breaker when the UTC day
// has changed since the last loss or check.
func (b *DailyLossBreaker) rollWindow() {
	day := b.now().UTC().Format(dayLayout)

	b.mu.Lock()
	if day == b.day {
		b.mu.Unlock()
		return
	}
	b.day = day
	b.losses.SetInt64(0)
	b.trippedAt = time.Time{}
	b.mu.Unlock()

	DailyLossesUsdt.Set(0)
	if b.allowed.CompareAndSwap(false, true) {
		BreakerAllowed.Set(1)
		b.logger.Info("daily-loss-breaker-reset", zap.String("day", day))
	}
}

// usdtApprox converts a 6-dp amount to a float for metrics only.
func usdtApprox(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()

	return f / 1e6
}
