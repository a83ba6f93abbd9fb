// Package agent runs the trading loop. Every tick it pulls fresh books
// for the tracked pairs, ranks the spread opportunities, hands the best
// one to the executor, and persists a session snapshot so a restart
// resumes instead of double-counting.
//
// The loop never brings the process down on its own. A failed venue
// fetch, a rejected execution, or a full breaker trip all degrade to a
// metric increment and a log line; the ticker keeps running.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/circuitbreaker"
	"github.com/vaibhav0806/prophit-sub001/internal/discovery"
	"github.com/vaibhav0806/prophit-sub001/internal/execution"
	"github.com/vaibhav0806/prophit-sub001/internal/quotes"
	"github.com/vaibhav0806/prophit-sub001/internal/scanner"
	"github.com/vaibhav0806/prophit-sub001/internal/state"
	"github.com/vaibhav0806/prophit-sub001/internal/storage"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// DefaultScanInterval paces the quote-refresh-and-scan loop.
const DefaultScanInterval = 5 * time.Second

// QuoteProvider fetches one venue's order books for its assigned
// markets. quotes.Provider satisfies it.
type QuoteProvider interface {
	Protocol() types.Protocol
	SetMarkets(assignment map[string]types.VenueMarket)
	FetchQuotes(ctx context.Context) []types.MarketQuote
}

// TradeExecutor places both legs of an opportunity. execution.Executor
// satisfies it.
type TradeExecutor interface {
	Execute(ctx context.Context, opp *types.ArbitOpportunity) (*execution.Result, error)
}

// MarketFeed exposes the current discovery snapshot. discovery.Service
// satisfies it.
type MarketFeed interface {
	Snapshot() *discovery.Result
}

// OpportunityStream receives every tick's scan result for live push to
// dashboard clients. httpserver.StreamPublisher satisfies it.
type OpportunityStream interface {
	PublishOpportunities(opps []types.ArbitOpportunity)
}

// Config holds agent configuration.
type Config struct {
	Providers []QuoteProvider
	Store     *quotes.Store
	Scanner   *scanner.Scanner
	Executor  TradeExecutor
	Markets   MarketFeed
	Archive   storage.Storage
	State     *state.File

	// Breaker is optional; nil disables trip alerts and the preflight
	// gate (the executor still enforces its own).
	Breaker *circuitbreaker.DailyLossBreaker

	// Stream is optional; nil disables the dashboard push.
	Stream OpportunityStream

	// Venues drives yield rotation. Ignored unless YieldRotation is set.
	Venues []execution.Client

	ScanInterval     time.Duration
	MaxTrades        int // 0 means unlimited
	YieldRotation    bool
	RotationInterval time.Duration
	OrderExpiration  time.Duration

	Logger *zap.Logger
}

// Agent owns the tick loop and the session trade ledger.
type Agent struct {
	providers []QuoteProvider
	store     *quotes.Store
	scanner   *scanner.Scanner
	executor  TradeExecutor
	markets   MarketFeed
	archive   storage.Storage
	state     *state.File
	breaker   *circuitbreaker.DailyLossBreaker
	stream    OpportunityStream
	venues    []execution.Client

	scanInterval     time.Duration
	maxTrades        int
	yieldRotation    bool
	rotationInterval time.Duration
	orderExpiration  time.Duration

	logger *zap.Logger

	mu            sync.RWMutex
	trades        int
	positions     []types.Position
	opportunities []types.ArbitOpportunity
	lastAssigned  time.Time
}

// New creates the agent with the given configuration.
func New(cfg *Config) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one quote provider is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("quote store cannot be nil")
	}
	if cfg.Scanner == nil {
		return nil, fmt.Errorf("scanner cannot be nil")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if cfg.Markets == nil {
		return nil, fmt.Errorf("market feed cannot be nil")
	}
	if cfg.Archive == nil {
		return nil, fmt.Errorf("archive storage cannot be nil")
	}
	if cfg.State == nil {
		return nil, fmt.Errorf("state file cannot be nil")
	}

	scanInterval := cfg.ScanInterval
	if scanInterval <= 0 {
		scanInterval = DefaultScanInterval
	}
	rotationInterval := cfg.RotationInterval
	if rotationInterval <= 0 {
		rotationInterval = time.Hour
	}
	orderExpiration := cfg.OrderExpiration
	if orderExpiration <= 0 {
		orderExpiration = 5 * time.Minute
	}

	return &Agent{
		providers:        cfg.Providers,
		store:            cfg.Store,
		scanner:          cfg.Scanner,
		executor:         cfg.Executor,
		markets:          cfg.Markets,
		archive:          cfg.Archive,
		state:            cfg.State,
		breaker:          cfg.Breaker,
		stream:           cfg.Stream,
		venues:           cfg.Venues,
		scanInterval:     scanInterval,
		maxTrades:        cfg.MaxTrades,
		yieldRotation:    cfg.YieldRotation,
		rotationInterval: rotationInterval,
		orderExpiration:  orderExpiration,
		logger:           cfg.Logger,
	}, nil
}

// Run restores the previous session, then ticks until the context is
// cancelled. A final snapshot is written on the way out.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.restore(); err != nil {
		a.logger.Warn("state-restore-failed", zap.Error(err))
	}

	a.logger.Info("agent-starting",
		zap.Duration("scan-interval", a.scanInterval),
		zap.Int("max-trades", a.maxTrades),
		zap.Bool("yield-rotation", a.yieldRotation),
		zap.Int("providers", len(a.providers)))

	var wg sync.WaitGroup
	if a.breaker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.watchBreaker(ctx)
		}()
	}
	if a.yieldRotation && len(a.venues) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.rotationLoop(ctx)
		}()
	}

	ticker := time.NewTicker(a.scanInterval)
	defer ticker.Stop()

	a.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent-stopping")
			a.persist()
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick is one refresh-scan-execute-persist cycle.
func (a *Agent) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		TickDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	a.applyDiscovery()
	a.refreshQuotes(ctx)

	opps := a.scanner.Scan()
	a.setOpportunities(opps)
	if a.stream != nil {
		// Empty results go out too so dashboards drop stale rows.
		a.stream.PublishOpportunities(opps)
	}
	if len(opps) > 0 {
		a.act(ctx, &opps[0])
	}

	a.persist()
	TicksTotal.Inc()
}

// applyDiscovery pushes a changed discovery snapshot into the providers
// and the scanner. Assignments only move when a refresh actually ran.
func (a *Agent) applyDiscovery() {
	snap := a.markets.Snapshot()
	if snap == nil {
		return
	}

	a.mu.RLock()
	applied := a.lastAssigned
	a.mu.RUnlock()
	if snap.RefreshedAt.Equal(applied) {
		return
	}

	for _, p := range a.providers {
		p.SetMarkets(snap.Venue(p.Protocol()))
	}
	a.scanner.SetPolarity(snap.Polarity)

	a.mu.Lock()
	a.lastAssigned = snap.RefreshedAt
	a.mu.Unlock()

	a.logger.Info("market-assignment-updated",
		zap.Int("fingerprints", len(snap.Fingerprints())),
		zap.Int("pairs", len(snap.Pairs)),
		zap.Time("refreshed-at", snap.RefreshedAt))
}

// refreshQuotes fetches every venue's books concurrently and folds the
// batches into the store. Venue failures surface as missing quotes, so
// the scanner's freshness window handles the rest.
func (a *Agent) refreshQuotes(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range a.providers {
		wg.Add(1)
		go func(p QuoteProvider) {
			defer wg.Done()
			a.store.Put(p.FetchQuotes(ctx))
		}(p)
	}
	wg.Wait()
}

// act archives the top opportunity and executes it unless a session
// gate says otherwise.
func (a *Agent) act(ctx context.Context, top *types.ArbitOpportunity) {
	OpportunitiesSeenTotal.Inc()
	a.logger.Info("top-opportunity",
		zap.String("opportunity-id", top.ID),
		zap.String("summary", top.String()))

	if err := a.archive.StoreOpportunity(ctx, top); err != nil {
		a.logger.Warn("opportunity-archive-failed",
			zap.String("opportunity-id", top.ID),
			zap.Error(err))
	}

	if a.maxTrades > 0 && a.Trades() >= a.maxTrades {
		TradesSkippedTotal.WithLabelValues("session-limit").Inc()
		a.logger.Debug("session-trade-limit-reached",
			zap.Int("max-trades", a.maxTrades))
		return
	}
	if a.breaker != nil && !a.breaker.Allow() {
		TradesSkippedTotal.WithLabelValues("breaker-open").Inc()
		a.logger.Warn("breaker-open-skipping-execution",
			zap.String("opportunity-id", top.ID))
		return
	}

	result, err := a.executor.Execute(ctx, top)
	if err != nil {
		ExecutionFailuresTotal.Inc()
		if errors.Is(err, execution.ErrBreakerOpen) {
			a.logger.Warn("execution-rejected-by-breaker",
				zap.String("opportunity-id", top.ID))
		} else {
			a.logger.Error("execution-failed",
				zap.String("opportunity-id", top.ID),
				zap.Error(err))
		}
		return
	}

	a.recordResult(ctx, result)
}

// recordResult folds one execution outcome into the session ledger. An
// aborted attempt placed nothing and does not count against the trade
// limit; completed and stranded outcomes both deployed capital.
func (a *Agent) recordResult(ctx context.Context, result *execution.Result) {
	if result == nil {
		return
	}
	if result.Position == nil {
		a.logger.Info("execution-closed-flat",
			zap.String("opportunity-id", result.OpportunityID),
			zap.String("outcome", string(result.Outcome)),
			zap.Duration("duration", result.Duration))
		return
	}

	a.mu.Lock()
	a.positions = append(a.positions, *result.Position)
	a.trades++
	trades := a.trades
	a.mu.Unlock()

	TradesExecutedTotal.WithLabelValues(string(result.Outcome)).Inc()
	SessionTrades.Set(float64(trades))

	if err := a.archive.StorePosition(ctx, result.Position); err != nil {
		a.logger.Warn("position-archive-failed",
			zap.String("position-id", result.Position.ID),
			zap.Error(err))
	}

	a.logger.Info("trade-recorded",
		zap.String("opportunity-id", result.OpportunityID),
		zap.String("position-id", result.Position.ID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("session-trades", trades),
		zap.Duration("duration", result.Duration))
}

// persist writes the session snapshot. Failures are logged, never fatal;
// the next tick retries with fresher numbers anyway.
func (a *Agent) persist() {
	a.mu.RLock()
	snap := &state.Snapshot{
		TradesExecuted: a.trades,
		Positions:      append([]types.Position(nil), a.positions...),
		LastScan:       time.Now().UnixMilli(),
	}
	a.mu.RUnlock()

	if err := a.state.Save(snap); err != nil {
		a.logger.Error("state-persist-failed", zap.Error(err))
	}
}

// restore loads the previous session snapshot, if any.
func (a *Agent) restore() error {
	snap, err := a.state.Load()
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	a.mu.Lock()
	a.trades = snap.TradesExecuted
	a.positions = snap.Positions
	a.mu.Unlock()

	SessionTrades.Set(float64(snap.TradesExecuted))
	return nil
}

// watchBreaker surfaces trip events as alerts. Execution gating happens
// preflight in act; this loop is the operator-facing alarm.
func (a *Agent) watchBreaker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.breaker.Events():
			if !ok {
				return
			}
			BreakerTripsTotal.Inc()
			a.logger.Error("daily-loss-breaker-tripped",
				zap.Time("tripped-at", ev.TrippedAt),
				zap.String("losses", types.FormatUsdt(ev.Losses)),
				zap.String("limit", types.FormatUsdt(ev.Limit)))
		}
	}
}

// Trades returns trades executed this session.
func (a *Agent) Trades() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.trades
}

// Positions returns a copy of the session position ledger.
func (a *Agent) Positions() []types.Position {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]types.Position(nil), a.positions...)
}

// Opportunities returns a copy of the most recent scan result.
func (a *Agent) Opportunities() []types.ArbitOpportunity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]types.ArbitOpportunity(nil), a.opportunities...)
}

func (a *Agent) setOpportunities(opps []types.ArbitOpportunity) {
	a.mu.Lock()
	a.opportunities = append([]types.ArbitOpportunity(nil), opps...)
	a.mu.Unlock()
}
