// Package execution places the two legs of a spread opportunity
// sequentially and classifies every outcome into a Position. The leg
// on the thinner book goes first; the hedge is only placed after the
// first leg's fill is confirmed.
package execution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// ErrBreakerOpen rejects new opportunities while the daily loss breaker
// is tripped.
var ErrBreakerOpen = errors.New("daily loss breaker open")

// Client is the venue capability surface the executor drives. All three
// venue clients satisfy it.
type Client interface {
	Protocol() types.Protocol
	PlaceOrder(ctx context.Context, params *types.OrderParams) (*types.PlaceResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (types.OrderStatus, *big.Int, error)
	GetOpenOrders(ctx context.Context) ([]types.OpenOrder, error)
}

// MarketSource resolves a pair fingerprint to one venue's leg of the
// matched market. Discovery publishes it; the agent hands it in.
type MarketSource interface {
	VenueMarket(fingerprint string, protocol types.Protocol) (types.VenueMarket, bool)
}

// LossBreaker is the daily loss meter consulted before and fed after
// executions. A nil breaker disables the check.
type LossBreaker interface {
	Allow() bool
	RecordLoss(amount *big.Int)
}

// Outcome classifies one execution attempt.
type Outcome string

const (
	// OutcomeCompleted means both legs filled in full.
	OutcomeCompleted Outcome = "completed"
	// OutcomeAborted means leg one never filled; nothing is at risk.
	OutcomeAborted Outcome = "aborted"
	// OutcomeStranded means shares are held without their hedge.
	OutcomeStranded Outcome = "stranded"
)

// Result is the outcome record of one execution attempt.
type Result struct {
	OpportunityID string
	Outcome       Outcome
	Position      *types.Position
	LossRecorded  *big.Int // 6-dp USDT added to the daily meter, nil when none
	Err           error    // classification of the failing leg, nil on success
	Duration      time.Duration
}

// Config holds executor configuration.
type Config struct {
	Clients          []Client
	Markets          MarketSource
	Breaker          LossBreaker
	FillPollInterval time.Duration
	FillPollTimeout  time.Duration
	Logger           *zap.Logger
}

// Executor turns ranked opportunities into positions, one at a time.
type Executor struct {
	clients      map[types.Protocol]Client
	markets      MarketSource
	breaker      LossBreaker
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger

	mu sync.Mutex // serializes executions
}

// New creates a two-leg executor.
func New(cfg *Config) (*Executor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Markets == nil {
		return nil, fmt.Errorf("market source is required")
	}

	clients := make(map[types.Protocol]Client, len(cfg.Clients))
	for _, c := range cfg.Clients {
		if c == nil {
			continue
		}
		clients[c.Protocol()] = c
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("at least one venue client is required")
	}

	pollInterval := cfg.FillPollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	pollTimeout := cfg.FillPollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 60 * time.Second
	}

	return &Executor{
		clients:      clients,
		markets:      cfg.Markets,
		breaker:      cfg.Breaker,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       cfg.Logger,
	}, nil
}

// leg is one side of the spread bound to its venue client.
type leg struct {
	client    Client
	protocol  types.Protocol
	market    types.VenueMarket
	tokenID   string
	outcome   string // YES or NO, for logs and metrics
	isYes     bool
	price     *big.Int
	liquidity *big.Int
	feeBps    int64
}

// legFill is the confirmed result of one placed leg.
type legFill struct {
	orderID string
	status  types.OrderStatus
	filled  *big.Int // 6-dp shares
	cost    *big.Int // 6-dp USDT at the limit price
}

// Execute runs the two-leg sequence for one opportunity. A non-nil
// error means nothing was placed; otherwise the Result classifies what
// happened, including stranded halves.
func (e *Executor) Execute(ctx context.Context, opp *types.ArbitOpportunity) (*Result, error) {
	if opp == nil {
		return nil, fmt.Errorf("opportunity is required")
	}
	if opp.Shares == nil || opp.Shares.Sign() <= 0 {
		return nil, fmt.Errorf("opportunity %s has no size", opp.ID)
	}
	if e.breaker != nil && !e.breaker.Allow() {
		BreakerRejectionsTotal.Inc()
		return nil, fmt.Errorf("execute %s: %w", opp.ID, ErrBreakerOpen)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	first, second, err := e.orderLegs(opp)
	if err != nil {
		return nil, fmt.Errorf("resolve legs for %s: %w", opp.MarketID, err)
	}

	start := time.Now()
	defer func() {
		ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	e.logger.Info("executing-spread",
		zap.String("opportunity_id", opp.ID),
		zap.String("fingerprint", opp.MarketID),
		zap.String("first_leg", fmt.Sprintf("%s %s", first.protocol, first.outcome)),
		zap.String("second_leg", fmt.Sprintf("%s %s", second.protocol, second.outcome)),
		zap.String("shares", types.FormatUsdt(opp.Shares)),
		zap.Int64("spread_bps", opp.SpreadBps))

	fill1, placeErr := e.placeLeg(ctx, first, opp.Shares)
	if placeErr != nil {
		e.logger.Error("leg-one-placement-failed",
			zap.String("opportunity_id", opp.ID),
			zap.String("venue", string(first.protocol)),
			zap.Error(placeErr))
		ExecutionsTotal.WithLabelValues(string(OutcomeAborted)).Inc()
		ExecutionErrorsTotal.Inc()

		return &Result{
			OpportunityID: opp.ID,
			Outcome:       OutcomeAborted,
			Err:           fmt.Errorf("place %s leg on %s: %w", first.outcome, first.protocol, placeErr),
			Duration:      time.Since(start),
		}, nil
	}

	if fill1.filled.Sign() == 0 {
		// IOC missed the book. Nothing at risk.
		e.logger.Info("leg-one-unfilled",
			zap.String("opportunity_id", opp.ID),
			zap.String("venue", string(first.protocol)),
			zap.String("order_id", fill1.orderID),
			zap.String("status", string(fill1.status)))
		ExecutionsTotal.WithLabelValues(string(OutcomeAborted)).Inc()

		return &Result{
			OpportunityID: opp.ID,
			Outcome:       OutcomeAborted,
			Duration:      time.Since(start),
		}, nil
	}

	if fill1.filled.Cmp(opp.Shares) < 0 {
		// Partial first leg: strand it rather than chase a hedge for an
		// odd lot. The position is surfaced for a later limit-sell.
		return e.strand(opp, first, fill1, second, legFill{filled: new(big.Int), cost: new(big.Int)},
			&types.PartialFillError{
				Protocol:  first.protocol,
				OrderID:   fill1.orderID,
				Requested: new(big.Int).Set(opp.Shares),
				Filled:    new(big.Int).Set(fill1.filled),
			}, start), nil
	}

	fill2, hedgeErr := e.placeLeg(ctx, second, fill1.filled)
	if hedgeErr != nil {
		return e.strand(opp, first, fill1, second, legFill{filled: new(big.Int), cost: new(big.Int)},
			fmt.Errorf("place %s leg on %s: %w", second.outcome, second.protocol, hedgeErr), start), nil
	}
	if fill2.filled.Cmp(fill1.filled) < 0 {
		return e.strand(opp, first, fill1, second, fill2,
			&types.PartialFillError{
				Protocol:  second.protocol,
				OrderID:   fill2.orderID,
				Requested: new(big.Int).Set(fill1.filled),
				Filled:    new(big.Int).Set(fill2.filled),
			}, start), nil
	}

	pos := e.buildPosition(opp, first, fill1, second, fill2)
	ExecutionsTotal.WithLabelValues(string(OutcomeCompleted)).Inc()

	e.logger.Info("spread-executed",
		zap.String("opportunity_id", opp.ID),
		zap.String("fingerprint", opp.MarketID),
		zap.String("first_order", fill1.orderID),
		zap.String("second_order", fill2.orderID),
		zap.String("cost_a", types.FormatUsdt(pos.CostA)),
		zap.String("cost_b", types.FormatUsdt(pos.CostB)),
		zap.String("est_profit", types.FormatUsdt(opp.EstProfit)),
		zap.Duration("took", time.Since(start)))

	return &Result{
		OpportunityID: opp.ID,
		Outcome:       OutcomeCompleted,
		Position:      pos,
		Duration:      time.Since(start),
	}, nil
}

// orderLegs binds both legs to their clients and puts the thinner book
// first.
func (e *Executor) orderLegs(opp *types.ArbitOpportunity) (*leg, *leg, error) {
	yes, err := e.buildLeg(opp, true)
	if err != nil {
		return nil, nil, err
	}
	no, err := e.buildLeg(opp, false)
	if err != nil {
		return nil, nil, err
	}

	if no.liquidity.Cmp(yes.liquidity) < 0 {
		return no, yes, nil
	}

	return yes, no, nil
}

func (e *Executor) buildLeg(opp *types.ArbitOpportunity, isYes bool) (*leg, error) {
	protocol := opp.ProtocolA
	if !isYes {
		protocol = opp.ProtocolB
	}

	client, ok := e.clients[protocol]
	if !ok {
		return nil, fmt.Errorf("no client for venue %s", protocol)
	}
	market, ok := e.markets.VenueMarket(opp.MarketID, protocol)
	if !ok {
		return nil, fmt.Errorf("no %s market for fingerprint %s", protocol, opp.MarketID)
	}

	l := &leg{
		client:   client,
		protocol: protocol,
		market:   market,
		isYes:    isYes,
	}
	if isYes {
		l.tokenID = market.YesTokenID
		l.outcome = "YES"
		l.price = opp.YesPriceA
		l.liquidity = opp.LiquidityA
		l.feeBps = opp.FeeBpsA
	} else {
		l.tokenID = market.NoTokenID
		l.outcome = "NO"
		l.price = opp.NoPriceB
		l.liquidity = opp.LiquidityB
		l.feeBps = opp.FeeBpsB
	}
	if l.tokenID == "" {
		return nil, fmt.Errorf("%s market %s has no %s token", protocol, market.MarketID, l.outcome)
	}

	return l, nil
}

// placeLeg submits one IOC buy and confirms its fill.
func (e *Executor) placeLeg(ctx context.Context, l *leg, shares *big.Int) (legFill, error) {
	params := &types.OrderParams{
		MarketID:   l.market.MarketID,
		TokenID:    l.tokenID,
		Side:       types.SideBuy,
		Price:      l.price,
		Shares:     shares,
		FeeRateBps: l.feeBps,
		Strategy:   types.StrategyIOC,
	}

	res, err := l.client.PlaceOrder(ctx, params)
	if err != nil {
		LegFailuresTotal.WithLabelValues(string(l.protocol), l.outcome).Inc()
		return legFill{}, err
	}

	fill := legFill{orderID: res.OrderID, status: res.Status, filled: new(big.Int)}
	switch res.Status {
	case types.OrderFilled:
		if res.FilledShares != nil {
			fill.filled.Set(res.FilledShares)
		} else {
			// Ack without a fill size; the venue reports full fills this way.
			fill.filled.Set(shares)
		}
	case types.OrderCancelled, types.OrderExpired:
		if res.FilledShares != nil {
			fill.filled.Set(res.FilledShares)
		}
	default:
		fill.filled, fill.status = e.awaitFill(ctx, l, res.OrderID, shares)
	}

	fill.cost = types.NotionalUsdt(l.price, fill.filled)
	LegsPlacedTotal.WithLabelValues(string(l.protocol), l.outcome).Inc()

	return fill, nil
}

// strand records a one-sided position, feeds the loss meter, and
// assembles the stranded result.
func (e *Executor) strand(opp *types.ArbitOpportunity, first *leg, fill1 legFill, second *leg, fill2 legFill, cause error, start time.Time) *Result {
	pos := e.buildPosition(opp, first, fill1, second, fill2)

	unhedged := new(big.Int).Sub(fill1.filled, fill2.filled)
	loss := types.NotionalUsdt(first.price, unhedged)
	if loss.Sign() > 0 && e.breaker != nil {
		e.breaker.RecordLoss(loss)
	}

	StrandedLegsTotal.Inc()
	ExecutionsTotal.WithLabelValues(string(OutcomeStranded)).Inc()
	ExecutionErrorsTotal.Inc()
	LossesRecordedUsdt.Add(usdtApprox(loss))

	e.logger.Warn("stranded-position",
		zap.String("opportunity_id", opp.ID),
		zap.String("fingerprint", opp.MarketID),
		zap.String("held_venue", string(first.protocol)),
		zap.String("held_outcome", first.outcome),
		zap.String("held_shares", types.FormatUsdt(fill1.filled)),
		zap.String("hedged_shares", types.FormatUsdt(fill2.filled)),
		zap.String("loss_recorded", types.FormatUsdt(loss)),
		zap.Error(cause))

	return &Result{
		OpportunityID: opp.ID,
		Outcome:       OutcomeStranded,
		Position:      pos,
		LossRecorded:  loss,
		Err:           cause,
		Duration:      time.Since(start),
	}
}

// buildPosition maps leg fills back onto the opportunity's A/B slots:
// slot A always holds the YES leg regardless of execution order.
func (e *Executor) buildPosition(opp *types.ArbitOpportunity, first *leg, fill1 legFill, second *leg, fill2 legFill) *types.Position {
	yesFill, noFill := fill1, fill2
	if !first.isYes {
		yesFill, noFill = fill2, fill1
	}

	return &types.Position{
		ID:           uuid.NewString(),
		MarketID:     opp.MarketID,
		ProtocolA:    opp.ProtocolA,
		ProtocolB:    opp.ProtocolB,
		BoughtYesOnA: opp.BuyYesOnA,
		SharesA:      new(big.Int).Set(yesFill.filled),
		SharesB:      new(big.Int).Set(noFill.filled),
		CostA:        new(big.Int).Set(yesFill.cost),
		CostB:        new(big.Int).Set(noFill.cost),
		OpenedAt:     time.Now().UnixMilli(),
		Closed:       false,
	}
}

// usdtApprox converts a 6-dp amount to a float for metrics only.
func usdtApprox(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()

	return f / 1e6
}
