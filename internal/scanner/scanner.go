// Package scanner turns stored quotes into ranked, sized, executable
// spread opportunities.
package scanner

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/quotes"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Config holds scanner configuration.
type Config struct {
	MinSpreadBps    int64
	MaxSpreadBps    int64
	MinFillUsdt     *big.Int // 6-dp floor for the thinner leg
	MaxPositionSize *big.Int // 6-dp USDT budget per opportunity
	Freshness       time.Duration
	Logger          *zap.Logger
}

// Scanner reads the quote store and emits opportunities. It holds no
// venue connections; everything it needs arrives through the store.
type Scanner struct {
	store           *quotes.Store
	minSpreadBps    int64
	maxSpreadBps    int64
	minFillUsdt     *big.Int
	maxPositionSize *big.Int
	freshness       time.Duration
	logger          *zap.Logger

	mu       sync.RWMutex
	polarity map[string]bool
}

// New creates a scanner over the given store.
func New(cfg *Config, store *quotes.Store) (*Scanner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if store == nil {
		return nil, fmt.Errorf("quote store is required")
	}

	minFill := cfg.MinFillUsdt
	if minFill == nil {
		minFill = types.UsdtOne()
	}
	maxPosition := cfg.MaxPositionSize
	if maxPosition == nil {
		maxPosition = big.NewInt(500_000_000)
	}
	maxSpread := cfg.MaxSpreadBps
	if maxSpread <= 0 {
		maxSpread = 10_000
	}
	freshness := cfg.Freshness
	if freshness <= 0 {
		freshness = 30 * time.Second
	}

	return &Scanner{
		store:           store,
		minSpreadBps:    cfg.MinSpreadBps,
		maxSpreadBps:    maxSpread,
		minFillUsdt:     minFill,
		maxPositionSize: maxPosition,
		freshness:       freshness,
		logger:          cfg.Logger,
		polarity:        map[string]bool{},
	}, nil
}

// SetPolarity replaces the fingerprint polarity table published by
// discovery. Purely informational on the emitted opportunities.
func (s *Scanner) SetPolarity(table map[string]bool) {
	next := make(map[string]bool, len(table))
	for fp, flipped := range table {
		next[fp] = flipped
	}

	s.mu.Lock()
	s.polarity = next
	s.mu.Unlock()
}

func (s *Scanner) polarityFor(fingerprint string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.polarity[fingerprint]
}

// Scan evaluates every market with at least two fresh venue quotes and
// returns opportunities ranked best first.
func (s *Scanner) Scan() []types.ArbitOpportunity {
	start := time.Now()
	now := start.UnixMilli()
	snapshot := s.store.Snapshot()

	fingerprints := make([]string, 0, len(snapshot))
	for fp := range snapshot {
		fingerprints = append(fingerprints, fp)
	}
	sort.Strings(fingerprints)

	var out []types.ArbitOpportunity
	for _, fp := range fingerprints {
		fresh := s.freshQuotes(snapshot[fp], now)
		if len(fresh) < 2 {
			continue
		}

		for _, pair := range venuePairs(fresh) {
			if opp := s.evaluatePair(fp, pair[0], pair[1]); opp != nil {
				out = append(out, *opp)
			}
		}
	}

	rank(out)

	ScansTotal.Inc()
	ScanDuration.Observe(time.Since(start).Seconds())
	OpportunitiesFound.Add(float64(len(out)))
	if len(out) > 0 {
		best := &out[0]
		s.logger.Info("spread-detected",
			zap.String("fingerprint", best.MarketID),
			zap.Int64("spread_bps", best.SpreadBps),
			zap.String("est_profit", types.FormatUsdt(best.EstProfit)),
			zap.Int("candidates", len(out)))
	}

	return out
}

func (s *Scanner) freshQuotes(byVenue map[types.Protocol]*types.MarketQuote, now int64) map[types.Protocol]*types.MarketQuote {
	fresh := make(map[types.Protocol]*types.MarketQuote, len(byVenue))
	for protocol, q := range byVenue {
		if now-q.QuotedAt > s.freshness.Milliseconds() {
			RejectedTotal.WithLabelValues("stale").Inc()
			continue
		}
		fresh[protocol] = q
	}

	return fresh
}

// venuePairs enumerates unordered venue pairs in the fixed protocol
// order so scans are deterministic.
func venuePairs(fresh map[types.Protocol]*types.MarketQuote) [][2]*types.MarketQuote {
	ordered := make([]*types.MarketQuote, 0, len(fresh))
	for _, protocol := range types.AllProtocols() {
		if q, ok := fresh[protocol]; ok {
			ordered = append(ordered, q)
		}
	}

	var pairs [][2]*types.MarketQuote
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			pairs = append(pairs, [2]*types.MarketQuote{ordered[i], ordered[j]})
		}
	}

	return pairs
}

// candidate is one directed buy: YES on yes.Protocol, NO on no.Protocol.
type candidate struct {
	yes       *types.MarketQuote
	no        *types.MarketQuote
	buyYesOnA bool
	totalCost *big.Int
	grossBps  int64
	netBps    int64
}

func newCandidate(yes, no *types.MarketQuote, buyYesOnA bool) *candidate {
	totalCost := new(big.Int).Add(yes.YesPrice, no.NoPrice)
	if totalCost.Cmp(types.PriceOne()) >= 0 {
		return nil
	}

	gross := types.SpreadBps(new(big.Int).Sub(types.PriceOne(), totalCost))

	return &candidate{
		yes:       yes,
		no:        no,
		buyYesOnA: buyYesOnA,
		totalCost: totalCost,
		grossBps:  gross,
		netBps:    gross - yes.FeeBps - no.FeeBps,
	}
}

// evaluatePair prices both directions of one venue pair and sizes the
// better one, or returns nil when no direction survives the filters.
func (s *Scanner) evaluatePair(fingerprint string, qA, qB *types.MarketQuote) *types.ArbitOpportunity {
	best := newCandidate(qA, qB, true)
	if reverse := newCandidate(qB, qA, false); reverse != nil {
		if best == nil || reverse.netBps > best.netBps {
			best = reverse
		}
	}
	if best == nil {
		RejectedTotal.WithLabelValues("no-edge").Inc()
		return nil
	}

	if best.netBps < s.minSpreadBps {
		RejectedTotal.WithLabelValues("below-min-spread").Inc()
		return nil
	}
	if best.netBps > s.maxSpreadBps {
		RejectedTotal.WithLabelValues("above-max-spread").Inc()
		return nil
	}

	liqYes := best.yes.YesLiquidity
	liqNo := best.no.NoLiquidity
	minLiq := types.MinBig(liqYes, liqNo)
	if minLiq.Cmp(s.minFillUsdt) < 0 {
		RejectedTotal.WithLabelValues("thin-fill").Inc()
		return nil
	}

	maxPrice := best.yes.YesPrice
	if best.no.NoPrice.Cmp(maxPrice) > 0 {
		maxPrice = best.no.NoPrice
	}
	maxShares := types.SharesForNotional(minLiq, maxPrice)
	budgetShares := types.SharesForNotional(s.maxPositionSize, best.totalCost)
	shares := types.MinBig(maxShares, budgetShares)
	if shares.Sign() <= 0 {
		RejectedTotal.WithLabelValues("zero-size").Inc()
		return nil
	}

	feesDeducted := types.BpsToPrice(best.yes.FeeBps + best.no.FeeBps)
	netEdge := new(big.Int).Sub(types.PriceOne(), best.totalCost)
	netEdge.Sub(netEdge, feesDeducted)
	estProfit := types.NotionalUsdt(netEdge, shares)
	if estProfit.Sign() < 0 {
		RejectedTotal.WithLabelValues("rounding-edge").Inc()
		return nil
	}

	quotedAt := best.yes.QuotedAt
	if best.no.QuotedAt < quotedAt {
		quotedAt = best.no.QuotedAt
	}

	NetSpreadBps.Observe(float64(best.netBps))
	OpportunitySizeUsdt.Observe(usdtApprox(estProfit))

	title := best.yes.Title
	if title == "" {
		title = best.no.Title
	}

	return &types.ArbitOpportunity{
		ID:             uuid.NewString(),
		MarketID:       fingerprint,
		Title:          title,
		ProtocolA:      best.yes.Protocol,
		ProtocolB:      best.no.Protocol,
		BuyYesOnA:      best.buyYesOnA,
		YesPriceA:      new(big.Int).Set(best.yes.YesPrice),
		NoPriceB:       new(big.Int).Set(best.no.NoPrice),
		TotalCost:      best.totalCost,
		GrossSpreadBps: best.grossBps,
		SpreadBps:      best.netBps,
		FeeBpsA:        best.yes.FeeBps,
		FeeBpsB:        best.no.FeeBps,
		FeesDeducted:   feesDeducted,
		Shares:         shares,
		EstProfit:      estProfit,
		LiquidityA:     new(big.Int).Set(liqYes),
		LiquidityB:     new(big.Int).Set(liqNo),
		PolarityFlip:   s.polarityFor(fingerprint),
		QuotedAt:       quotedAt,
	}
}

// usdtApprox converts a 6-dp amount to a float for metrics only.
func usdtApprox(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()

	return f / 1e6
}

// rank orders opportunities by estimated profit, then spread, then
// quote recency.
func rank(opps []types.ArbitOpportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if c := opps[i].EstProfit.Cmp(opps[j].EstProfit); c != 0 {
			return c > 0
		}
		if opps[i].SpreadBps != opps[j].SpreadBps {
			return opps[i].SpreadBps > opps[j].SpreadBps
		}

		return opps[i].QuotedAt > opps[j].QuotedAt
	})
}
