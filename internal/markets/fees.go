// Package markets resolves the fee schedule a trade leg settles under.
// Every venue publishes a flat baseline; individual markets can carry
// an override, fetched lazily from the venue catalog and cached.
package markets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/cache"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Fetcher is the single catalog read the fee service needs from a
// venue client: one market row plus its fee schedule.
type Fetcher interface {
	GetMarket(ctx context.Context, marketID string) (*types.DiscoveredMarket, int64, error)
}

// Venue-wide taker fees in basis points.
var baselineFees = map[types.Protocol]int64{
	types.ProtocolPredict:  200,
	types.ProtocolProbable: 175,
	types.ProtocolOpinion:  200,
}

// BaselineFee returns the venue-wide taker fee in basis points. Unknown
// venues price at zero.
func BaselineFee(protocol types.Protocol) int64 {
	return baselineFees[protocol]
}

// Config holds fee service configuration.
type Config struct {
	Fetchers map[types.Protocol]Fetcher
	Cache    cache.Cache
	TTL      time.Duration
	Logger   *zap.Logger
}

// FeeService resolves the fee for one leg. Resolution order: explicit
// per-market override, cached venue value, live venue fetch, venue
// baseline. A fetch failure never blocks quoting.
type FeeService struct {
	fetchers map[types.Protocol]Fetcher
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewFeeService creates a fee service.
func NewFeeService(cfg *Config) (*FeeService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &FeeService{
		fetchers: cfg.Fetchers,
		cache:    cfg.Cache,
		ttl:      ttl,
		logger:   cfg.Logger,
	}, nil
}

// FeeBps resolves the fee for one leg. override carries the operator
// supplied value from the market map, zero meaning none.
func (s *FeeService) FeeBps(ctx context.Context, protocol types.Protocol, marketID string, override int64) int64 {
	if override > 0 {
		return override
	}

	if fee, ok := s.cached(protocol, marketID); ok {
		FeeCacheHitsTotal.Inc()
		return fee
	}
	FeeCacheMissesTotal.Inc()

	fee, err := s.fetch(ctx, protocol, marketID)
	if err != nil {
		FeeFetchErrorsTotal.Inc()
		s.logger.Debug("fee-fetch-failed",
			zap.String("protocol", string(protocol)),
			zap.String("market_id", marketID),
			zap.Error(err))
		return BaselineFee(protocol)
	}

	return fee
}

// SetOverride pins a fee without a venue fetch. Discovery seeds this
// from operator-supplied market maps so injected markets never hit the
// catalog.
func (s *FeeService) SetOverride(protocol types.Protocol, marketID string, feeBps int64) {
	if s.cache == nil || feeBps <= 0 {
		return
	}

	s.cache.Set(feeKey(protocol, marketID), feeBps, s.ttl)
}

func feeKey(protocol types.Protocol, marketID string) string {
	return "fee:" + string(protocol) + ":" + marketID
}

func (s *FeeService) cached(protocol types.Protocol, marketID string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}

	value, ok := s.cache.Get(feeKey(protocol, marketID))
	if !ok {
		return 0, false
	}

	fee, ok := value.(int64)

	return fee, ok
}

func (s *FeeService) fetch(ctx context.Context, protocol types.Protocol, marketID string) (int64, error) {
	fetcher, ok := s.fetchers[protocol]
	if !ok {
		return 0, fmt.Errorf("no catalog fetcher for %s", protocol)
	}

	start := time.Now()
	_, fee, err := fetcher.GetMarket(ctx, marketID)
	FeeFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, err
	}

	// A venue that reports no schedule trades at its baseline.
	if fee <= 0 {
		fee = BaselineFee(protocol)
	}

	if s.cache != nil {
		s.cache.Set(feeKey(protocol, marketID), fee, s.ttl)
	}

	return fee, nil
}
