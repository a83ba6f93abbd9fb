// Package discovery assembles the tradeable cross-venue market set.
// Each refresh lists every venue catalog, filters to binary Yes/No
// markets, pairs equivalent markets across venues, and publishes
// immutable per-venue maps keyed by a shared pair fingerprint.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/matching"
	"github.com/vaibhav0806/prophit-sub001/pkg/cache"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// DefaultRefreshInterval is how often the catalog pipeline reruns.
const DefaultRefreshInterval = 5 * time.Minute

// pairCacheTTL keeps resolved pairs addressable after a market leaves
// the live snapshot, long enough for dashboard and CLI lookups.
const pairCacheTTL = 24 * time.Hour

// Catalog is one venue's market listing surface.
type Catalog interface {
	Protocol() types.Protocol
	ListMarkets(ctx context.Context) ([]types.DiscoveredMarket, error)
}

// StaticMaps carries operator-supplied market maps used in place of the
// catalog pipeline when auto-discovery is off.
type StaticMaps struct {
	Predict  map[string]types.VenueMarket
	Probable map[string]types.VenueMarket
	Opinion  map[string]types.VenueMarket
}

// Result is one refresh's output: per-venue market maps keyed by pair
// fingerprint plus the polarity table the scanner consumes. A published
// Result is read-only; each refresh builds a fresh one and swaps it in
// whole.
type Result struct {
	Predict     map[string]types.VenueMarket
	Probable    map[string]types.VenueMarket
	Opinion     map[string]types.VenueMarket
	Polarity    map[string]bool
	Pairs       []types.MatchResult
	RefreshedAt time.Time
}

// Venue returns the market map for one venue. Callers must not mutate
// the returned map.
func (r *Result) Venue(p types.Protocol) map[string]types.VenueMarket {
	switch p {
	case types.ProtocolPredict:
		return r.Predict
	case types.ProtocolProbable:
		return r.Probable
	case types.ProtocolOpinion:
		return r.Opinion
	}

	return nil
}

func (r *Result) setVenue(p types.Protocol, fingerprint string, m types.VenueMarket) {
	if venue := r.Venue(p); venue != nil {
		venue[fingerprint] = m
	}
}

// Legs returns the venue legs published for a fingerprint, in the fixed
// venue order.
func (r *Result) Legs(fingerprint string) []types.VenueMarket {
	var legs []types.VenueMarket
	for _, p := range types.AllProtocols() {
		if m, ok := r.Venue(p)[fingerprint]; ok {
			legs = append(legs, m)
		}
	}

	return legs
}

// Fingerprints returns every fingerprint present on at least one venue,
// sorted for deterministic iteration.
func (r *Result) Fingerprints() []string {
	set := make(map[string]struct{})
	for _, p := range types.AllProtocols() {
		for fp := range r.Venue(p) {
			set[fp] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for fp := range set {
		out = append(out, fp)
	}
	sort.Strings(out)

	return out
}

// Config holds discovery service configuration.
type Config struct {
	Catalogs        []Catalog
	Matcher         *matching.Engine
	RefreshInterval time.Duration
	Cache           cache.Cache
	AutoDiscover    bool
	Static          *StaticMaps
	Logger          *zap.Logger
}

// Service runs the discovery pipeline and owns the live snapshot.
type Service struct {
	catalogs        []Catalog
	matcher         *matching.Engine
	refreshInterval time.Duration
	cache           cache.Cache
	autoDiscover    bool
	logger          *zap.Logger

	mu     sync.RWMutex
	result *Result
}

// New creates a discovery service. With auto-discovery off the static
// maps become the only snapshot the service ever publishes.
func New(cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.AutoDiscover {
		if len(cfg.Catalogs) < 2 {
			return nil, fmt.Errorf("auto-discovery requires at least two catalogs")
		}
		if cfg.Matcher == nil {
			return nil, fmt.Errorf("matcher cannot be nil")
		}
	} else if cfg.Static == nil {
		return nil, fmt.Errorf("static maps are required when auto-discovery is off")
	}

	s := &Service{
		catalogs:        cfg.Catalogs,
		matcher:         cfg.Matcher,
		refreshInterval: cfg.RefreshInterval,
		cache:           cfg.Cache,
		autoDiscover:    cfg.AutoDiscover,
		logger:          cfg.Logger,
	}
	if s.refreshInterval <= 0 {
		s.refreshInterval = DefaultRefreshInterval
	}

	if !cfg.AutoDiscover {
		s.publish(staticResult(cfg.Static))
	}

	return s, nil
}

// Run refreshes the snapshot on the configured interval until ctx is
// cancelled. With auto-discovery off the static snapshot is already
// live, so Run only waits for shutdown.
func (s *Service) Run(ctx context.Context) error {
	if !s.autoDiscover {
		s.logger.Info("discovery-static-mode",
			zap.Int("fingerprints", len(s.Snapshot().Fingerprints())))
		<-ctx.Done()

		return ctx.Err()
	}

	s.logger.Info("discovery-service-starting",
		zap.Duration("refresh-interval", s.refreshInterval),
		zap.Int("catalogs", len(s.catalogs)))

	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("initial-refresh-failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("discovery-service-stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("refresh-failed", zap.Error(err))
			}
		}
	}
}

// Refresh reruns the catalog pipeline and publishes a new snapshot. A
// venue that fails to list contributes an empty catalog; only when every
// venue fails is the previous snapshot kept and an error returned.
func (s *Service) Refresh(ctx context.Context) error {
	if !s.autoDiscover {
		return nil
	}

	start := time.Now()
	defer func() {
		RefreshDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	lists, failures := s.fetchCatalogs(ctx)
	if failures == len(s.catalogs) {
		RefreshErrorsTotal.Inc()
		return fmt.Errorf("all %d venue catalogs failed", len(s.catalogs))
	}

	result := s.assemble(lists)
	s.publish(result)
	s.cachePairs(result)

	s.logger.Info("discovery-refreshed",
		zap.Int("predict-markets", len(result.Predict)),
		zap.Int("probable-markets", len(result.Probable)),
		zap.Int("opinion-markets", len(result.Opinion)),
		zap.Int("pairs", len(result.Pairs)),
		zap.Int("venue-failures", failures),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// fetchCatalogs lists every venue concurrently. A failed venue degrades
// to an empty catalog so the remaining venues still pair.
func (s *Service) fetchCatalogs(ctx context.Context) (map[types.Protocol][]types.DiscoveredMarket, int) {
	type fetched struct {
		protocol types.Protocol
		markets  []types.DiscoveredMarket
		err      error
	}

	results := make([]fetched, len(s.catalogs))
	var wg sync.WaitGroup
	for i, cat := range s.catalogs {
		wg.Add(1)
		go func(i int, cat Catalog) {
			defer wg.Done()
			markets, err := cat.ListMarkets(ctx)
			results[i] = fetched{protocol: cat.Protocol(), markets: markets, err: err}
		}(i, cat)
	}
	wg.Wait()

	lists := make(map[types.Protocol][]types.DiscoveredMarket, len(results))
	failures := 0
	for _, r := range results {
		if r.err != nil {
			failures++
			CatalogErrorsTotal.WithLabelValues(string(r.protocol)).Inc()
			s.logger.Warn("venue-catalog-failed",
				zap.String("venue", string(r.protocol)),
				zap.Error(r.err))
			lists[r.protocol] = nil
			continue
		}

		kept := binaryMarkets(r.markets, r.protocol, s.logger)
		kept = dedupeByID(kept, r.protocol)
		CatalogMarketsTotal.WithLabelValues(string(r.protocol)).Add(float64(len(kept)))
		lists[r.protocol] = kept
	}

	return lists, failures
}

func (s *Service) publish(result *Result) {
	s.mu.Lock()
	s.result = result
	s.mu.Unlock()

	TrackedFingerprints.Set(float64(len(result.Fingerprints())))
}

// Snapshot returns the live result. Nil until the first successful
// refresh in auto-discovery mode.
func (s *Service) Snapshot() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.result
}

// VenueMarket resolves one venue's leg of a fingerprint from the live
// snapshot. It satisfies the executor's market source.
func (s *Service) VenueMarket(fingerprint string, protocol types.Protocol) (types.VenueMarket, bool) {
	result := s.Snapshot()
	if result == nil {
		return types.VenueMarket{}, false
	}

	m, ok := result.Venue(protocol)[fingerprint]

	return m, ok
}

// Polarity returns the fingerprint polarity table of the live snapshot.
// Callers must not mutate the returned map.
func (s *Service) Polarity() map[string]bool {
	result := s.Snapshot()
	if result == nil {
		return nil
	}

	return result.Polarity
}

// Pair returns every venue leg known for a fingerprint. Recently
// delisted pairs still resolve from cache for a day.
func (s *Service) Pair(fingerprint string) []types.VenueMarket {
	if result := s.Snapshot(); result != nil {
		if legs := result.Legs(fingerprint); len(legs) > 0 {
			return legs
		}
	}

	if s.cache == nil {
		return nil
	}
	value, found := s.cache.Get(pairKey(fingerprint))
	if !found {
		return nil
	}
	legs, ok := value.([]types.VenueMarket)
	if !ok {
		s.logger.Warn("invalid-pair-type-in-cache",
			zap.String("fingerprint", fingerprint))
		return nil
	}

	return legs
}

// cachePairs stores each fingerprint's legs for lookup after delisting.
func (s *Service) cachePairs(result *Result) {
	if s.cache == nil {
		return
	}

	for _, fp := range result.Fingerprints() {
		if !s.cache.Set(pairKey(fp), result.Legs(fp), pairCacheTTL) {
			s.logger.Warn("failed-to-cache-pair", zap.String("fingerprint", fp))
		}
	}
}

func pairKey(fingerprint string) string {
	return "pair:" + fingerprint
}

// staticResult builds a snapshot from operator-supplied maps. Polarity
// follows the PolarityFlipped markers on the injected legs.
func staticResult(static *StaticMaps) *Result {
	result := &Result{
		Predict:     copyVenueMap(static.Predict),
		Probable:    copyVenueMap(static.Probable),
		Opinion:     copyVenueMap(static.Opinion),
		Polarity:    make(map[string]bool),
		RefreshedAt: time.Now().UTC(),
	}

	for _, p := range types.AllProtocols() {
		for fp, m := range result.Venue(p) {
			result.Polarity[fp] = result.Polarity[fp] || m.PolarityFlipped
		}
	}

	return result
}

func copyVenueMap(in map[string]types.VenueMarket) map[string]types.VenueMarket {
	out := make(map[string]types.VenueMarket, len(in))
	for fp, m := range in {
		out[fp] = m
	}

	return out
}
