package quotes

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Store keeps the latest quote per market and venue. Writers race
// freely; an older quote never replaces a fresher one. Readers get
// clones, so nothing they do can corrupt shared big.Int state.
type Store struct {
	mu     sync.RWMutex
	quotes map[string]map[types.Protocol]*types.MarketQuote
	logger *zap.Logger
}

// NewStore creates an empty quote store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		quotes: map[string]map[types.Protocol]*types.MarketQuote{},
		logger: logger,
	}
}

// Put upserts a provider batch, last writer by QuotedAt winning.
func (s *Store) Put(batch []types.MarketQuote) {
	if len(batch) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range batch {
		q := &batch[i]

		byVenue, ok := s.quotes[q.MarketID]
		if !ok {
			byVenue = map[types.Protocol]*types.MarketQuote{}
			s.quotes[q.MarketID] = byVenue
		}

		current := byVenue[q.Protocol]
		if current != nil && !q.FresherThan(current) {
			StaleWritesTotal.Inc()
			continue
		}

		byVenue[q.Protocol] = q.Clone()
	}

	StoredQuotes.Set(float64(s.countLocked()))
}

// Get returns clones of every venue quote held for one market.
func (s *Store) Get(marketID string) map[types.Protocol]*types.MarketQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byVenue, ok := s.quotes[marketID]
	if !ok {
		return nil
	}

	out := make(map[types.Protocol]*types.MarketQuote, len(byVenue))
	for protocol, q := range byVenue {
		out[protocol] = q.Clone()
	}

	return out
}

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() map[string]map[types.Protocol]*types.MarketQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[types.Protocol]*types.MarketQuote, len(s.quotes))
	for marketID, byVenue := range s.quotes {
		venues := make(map[types.Protocol]*types.MarketQuote, len(byVenue))
		for protocol, q := range byVenue {
			venues[protocol] = q.Clone()
		}
		out[marketID] = venues
	}

	return out
}

// MarketIDs returns the stored market fingerprints in sorted order.
func (s *Store) MarketIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.quotes))
	for id := range s.quotes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// Count returns the number of stored quotes across all venues.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.countLocked()
}

func (s *Store) countLocked() int {
	n := 0
	for _, byVenue := range s.quotes {
		n += len(byVenue)
	}

	return n
}
