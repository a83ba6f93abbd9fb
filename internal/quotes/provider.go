// Package quotes polls venue order books into point-in-time market
// quotes and keeps the freshest quote per market and venue.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/vaibhav0806/prophit-sub001/internal/markets"
	"github.com/vaibhav0806/prophit-sub001/internal/venues"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

const (
	defaultMaxInFlight = 10
	defaultCallTimeout = 5 * time.Second
)

// BookSource fetches one book by a venue-specific key. Predict keys
// books by market id, Opinion by outcome token id.
type BookSource interface {
	FetchOrderBook(ctx context.Context, key string) (*venues.Book, error)
}

// TokenBookSource fetches one book per outcome token.
type TokenBookSource interface {
	FetchBook(ctx context.Context, tokenID string) (*venues.Book, error)
}

// FeeResolver supplies the fee a market trades under.
type FeeResolver interface {
	FeeBps(ctx context.Context, protocol types.Protocol, marketID string, override int64) int64
}

// fetchFunc returns the canonical YES book and, on venues serving one
// book per token, the NO book. A nil NO book means the NO side prices
// by complement off the YES book.
type fetchFunc func(ctx context.Context, market types.VenueMarket) (yes, no *venues.Book, err error)

// Config holds provider configuration.
type Config struct {
	Fees         FeeResolver
	MaxInFlight  int64
	CallTimeout  time.Duration
	MinLiquidity *big.Int // 6-dp USDT floor per side, default 1 USDT
	Window       *big.Int // price distance from the touch counted as depth, default 0.02
	Logger       *zap.Logger
}

// Provider polls the order books of every market assigned to one venue
// and derives quotes. Markets the venue reports gone are moved to a
// dead set and not polled again while assigned.
type Provider struct {
	protocol     types.Protocol
	fetch        fetchFunc
	fees         FeeResolver
	maxInFlight  int64
	callTimeout  time.Duration
	minLiquidity *big.Int
	window       *big.Int
	logger       *zap.Logger

	// complement books are market-keyed on this venue, so a polarity
	// flip must swap the composed sides instead of the token ids
	flipComplement bool

	mu       sync.Mutex
	assigned map[string]types.VenueMarket
	dead     map[string]struct{}
}

func newProvider(protocol types.Protocol, fetch fetchFunc, flipComplement bool, cfg *Config) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	minLiquidity := cfg.MinLiquidity
	if minLiquidity == nil {
		minLiquidity = big.NewInt(1_000_000)
	}
	window := cfg.Window
	if window == nil {
		window = types.BpsToPrice(200)
	}

	return &Provider{
		protocol:       protocol,
		fetch:          fetch,
		fees:           cfg.Fees,
		maxInFlight:    maxInFlight,
		callTimeout:    callTimeout,
		minLiquidity:   minLiquidity,
		window:         window,
		logger:         cfg.Logger,
		flipComplement: flipComplement,
		assigned:       map[string]types.VenueMarket{},
		dead:           map[string]struct{}{},
	}, nil
}

// NewPredictProvider polls one YES book per market and prices the NO
// side by complement.
func NewPredictProvider(books BookSource, cfg *Config) (*Provider, error) {
	fetch := func(ctx context.Context, m types.VenueMarket) (*venues.Book, *venues.Book, error) {
		book, err := books.FetchOrderBook(ctx, m.MarketID)
		return book, nil, err
	}

	return newProvider(types.ProtocolPredict, fetch, true, cfg)
}

// NewProbableProvider polls both outcome books; each side prices on its
// own asks. Token ids arrive polarity-normalized from discovery.
func NewProbableProvider(books TokenBookSource, cfg *Config) (*Provider, error) {
	fetch := func(ctx context.Context, m types.VenueMarket) (*venues.Book, *venues.Book, error) {
		yes, err := books.FetchBook(ctx, m.YesTokenID)
		if err != nil {
			return nil, nil, err
		}
		no, err := books.FetchBook(ctx, m.NoTokenID)
		if err != nil {
			return nil, nil, err
		}

		return yes, no, nil
	}

	return newProvider(types.ProtocolProbable, fetch, false, cfg)
}

// NewOpinionProvider polls the canonical YES token's book and prices
// the NO side by complement. Token ids arrive polarity-normalized, so
// no side swap is ever needed here.
func NewOpinionProvider(books BookSource, cfg *Config) (*Provider, error) {
	fetch := func(ctx context.Context, m types.VenueMarket) (*venues.Book, *venues.Book, error) {
		book, err := books.FetchOrderBook(ctx, m.YesTokenID)
		return book, nil, err
	}

	return newProvider(types.ProtocolOpinion, fetch, false, cfg)
}

// Protocol identifies the venue this provider polls.
func (p *Provider) Protocol() types.Protocol { return p.protocol }

// SetMarkets replaces the polling assignment. Dead entries for markets
// no longer assigned are dropped; a re-listed fingerprint polls again.
func (p *Provider) SetMarkets(assignment map[string]types.VenueMarket) {
	next := make(map[string]types.VenueMarket, len(assignment))
	for fp, m := range assignment {
		next[fp] = m
	}

	p.mu.Lock()
	p.assigned = next
	for fp := range p.dead {
		if _, ok := next[fp]; !ok {
			delete(p.dead, fp)
		}
	}
	DeadMarkets.WithLabelValues(string(p.protocol)).Set(float64(len(p.dead)))
	p.mu.Unlock()
}

func (p *Provider) snapshotAssignment() (map[string]types.VenueMarket, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	live := make(map[string]types.VenueMarket, len(p.assigned))
	for fp, m := range p.assigned {
		if _, gone := p.dead[fp]; gone {
			SkippedTotal.WithLabelValues(string(p.protocol), "dead").Inc()
			continue
		}
		live[fp] = m
	}

	fingerprints := make([]string, 0, len(live))
	for fp := range live {
		fingerprints = append(fingerprints, fp)
	}
	sort.Strings(fingerprints)

	return live, fingerprints
}

func (p *Provider) markDead(fingerprint string) {
	p.mu.Lock()
	p.dead[fingerprint] = struct{}{}
	DeadMarkets.WithLabelValues(string(p.protocol)).Set(float64(len(p.dead)))
	p.mu.Unlock()

	p.logger.Info("quote-market-dead",
		zap.String("venue", string(p.protocol)),
		zap.String("fingerprint", fingerprint))
}

// FetchQuotes polls every assigned market, bounded by the in-flight
// limit, and returns the quotes that priced cleanly on both sides.
func (p *Provider) FetchQuotes(ctx context.Context) []types.MarketQuote {
	assignment, fingerprints := p.snapshotAssignment()

	var (
		mu  sync.Mutex
		out []types.MarketQuote
		wg  sync.WaitGroup
	)
	sem := semaphore.NewWeighted(p.maxInFlight)

	for _, fp := range fingerprints {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(fingerprint string, market types.VenueMarket) {
			defer wg.Done()
			defer sem.Release(1)

			quote := p.quoteOne(ctx, fingerprint, market)
			if quote == nil {
				return
			}

			mu.Lock()
			out = append(out, *quote)
			mu.Unlock()
		}(fp, assignment[fp])
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })

	return out
}

func (p *Provider) quoteOne(ctx context.Context, fingerprint string, market types.VenueMarket) *types.MarketQuote {
	label := string(p.protocol)

	cctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	start := time.Now()
	yesBook, noBook, err := p.fetch(cctx, market)
	FetchDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	FetchesTotal.WithLabelValues(label).Inc()

	switch {
	case errors.Is(err, venues.ErrNotFound):
		p.markDead(fingerprint)
		return nil
	case err != nil:
		FetchErrorsTotal.WithLabelValues(label).Inc()
		p.logger.Warn("quote-fetch-failed",
			zap.String("venue", label),
			zap.String("fingerprint", fingerprint),
			zap.Error(err))
		return nil
	}

	quote, skip := p.composeQuote(fingerprint, market, yesBook, noBook)
	if quote == nil {
		SkippedTotal.WithLabelValues(label, skip).Inc()
		p.logger.Debug("quote-skipped",
			zap.String("venue", label),
			zap.String("fingerprint", fingerprint),
			zap.String("reason", skip))
		return nil
	}

	quote.FeeBps = p.resolveFee(ctx, market)

	return quote
}

type side struct {
	price     *big.Int
	liquidity *big.Int
}

// composeQuote prices both outcomes from the fetched books. A market
// that cannot price or cover the liquidity floor on both sides yields
// no quote.
func (p *Provider) composeQuote(fingerprint string, market types.VenueMarket, yesBook, noBook *venues.Book) (*types.MarketQuote, string) {
	var yes, no side

	if noBook == nil {
		ask, okAsk := yesBook.BestAsk()
		bid, okBid := yesBook.BestBid()
		if !okAsk || !okBid {
			return nil, "empty-book"
		}

		yes = side{price: ask, liquidity: yesBook.AskDepthNear(ask, p.window)}
		no = side{price: types.Complement(bid), liquidity: yesBook.BidDepthNear(bid, p.window)}
		if p.flipComplement && market.PolarityFlipped {
			yes, no = no, yes
		}
	} else {
		yesAsk, okYes := yesBook.BestAsk()
		noAsk, okNo := noBook.BestAsk()
		if !okYes || !okNo {
			return nil, "empty-book"
		}

		yes = side{price: yesAsk, liquidity: yesBook.AskDepthNear(yesAsk, p.window)}
		no = side{price: noAsk, liquidity: noBook.AskDepthNear(noAsk, p.window)}
	}

	if !types.PriceInRange(yes.price) || !types.PriceInRange(no.price) {
		return nil, "price-out-of-range"
	}
	if yes.liquidity.Cmp(p.minLiquidity) < 0 || no.liquidity.Cmp(p.minLiquidity) < 0 {
		return nil, "thin-liquidity"
	}

	return &types.MarketQuote{
		MarketID:      fingerprint,
		Protocol:      p.protocol,
		YesPrice:      new(big.Int).Set(yes.price),
		NoPrice:       new(big.Int).Set(no.price),
		YesLiquidity:  yes.liquidity,
		NoLiquidity:   no.liquidity,
		QuotedAt:      time.Now().UnixMilli(),
		Title:         market.Title,
		OutcomeLabels: market.OutcomeLabels,
	}, ""
}

func (p *Provider) resolveFee(ctx context.Context, market types.VenueMarket) int64 {
	if p.fees != nil {
		return p.fees.FeeBps(ctx, p.protocol, market.MarketID, market.FeeBps)
	}
	if market.FeeBps > 0 {
		return market.FeeBps
	}

	return markets.BaselineFee(p.protocol)
}
