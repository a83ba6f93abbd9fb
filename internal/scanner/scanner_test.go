package scanner

import (
	"math/big"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/quotes"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

func newTestScanner(t *testing.T, cfg *Config) (*Scanner, *quotes.Store) {
	t.Helper()

	if cfg == nil {
		cfg = &Config{MinSpreadBps: 100}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	store := quotes.NewStore(zap.NewNop())
	s, err := New(cfg, store)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}

	return s, store
}

func mustPrice(t *testing.T, s string) *big.Int {
	t.Helper()

	p, err := types.ParsePrice(s)
	if err != nil {
		t.Fatalf("parse price %q: %v", s, err)
	}

	return p
}

func putQuote(t *testing.T, store *quotes.Store, fp string, protocol types.Protocol, yes, no string, feeBps, liq, quotedAt int64) {
	t.Helper()

	store.Put([]types.MarketQuote{{
		MarketID:     fp,
		Protocol:     protocol,
		YesPrice:     mustPrice(t, yes),
		NoPrice:      mustPrice(t, no),
		YesLiquidity: big.NewInt(liq),
		NoLiquidity:  big.NewInt(liq),
		FeeBps:       feeBps,
		QuotedAt:     quotedAt,
		Title:        "Will it settle yes?",
	}})
}

func TestNewValidation(t *testing.T) {
	store := quotes.NewStore(zap.NewNop())

	tests := []struct {
		name  string
		cfg   *Config
		store *quotes.Store
	}{
		{name: "nil-config", cfg: nil, store: store},
		{name: "missing-logger", cfg: &Config{}, store: store},
		{name: "missing-store", cfg: &Config{Logger: zap.NewNop()}, store: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, tt.store); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestScanFindsComplementSpread(t *testing.T) {
	s, store := newTestScanner(t, nil)
	now := time.Now().UnixMilli()

	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.55", "0.47", 200, 1_000_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.62", "0.40", 175, 1_000_000_000, now)

	opps := s.Scan()
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}

	opp := opps[0]
	if opp.ProtocolA != types.ProtocolPredict || opp.ProtocolB != types.ProtocolProbable {
		t.Fatalf("unexpected venues: %s / %s", opp.ProtocolA, opp.ProtocolB)
	}
	if !opp.BuyYesOnA {
		t.Fatal("expected the yes leg on the first venue")
	}
	if got := types.FormatPrice(opp.TotalCost); got != "0.95" {
		t.Fatalf("total cost = %s, want 0.95", got)
	}
	if opp.GrossSpreadBps != 500 {
		t.Fatalf("gross spread = %d bps, want 500", opp.GrossSpreadBps)
	}
	if opp.SpreadBps != 125 {
		t.Fatalf("net spread = %d bps, want 125", opp.SpreadBps)
	}
	if got := types.FormatPrice(opp.FeesDeducted); got != "0.0375" {
		t.Fatalf("fees deducted = %s, want 0.0375", got)
	}
	if opp.FeeBpsA != 200 || opp.FeeBpsB != 175 {
		t.Fatalf("leg fees = %d/%d bps, want 200/175", opp.FeeBpsA, opp.FeeBpsB)
	}
	if opp.Shares.Cmp(big.NewInt(526_315_789)) != 0 {
		t.Fatalf("shares = %s, want 526315789", opp.Shares)
	}
	if opp.EstProfit.Cmp(big.NewInt(6_578_947)) != 0 {
		t.Fatalf("est profit = %s, want 6578947", opp.EstProfit)
	}
	if opp.EstProfit.Sign() <= 0 {
		t.Fatal("expected positive estimated profit")
	}
	if opp.QuotedAt != now {
		t.Fatalf("quotedAt = %d, want %d", opp.QuotedAt, now)
	}
	if opp.ID == "" {
		t.Fatal("expected a generated opportunity id")
	}
}

func TestScanPicksBetterDirection(t *testing.T) {
	s, store := newTestScanner(t, nil)
	now := time.Now().UnixMilli()

	// YES on the first venue is overpriced; only the reverse direction
	// (YES on probable, NO on predict) clears.
	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.60", "0.50", 200, 100_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.42", "0.45", 175, 100_000_000, now)

	opps := s.Scan()
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}

	opp := opps[0]
	if opp.BuyYesOnA {
		t.Fatal("expected the reverse direction")
	}
	if opp.ProtocolA != types.ProtocolProbable || opp.ProtocolB != types.ProtocolPredict {
		t.Fatalf("unexpected venues: %s / %s", opp.ProtocolA, opp.ProtocolB)
	}
	if got := types.FormatPrice(opp.YesPriceA); got != "0.42" {
		t.Fatalf("yes price = %s, want 0.42", got)
	}
	if got := types.FormatPrice(opp.NoPriceB); got != "0.5" {
		t.Fatalf("no price = %s, want 0.5", got)
	}
	if opp.SpreadBps != 425 {
		t.Fatalf("net spread = %d bps, want 425", opp.SpreadBps)
	}
	if opp.Shares.Cmp(big.NewInt(200_000_000)) != 0 {
		t.Fatalf("shares = %s, want 200000000", opp.Shares)
	}
	if opp.EstProfit.Cmp(big.NewInt(8_500_000)) != 0 {
		t.Fatalf("est profit = %s, want 8500000", opp.EstProfit)
	}
}

func TestScanSkipsFullyPricedPair(t *testing.T) {
	s, store := newTestScanner(t, nil)
	now := time.Now().UnixMilli()

	// Both directions sum to exactly 1.00.
	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.60", "0.40", 200, 1_000_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.60", "0.40", 175, 1_000_000_000, now)

	if opps := s.Scan(); len(opps) != 0 {
		t.Fatalf("expected no opportunities, got %d", len(opps))
	}
}

func TestScanRejectsBelowMinSpread(t *testing.T) {
	s, store := newTestScanner(t, nil)
	now := time.Now().UnixMilli()

	// Gross 100 bps is eaten by 375 bps of fees.
	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.55", "0.50", 200, 1_000_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.52", "0.44", 175, 1_000_000_000, now)

	if opps := s.Scan(); len(opps) != 0 {
		t.Fatalf("expected no opportunities, got %d", len(opps))
	}
}

func TestScanCapsSpreadAtMax(t *testing.T) {
	s, store := newTestScanner(t, &Config{MinSpreadBps: 100, MaxSpreadBps: 2000})
	now := time.Now().UnixMilli()

	// A 50 cent gap is a resolved market or a bad match, not an edge.
	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.30", "0.60", 200, 1_000_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.55", "0.20", 175, 1_000_000_000, now)

	if opps := s.Scan(); len(opps) != 0 {
		t.Fatalf("expected no opportunities, got %d", len(opps))
	}
}

func TestScanSkipsStaleQuotes(t *testing.T) {
	s, store := newTestScanner(t, nil)
	now := time.Now().UnixMilli()

	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.55", "0.47", 200, 1_000_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.62", "0.40", 175, 1_000_000_000, now-31_000)

	if opps := s.Scan(); len(opps) != 0 {
		t.Fatalf("expected no opportunities with a stale leg, got %d", len(opps))
	}
}

func TestScanRequiresMinimumFill(t *testing.T) {
	s, store := newTestScanner(t, &Config{MinSpreadBps: 100, MinFillUsdt: big.NewInt(5_000_000)})
	now := time.Now().UnixMilli()

	// 2 USDT of depth on each side is below the 5 USDT floor.
	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.55", "0.47", 200, 2_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.62", "0.40", 175, 2_000_000, now)

	if opps := s.Scan(); len(opps) != 0 {
		t.Fatalf("expected no opportunities below the fill floor, got %d", len(opps))
	}
}

func TestScanSizesToThinnerLeg(t *testing.T) {
	s, store := newTestScanner(t, nil)
	now := time.Now().UnixMilli()

	// 50 USDT of YES depth against 1000 USDT of NO depth.
	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.55", "0.47", 200, 50_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.62", "0.40", 175, 1_000_000_000, now)

	opps := s.Scan()
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}
	if opps[0].Shares.Cmp(big.NewInt(90_909_090)) != 0 {
		t.Fatalf("shares = %s, want 90909090", opps[0].Shares)
	}
	if opps[0].EstProfit.Cmp(big.NewInt(1_136_363)) != 0 {
		t.Fatalf("est profit = %s, want 1136363", opps[0].EstProfit)
	}
}

func TestScanEnumeratesAllVenuePairs(t *testing.T) {
	s, store := newTestScanner(t, nil)
	now := time.Now().UnixMilli()

	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.45", "0.45", 200, 1_000_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.46", "0.44", 175, 1_000_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolOpinion, "0.44", "0.46", 200, 1_000_000_000, now)

	opps := s.Scan()
	if len(opps) != 3 {
		t.Fatalf("expected 3 opportunities across venue pairs, got %d", len(opps))
	}

	// Ranked by estimated profit: opinion/probable, predict/probable,
	// opinion/predict.
	wantSpreads := []int64{825, 725, 700}
	for i, want := range wantSpreads {
		if opps[i].SpreadBps != want {
			t.Fatalf("opps[%d].SpreadBps = %d, want %d", i, opps[i].SpreadBps, want)
		}
	}
	if opps[0].ProtocolA != types.ProtocolOpinion || opps[0].ProtocolB != types.ProtocolProbable {
		t.Fatalf("best pair = %s / %s, want opinion / probable", opps[0].ProtocolA, opps[0].ProtocolB)
	}
	for i := 1; i < len(opps); i++ {
		if opps[i-1].EstProfit.Cmp(opps[i].EstProfit) < 0 {
			t.Fatalf("opportunities not ranked by profit at %d", i)
		}
	}
}

func TestRankOrdersDeterministically(t *testing.T) {
	opps := []types.ArbitOpportunity{
		{ID: "low-old", EstProfit: big.NewInt(100), SpreadBps: 150, QuotedAt: 10},
		{ID: "high", EstProfit: big.NewInt(500), SpreadBps: 120, QuotedAt: 10},
		{ID: "low-new", EstProfit: big.NewInt(100), SpreadBps: 150, QuotedAt: 99},
		{ID: "low-wide", EstProfit: big.NewInt(100), SpreadBps: 400, QuotedAt: 5},
	}

	rank(opps)

	want := []string{"high", "low-wide", "low-new", "low-old"}
	for i, id := range want {
		if opps[i].ID != id {
			t.Fatalf("rank[%d] = %s, want %s", i, opps[i].ID, id)
		}
	}
}

func TestPolarityFlagCarriedThrough(t *testing.T) {
	s, store := newTestScanner(t, nil)
	now := time.Now().UnixMilli()

	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.55", "0.47", 200, 1_000_000_000, now)
	putQuote(t, store, "0xfp1", types.ProtocolProbable, "0.62", "0.40", 175, 1_000_000_000, now)

	s.SetPolarity(map[string]bool{"0xfp1": true})

	opps := s.Scan()
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}
	if !opps[0].PolarityFlip {
		t.Fatal("expected polarity flag to carry through")
	}

	s.SetPolarity(map[string]bool{})
	opps = s.Scan()
	if len(opps) != 1 || opps[0].PolarityFlip {
		t.Fatal("expected polarity flag cleared after table swap")
	}
}

func TestScanSingleVenueIsNotAnOpportunity(t *testing.T) {
	s, store := newTestScanner(t, nil)
	now := time.Now().UnixMilli()

	putQuote(t, store, "0xfp1", types.ProtocolPredict, "0.30", "0.40", 200, 1_000_000_000, now)

	if opps := s.Scan(); len(opps) != 0 {
		t.Fatalf("expected no opportunities with one venue, got %d", len(opps))
	}
}
