package venues

import (
	"math/big"
	"testing"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

func mustPrice(t *testing.T, s string) *big.Int {
	t.Helper()
	p, err := types.ParsePrice(s)
	if err != nil {
		t.Fatalf("parse price %q: %v", s, err)
	}
	return p
}

func TestParseLevelsRejectsMalformedPrice(t *testing.T) {
	_, err := ParseLevels([]WireLevel{{Price: "not-a-number", Size: "10"}})
	if err == nil {
		t.Fatal("expected error for malformed price")
	}
}

func TestParseLevelsDropsDegenerateLevels(t *testing.T) {
	levels, err := ParseLevels([]WireLevel{
		{Price: "0", Size: "10"},
		{Price: "1.0", Size: "10"},
		{Price: "0.5", Size: "0"},
		{Price: "0.5", Size: "10"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 1 {
		t.Fatalf("expected 1 surviving level, got %d", len(levels))
	}
	if levels[0].Price.Cmp(mustPrice(t, "0.5")) != 0 {
		t.Errorf("wrong surviving level price: %s", levels[0].Price)
	}
}

func TestNewBookSortsBothSides(t *testing.T) {
	book, err := NewBook(
		[]WireLevel{{Price: "0.60", Size: "10"}, {Price: "0.55", Size: "100"}, {Price: "0.56", Size: "50"}},
		[]WireLevel{{Price: "0.40", Size: "20"}, {Price: "0.44", Size: "5"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ask, ok := book.BestAsk()
	if !ok || ask.Cmp(mustPrice(t, "0.55")) != 0 {
		t.Errorf("best ask = %v, want 0.55", ask)
	}
	bid, ok := book.BestBid()
	if !ok || bid.Cmp(mustPrice(t, "0.44")) != 0 {
		t.Errorf("best bid = %v, want 0.44", bid)
	}
}

func TestBestOnEmptySide(t *testing.T) {
	book := &Book{}
	if _, ok := book.BestAsk(); ok {
		t.Error("empty ask side should report no best ask")
	}
	if _, ok := book.BestBid(); ok {
		t.Error("empty bid side should report no best bid")
	}
}

func TestAskDepthNearWindow(t *testing.T) {
	book, err := NewBook(
		[]WireLevel{{Price: "0.55", Size: "100"}, {Price: "0.56", Size: "50"}, {Price: "0.60", Size: "10"}},
		nil,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	touch, _ := book.BestAsk()
	window := types.BpsToPrice(200)

	// 0.55*100 + 0.56*50 = 83 USDT; the 0.60 level sits outside the window.
	got := book.AskDepthNear(touch, window)
	want := big.NewInt(83_000_000)
	if got.Cmp(want) != 0 {
		t.Errorf("ask depth = %s, want %s", got, want)
	}
}

func TestBidDepthNearWindow(t *testing.T) {
	book, err := NewBook(
		nil,
		[]WireLevel{{Price: "0.44", Size: "200"}, {Price: "0.43", Size: "100"}, {Price: "0.30", Size: "1000"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	touch, _ := book.BestBid()
	window := types.BpsToPrice(200)

	// 0.44*200 + 0.43*100 = 131 USDT; 0.30 is far below the touch.
	got := book.BidDepthNear(touch, window)
	want := big.NewInt(131_000_000)
	if got.Cmp(want) != 0 {
		t.Errorf("bid depth = %s, want %s", got, want)
	}
}

func TestDepthNearNilTouch(t *testing.T) {
	book := &Book{Asks: []Level{{Price: mustPrice(t, "0.5"), Size: big.NewInt(1_000_000)}}}
	if got := book.AskDepthNear(nil, types.BpsToPrice(200)); got.Sign() != 0 {
		t.Errorf("nil touch should yield zero depth, got %s", got)
	}
}
