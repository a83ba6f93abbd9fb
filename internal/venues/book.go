package venues

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Level is one resting price level. Price is an 18-dp fixed-point
// probability, Size is an outcome share count in 6-dp fixed point.
type Level struct {
	Price *big.Int
	Size  *big.Int
}

// Book is a single token's order book with asks ascending and bids
// descending, so index zero is always the touch.
type Book struct {
	Asks []Level
	Bids []Level
}

// WireLevel is the decimal-string level encoding every venue book
// endpoint shares.
type WireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ParseLevels converts wire levels to fixed point. One malformed level
// fails the whole book so a partial parse never prices a trade.
func ParseLevels(in []WireLevel) ([]Level, error) {
	levels := make([]Level, 0, len(in))

	for i, wl := range in {
		price, err := types.ParsePrice(wl.Price)
		if err != nil {
			return nil, fmt.Errorf("level %d price %q: %w", i, wl.Price, err)
		}

		size, err := types.ParseUsdt(wl.Size)
		if err != nil {
			return nil, fmt.Errorf("level %d size %q: %w", i, wl.Size, err)
		}

		if !types.PriceInRange(price) || size.Sign() <= 0 {
			continue
		}

		levels = append(levels, Level{Price: price, Size: size})
	}

	return levels, nil
}

// NewBook builds a sorted book from wire levels.
func NewBook(asks, bids []WireLevel) (*Book, error) {
	a, err := ParseLevels(asks)
	if err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}

	b, err := ParseLevels(bids)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}

	sort.SliceStable(a, func(i, j int) bool { return a[i].Price.Cmp(a[j].Price) < 0 })
	sort.SliceStable(b, func(i, j int) bool { return b[i].Price.Cmp(b[j].Price) > 0 })

	return &Book{Asks: a, Bids: b}, nil
}

// BestAsk returns the lowest ask, or false on an empty side.
func (b *Book) BestAsk() (*big.Int, bool) {
	if len(b.Asks) == 0 {
		return nil, false
	}

	return b.Asks[0].Price, true
}

// BestBid returns the highest bid, or false on an empty side.
func (b *Book) BestBid() (*big.Int, bool) {
	if len(b.Bids) == 0 {
		return nil, false
	}

	return b.Bids[0].Price, true
}

// AskDepthNear sums price times size, in 6-dp USDT, over ask levels
// within window of the touch price.
func (b *Book) AskDepthNear(touch, window *big.Int) *big.Int {
	return depthNear(b.Asks, touch, window)
}

// BidDepthNear sums price times size, in 6-dp USDT, over bid levels
// within window of the touch price.
func (b *Book) BidDepthNear(touch, window *big.Int) *big.Int {
	return depthNear(b.Bids, touch, window)
}

func depthNear(levels []Level, touch, window *big.Int) *big.Int {
	total := new(big.Int)
	if touch == nil {
		return total
	}

	diff := new(big.Int)
	for _, lvl := range levels {
		diff.Sub(lvl.Price, touch)
		if diff.CmpAbs(window) > 0 {
			continue
		}

		total.Add(total, types.NotionalUsdt(lvl.Price, lvl.Size))
	}

	return total
}
