package types

import "math/big"

// MarketQuote is one venue's view of a matched market at a point in time.
// Prices are 18-dp fractions of one payout unit; liquidity is 6-dp USDT
// notional within the slippage window of the touch.
type MarketQuote struct {
	MarketID      string // pair fingerprint, not the venue-native id
	Protocol      Protocol
	YesPrice      *big.Int
	NoPrice       *big.Int
	YesLiquidity  *big.Int
	NoLiquidity   *big.Int
	FeeBps        int64
	QuotedAt      int64 // unix ms
	Title         string
	OutcomeLabels [2]string
}

// Clone returns a deep copy. Store reads hand out clones so callers can
// never mutate shared big.Int state.
func (q *MarketQuote) Clone() *MarketQuote {
	if q == nil {
		return nil
	}
	c := *q
	c.YesPrice = cloneBig(q.YesPrice)
	c.NoPrice = cloneBig(q.NoPrice)
	c.YesLiquidity = cloneBig(q.YesLiquidity)
	c.NoLiquidity = cloneBig(q.NoLiquidity)

	return &c
}

// FresherThan reports whether q was quoted at or after the other quote.
func (q *MarketQuote) FresherThan(other *MarketQuote) bool {
	return other == nil || q.QuotedAt >= other.QuotedAt
}

func cloneBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}

	return new(big.Int).Set(x)
}
