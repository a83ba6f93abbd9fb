package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Money never travels as float64. Prices are 18-decimal fractions of one
// payout unit (PriceOne == $1.00); liquidity, cost, and share counts are
// 6-decimal USDT units. Conversion to and from venue JSON goes through
// decimal strings.
const (
	PriceDecimals = 18
	UsdtDecimals  = 6
)

//nolint:gochecknoglobals // immutable scale constants
var (
	priceOne  = big.NewInt(1_000_000_000_000_000_000)
	usdtOne   = big.NewInt(1_000_000)
	bpsPerOne = big.NewInt(10_000)
	halfPrice = big.NewInt(500_000_000_000_000_000)
)

// PriceOne returns one payout unit ($1.00) at price scale.
func PriceOne() *big.Int { return new(big.Int).Set(priceOne) }

// UsdtOne returns $1.00 at USDT scale.
func UsdtOne() *big.Int { return new(big.Int).Set(usdtOne) }

// ParsePrice converts a venue decimal string such as "0.55" to price scale.
func ParsePrice(s string) (*big.Int, error) {
	return parseScaled(s, PriceDecimals)
}

// ParseUsdt converts a venue decimal string such as "123.456789" to USDT
// scale. Excess precision is truncated toward zero.
func ParseUsdt(s string) (*big.Int, error) {
	return parseScaled(s, UsdtDecimals)
}

func parseScaled(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}

	return d.Shift(decimals).Truncate(0).BigInt(), nil
}

// FormatPrice renders an 18-dp price as a decimal string.
func FormatPrice(x *big.Int) string {
	if x == nil {
		return "0"
	}

	return decimal.NewFromBigInt(x, -PriceDecimals).String()
}

// FormatUsdt renders a 6-dp USDT amount as a decimal string.
func FormatUsdt(x *big.Int) string {
	if x == nil {
		return "0"
	}

	return decimal.NewFromBigInt(x, -UsdtDecimals).String()
}

// PriceInRange reports whether 0 < p < $1.00, the only band a binary
// outcome can price in.
func PriceInRange(p *big.Int) bool {
	return p != nil && p.Sign() > 0 && p.Cmp(priceOne) < 0
}

// Complement returns 1.00 - p at price scale.
func Complement(p *big.Int) *big.Int {
	return new(big.Int).Sub(priceOne, p)
}

// SpreadBps converts a price-scale edge (1.00 - totalCost) to basis
// points, rounded half up.
func SpreadBps(edge *big.Int) int64 {
	n := new(big.Int).Mul(edge, bpsPerOne)
	n.Add(n, halfPrice)
	n.Quo(n, priceOne)

	return n.Int64()
}

// BpsToPrice converts basis points to a price-scale fraction of $1.00.
func BpsToPrice(bps int64) *big.Int {
	n := new(big.Int).Mul(big.NewInt(bps), priceOne)

	return n.Quo(n, bpsPerOne)
}

// NotionalUsdt returns price * shares at USDT scale: the cost of buying
// shares (6 dp) at price (18 dp).
func NotionalUsdt(price, shares *big.Int) *big.Int {
	n := new(big.Int).Mul(price, shares)

	return n.Quo(n, priceOne)
}

// SharesForNotional returns how many shares (6 dp) a USDT notional
// (6 dp) buys at price (18 dp). Zero price yields zero shares.
func SharesForNotional(notional, price *big.Int) *big.Int {
	if price == nil || price.Sign() <= 0 {
		return new(big.Int)
	}
	n := new(big.Int).Mul(notional, priceOne)

	return n.Quo(n, price)
}

// MinBig returns the smaller of a and b without aliasing either.
func MinBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}

	return new(big.Int).Set(b)
}
