package types

import "math/big"

// Side is the wire encoding shared by all three venues: 0 buys, 1 sells.
type Side int

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}

	return "BUY"
}

// OrderStrategy selects the venue time-in-force.
type OrderStrategy string

const (
	StrategyGTC OrderStrategy = "GTC"
	StrategyIOC OrderStrategy = "IOC"
	StrategyFOK OrderStrategy = "FOK"
)

// OrderStatus is the canonical status space. Venue-native synonyms
// (MATCHED, LIVE, ...) are mapped before anything crosses into the core.
type OrderStatus string

const (
	OrderFilled    OrderStatus = "FILLED"
	OrderOpen      OrderStatus = "OPEN"
	OrderPartial   OrderStatus = "PARTIAL"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderExpired   OrderStatus = "EXPIRED"
	OrderUnknown   OrderStatus = "UNKNOWN"
)

// Terminal reports whether the venue will never advance this status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderCancelled, OrderExpired:
		return true
	}

	return false
}

// OrderParams is one leg as handed to a venue execution client.
type OrderParams struct {
	MarketID   string // venue-native market id
	TokenID    string
	Side       Side
	Price      *big.Int // 18-dp limit price
	Shares     *big.Int // 6-dp share count
	FeeRateBps int64
	Strategy   OrderStrategy
}

// Notional returns the USDT cost of the leg at its limit price.
func (p *OrderParams) Notional() *big.Int {
	return NotionalUsdt(p.Price, p.Shares)
}

// PlaceResult is the immediate venue response to an order placement.
type PlaceResult struct {
	OrderID      string
	Status       OrderStatus
	FilledShares *big.Int // 6 dp, nil when the venue omits fills in the ack
}

// OpenOrder is a resting order as listed by a venue.
type OpenOrder struct {
	OrderID   string
	MarketID  string
	TokenID   string
	Side      Side
	Price     *big.Int // 18 dp
	Shares    *big.Int // 6 dp remaining
	CreatedAt int64    // unix ms
}
