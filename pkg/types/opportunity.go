package types

import (
	"fmt"
	"math/big"
)

// ArbitOpportunity is a priced, sized, executable spread: buy YES on one
// venue and NO on the other for a combined cost under one payout unit.
type ArbitOpportunity struct {
	ID             string // uuid, assigned by the scanner
	MarketID       string // pair fingerprint
	Title          string
	ProtocolA      Protocol // venue quoting the YES leg
	ProtocolB      Protocol // venue quoting the NO leg
	BuyYesOnA      bool
	YesPriceA      *big.Int // 18 dp
	NoPriceB       *big.Int // 18 dp
	TotalCost      *big.Int // 18 dp, yesPriceA + noPriceB
	GrossSpreadBps int64
	SpreadBps      int64    // gross minus both venue fees
	FeeBpsA        int64    // taker fee on the YES venue
	FeeBpsB        int64    // taker fee on the NO venue
	FeesDeducted   *big.Int // 18 dp
	Shares         *big.Int // 6 dp, liquidity- and budget-capped size
	EstProfit      *big.Int // 6 dp USDT at the sized amount
	LiquidityA     *big.Int // 6 dp
	LiquidityB     *big.Int // 6 dp
	PolarityFlip   bool
	QuotedAt       int64 // unix ms, older of the two leg quotes
}

// String is the one-line operator form used in logs and CLI tables.
func (o *ArbitOpportunity) String() string {
	return fmt.Sprintf("%s: YES@%s on %s + NO@%s on %s, spread %dbps, est profit %s USDT",
		o.MarketID,
		FormatPrice(o.YesPriceA), o.ProtocolA,
		FormatPrice(o.NoPriceB), o.ProtocolB,
		o.SpreadBps,
		FormatUsdt(o.EstProfit),
	)
}
