package types

import (
	"fmt"
	"math/big"

	"github.com/goccy/go-json"
)

// Position is the record of an executed (or partially executed) two-leg
// trade. A stranded single leg has SharesB == 0 and CostB == 0.
type Position struct {
	ID           string
	MarketID     string // pair fingerprint
	ProtocolA    Protocol
	ProtocolB    Protocol
	BoughtYesOnA bool
	SharesA      *big.Int // 6 dp
	SharesB      *big.Int // 6 dp
	CostA        *big.Int // 6-dp USDT actually spent
	CostB        *big.Int
	OpenedAt     int64 // unix ms
	Closed       bool
}

// positionJSON is the state-file form. Bigint-valued fields serialize as
// decimal strings so the snapshot survives JSON number precision limits.
type positionJSON struct {
	ID           string   `json:"positionId"`
	MarketID     string   `json:"marketId"`
	ProtocolA    Protocol `json:"protocolA"`
	ProtocolB    Protocol `json:"protocolB"`
	BoughtYesOnA bool     `json:"boughtYesOnA"`
	SharesA      string   `json:"sharesA"`
	SharesB      string   `json:"sharesB"`
	CostA        string   `json:"costA"`
	CostB        string   `json:"costB"`
	OpenedAt     string   `json:"openedAt"`
	Closed       bool     `json:"closed"`
}

// MarshalJSON implements the state-file contract.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(positionJSON{
		ID:           p.ID,
		MarketID:     p.MarketID,
		ProtocolA:    p.ProtocolA,
		ProtocolB:    p.ProtocolB,
		BoughtYesOnA: p.BoughtYesOnA,
		SharesA:      bigString(p.SharesA),
		SharesB:      bigString(p.SharesB),
		CostA:        bigString(p.CostA),
		CostB:        bigString(p.CostB),
		OpenedAt:     fmt.Sprintf("%d", p.OpenedAt),
		Closed:       p.Closed,
	})
}

// UnmarshalJSON revives bigint fields from their decimal-string form.
func (p *Position) UnmarshalJSON(data []byte) error {
	var aux positionJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode position: %w", err)
	}

	sharesA, err := bigFromString(aux.SharesA)
	if err != nil {
		return fmt.Errorf("revive sharesA: %w", err)
	}
	sharesB, err := bigFromString(aux.SharesB)
	if err != nil {
		return fmt.Errorf("revive sharesB: %w", err)
	}
	costA, err := bigFromString(aux.CostA)
	if err != nil {
		return fmt.Errorf("revive costA: %w", err)
	}
	costB, err := bigFromString(aux.CostB)
	if err != nil {
		return fmt.Errorf("revive costB: %w", err)
	}
	var openedAt int64
	if aux.OpenedAt != "" {
		if _, err := fmt.Sscanf(aux.OpenedAt, "%d", &openedAt); err != nil {
			return fmt.Errorf("revive openedAt %q: %w", aux.OpenedAt, err)
		}
	}

	p.ID = aux.ID
	p.MarketID = aux.MarketID
	p.ProtocolA = aux.ProtocolA
	p.ProtocolB = aux.ProtocolB
	p.BoughtYesOnA = aux.BoughtYesOnA
	p.SharesA = sharesA
	p.SharesB = sharesB
	p.CostA = costA
	p.CostB = costB
	p.OpenedAt = openedAt
	p.Closed = aux.Closed

	return nil
}

// TotalCost returns costA + costB in 6-dp USDT.
func (p *Position) TotalCost() *big.Int {
	t := new(big.Int)
	if p.CostA != nil {
		t.Add(t, p.CostA)
	}
	if p.CostB != nil {
		t.Add(t, p.CostB)
	}

	return t
}

// Stranded reports whether exactly one leg holds shares.
func (p *Position) Stranded() bool {
	a := p.SharesA != nil && p.SharesA.Sign() > 0
	b := p.SharesB != nil && p.SharesB.Sign() > 0

	return a != b
}

func bigString(x *big.Int) string {
	if x == nil {
		return "0"
	}

	return x.String()
}

func bigFromString(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", s)
	}

	return x, nil
}
