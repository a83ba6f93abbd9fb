package httpserver

import (
	"net/http"
	"sort"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// OpportunitySource exposes the most recent scan result. The agent
// satisfies it.
type OpportunitySource interface {
	Opportunities() []types.ArbitOpportunity
}

// QuoteSource exposes the current quote store contents. quotes.Store
// satisfies it.
type QuoteSource interface {
	Snapshot() map[string]map[types.Protocol]*types.MarketQuote
}

// PositionSource exposes the session position ledger. The agent
// satisfies it.
type PositionSource interface {
	Positions() []types.Position
}

// apiHandler serves the read-only JSON API backed by in-memory state.
type apiHandler struct {
	opportunities OpportunitySource
	quotes        QuoteSource
	positions     PositionSource
	logger        *zap.Logger
}

// OpportunityView is the JSON form of one scan result. Fixed-point
// fields are rendered as decimal strings so browser clients never round
// them through float64.
type OpportunityView struct {
	ID             string `json:"id"`
	MarketID       string `json:"market_id"`
	Title          string `json:"title"`
	YesVenue       string `json:"yes_venue"`
	NoVenue        string `json:"no_venue"`
	YesPrice       string `json:"yes_price"`
	NoPrice        string `json:"no_price"`
	TotalCost      string `json:"total_cost"`
	GrossSpreadBps int64  `json:"gross_spread_bps"`
	SpreadBps      int64  `json:"spread_bps"`
	Shares         string `json:"shares"`
	EstProfit      string `json:"est_profit_usdt"`
	QuotedAt       int64  `json:"quoted_at"`
}

// QuoteView is the JSON form of one venue's quote for a matched market.
type QuoteView struct {
	MarketID     string `json:"market_id"`
	Venue        string `json:"venue"`
	Title        string `json:"title"`
	YesPrice     string `json:"yes_price"`
	NoPrice      string `json:"no_price"`
	YesLiquidity string `json:"yes_liquidity_usdt"`
	NoLiquidity  string `json:"no_liquidity_usdt"`
	FeeBps       int64  `json:"fee_bps"`
	QuotedAt     int64  `json:"quoted_at"`
}

// PositionView is the JSON form of one executed trade.
type PositionView struct {
	ID        string `json:"id"`
	MarketID  string `json:"market_id"`
	VenueA    string `json:"venue_a"`
	VenueB    string `json:"venue_b"`
	SharesA   string `json:"shares_a"`
	SharesB   string `json:"shares_b"`
	CostA     string `json:"cost_a_usdt"`
	CostB     string `json:"cost_b_usdt"`
	TotalCost string `json:"total_cost_usdt"`
	OpenedAt  int64  `json:"opened_at"`
	Closed    bool   `json:"closed"`
	Stranded  bool   `json:"stranded"`
}

type opportunitiesResponse struct {
	Count         int               `json:"count"`
	Opportunities []OpportunityView `json:"opportunities"`
}

type quotesResponse struct {
	Markets int         `json:"markets"`
	Quotes  []QuoteView `json:"quotes"`
}

type positionsResponse struct {
	Count     int            `json:"count"`
	Positions []PositionView `json:"positions"`
}

// HandleOpportunities handles GET /api/opportunities.
func (h *apiHandler) HandleOpportunities(w http.ResponseWriter, _ *http.Request) {
	opps := h.opportunities.Opportunities()

	h.writeJSON(w, opportunitiesResponse{
		Count:         len(opps),
		Opportunities: opportunityViews(opps),
	})
}

// HandleQuotes handles GET /api/quotes.
func (h *apiHandler) HandleQuotes(w http.ResponseWriter, _ *http.Request) {
	snap := h.quotes.Snapshot()

	marketIDs := make([]string, 0, len(snap))
	for id := range snap {
		marketIDs = append(marketIDs, id)
	}
	sort.Strings(marketIDs)

	views := make([]QuoteView, 0, len(snap)*2)
	for _, id := range marketIDs {
		for _, protocol := range types.AllProtocols() {
			q, ok := snap[id][protocol]
			if !ok {
				continue
			}

			views = append(views, QuoteView{
				MarketID:     q.MarketID,
				Venue:        string(q.Protocol),
				Title:        q.Title,
				YesPrice:     types.FormatPrice(q.YesPrice),
				NoPrice:      types.FormatPrice(q.NoPrice),
				YesLiquidity: types.FormatUsdt(q.YesLiquidity),
				NoLiquidity:  types.FormatUsdt(q.NoLiquidity),
				FeeBps:       q.FeeBps,
				QuotedAt:     q.QuotedAt,
			})
		}
	}

	h.writeJSON(w, quotesResponse{
		Markets: len(snap),
		Quotes:  views,
	})
}

// HandlePositions handles GET /api/positions.
func (h *apiHandler) HandlePositions(w http.ResponseWriter, _ *http.Request) {
	positions := h.positions.Positions()

	views := make([]PositionView, 0, len(positions))
	for i := range positions {
		p := &positions[i]
		views = append(views, PositionView{
			ID:        p.ID,
			MarketID:  p.MarketID,
			VenueA:    string(p.ProtocolA),
			VenueB:    string(p.ProtocolB),
			SharesA:   types.FormatUsdt(p.SharesA),
			SharesB:   types.FormatUsdt(p.SharesB),
			CostA:     types.FormatUsdt(p.CostA),
			CostB:     types.FormatUsdt(p.CostB),
			TotalCost: types.FormatUsdt(p.TotalCost()),
			OpenedAt:  p.OpenedAt,
			Closed:    p.Closed,
			Stranded:  p.Stranded(),
		})
	}

	h.writeJSON(w, positionsResponse{
		Count:     len(views),
		Positions: views,
	})
}

func opportunityViews(opps []types.ArbitOpportunity) []OpportunityView {
	views := make([]OpportunityView, 0, len(opps))
	for i := range opps {
		o := &opps[i]
		views = append(views, OpportunityView{
			ID:             o.ID,
			MarketID:       o.MarketID,
			Title:          o.Title,
			YesVenue:       string(o.ProtocolA),
			NoVenue:        string(o.ProtocolB),
			YesPrice:       types.FormatPrice(o.YesPriceA),
			NoPrice:        types.FormatPrice(o.NoPriceB),
			TotalCost:      types.FormatPrice(o.TotalCost),
			GrossSpreadBps: o.GrossSpreadBps,
			SpreadBps:      o.SpreadBps,
			Shares:         types.FormatUsdt(o.Shares),
			EstProfit:      types.FormatUsdt(o.EstProfit),
			QuotedAt:       o.QuotedAt,
		})
	}

	return views
}

// writeJSON writes a 200 response with a JSON body.
func (h *apiHandler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}
