package opinion

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// wireMarket is one market row from the Opinion catalog.
type wireMarket struct {
	MarketID   int64  `json:"marketId"`
	Title      string `json:"marketTitle"`
	Category   string `json:"category"`
	CutoffAt   int64  `json:"cutoffAt"`
	YesTokenID string `json:"yesTokenId"`
	NoTokenID  string `json:"noTokenId"`
	Outcome1   string `json:"outcome1"`
	Outcome2   string `json:"outcome2"`
	FeeBps     int64  `json:"feeBps"`
	ImageURL   string `json:"imageUrl"`
	MarketURL  string `json:"marketUrl"`
}

// marketsPage is the catalog page payload inside the envelope.
type marketsPage struct {
	Total int          `json:"total"`
	List  []wireMarket `json:"list"`
}

// ListMarkets walks the paged catalog and returns every tradable
// binary market. Pages are one-based; the walk stops once the reported
// total is covered or a page comes back empty.
func (c *Client) ListMarkets(ctx context.Context) ([]types.DiscoveredMarket, error) {
	var (
		markets []types.DiscoveredMarket
		seen    int
		page    = 1
	)

	for {
		query := map[string]string{
			"page":     strconv.Itoa(page),
			"pageSize": strconv.Itoa(catalogPageSize),
		}

		var pageData marketsPage
		if err := c.call(ctx, c.read, "list-markets", http.MethodGet, "/market", query, nil, &pageData); err != nil {
			return nil, fmt.Errorf("list markets page %d: %w", page, err)
		}

		for _, wm := range pageData.List {
			dm, ok := toDiscovered(wm)
			if !ok {
				continue
			}
			markets = append(markets, dm)
		}

		seen += len(pageData.List)
		c.logger.Debug("opinion-markets-page",
			zap.Int("page", page),
			zap.Int("count", len(pageData.List)),
			zap.Int("total", pageData.Total))

		if len(pageData.List) == 0 || seen >= pageData.Total {
			break
		}
		page++
	}

	return markets, nil
}

// GetMarket fetches one market row and its fee schedule.
func (c *Client) GetMarket(ctx context.Context, marketID string) (*types.DiscoveredMarket, int64, error) {
	var wm wireMarket
	if err := c.call(ctx, c.read, "get-market", http.MethodGet, "/market/"+marketID, nil, nil, &wm); err != nil {
		return nil, 0, fmt.Errorf("get market %s: %w", marketID, err)
	}

	dm, ok := toDiscovered(wm)
	if !ok {
		return nil, 0, fmt.Errorf("get market %s: not a binary market", marketID)
	}

	return &dm, wm.FeeBps, nil
}

// toDiscovered converts a wire row into the shared shape. Markets
// missing either outcome token are not binary and get dropped.
func toDiscovered(wm wireMarket) (types.DiscoveredMarket, bool) {
	if wm.YesTokenID == "" || wm.NoTokenID == "" {
		return types.DiscoveredMarket{}, false
	}

	return types.DiscoveredMarket{
		ID:            strconv.FormatInt(wm.MarketID, 10),
		Platform:      types.ProtocolOpinion,
		Title:         wm.Title,
		Category:      wm.Category,
		ResolvesAt:    wm.CutoffAt * 1000,
		YesTokenID:    wm.YesTokenID,
		NoTokenID:     wm.NoTokenID,
		OutcomeLabels: [2]string{wm.Outcome1, wm.Outcome2},
		Image:         wm.ImageURL,
		URL:           wm.MarketURL,
	}, true
}
