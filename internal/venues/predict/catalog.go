package predict

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

type wireMarket struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	ConditionID string   `json:"conditionId"`
	Category    string   `json:"category"`
	EndDate     string   `json:"endDate"`
	Outcomes    []string `json:"outcomes"`
	TokenIDs    []string `json:"tokenIds"`
	FeeRateBps  int64    `json:"feeRateBps"`
	Image       string   `json:"image"`
	URL         string   `json:"url"`
	Status      string   `json:"status"`
}

type marketsPage struct {
	Markets    []wireMarket `json:"markets"`
	NextCursor string       `json:"nextCursor"`
}

// ListMarkets walks the open-market catalog cursor by cursor and
// returns every binary market. Non-binary markets are skipped.
func (c *Client) ListMarkets(ctx context.Context) ([]types.DiscoveredMarket, error) {
	var out []types.DiscoveredMarket

	cursor := ""
	for {
		query := url.Values{}
		query.Set("status", "OPEN")
		query.Set("first", strconv.Itoa(catalogPageSize))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var page marketsPage
		if err := c.getWithRetry(ctx, "list markets", "/v1/markets", query, &page, false); err != nil {
			return nil, fmt.Errorf("list markets: %w", err)
		}

		for i := range page.Markets {
			if m, ok := page.Markets[i].toDiscovered(); ok {
				out = append(out, m)
			}
		}

		if page.NextCursor == "" || len(page.Markets) < catalogPageSize {
			break
		}
		cursor = page.NextCursor
	}

	c.logger.Debug("predict-catalog-fetched", zap.Int("markets", len(out)))

	return out, nil
}

// GetMarket fetches one market, fee metadata included.
func (c *Client) GetMarket(ctx context.Context, marketID string) (*types.DiscoveredMarket, int64, error) {
	var wire wireMarket
	path := "/v1/markets/" + url.PathEscape(marketID)
	if err := c.getWithRetry(ctx, "get market", path, nil, &wire, false); err != nil {
		return nil, 0, fmt.Errorf("get market %s: %w", marketID, err)
	}

	m, ok := wire.toDiscovered()
	if !ok {
		return nil, 0, fmt.Errorf("get market %s: not a binary market", marketID)
	}

	return &m, wire.FeeRateBps, nil
}

// toDiscovered reduces a wire market to the discovery shape. Returns
// false for markets that are not two-outcome.
func (w *wireMarket) toDiscovered() (types.DiscoveredMarket, bool) {
	if len(w.Outcomes) != 2 || len(w.TokenIDs) != 2 || w.ID == "" {
		return types.DiscoveredMarket{}, false
	}

	var resolvesAt int64
	if w.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, w.EndDate); err == nil {
			resolvesAt = t.UnixMilli()
		}
	}

	return types.DiscoveredMarket{
		ID:            w.ID,
		Platform:      types.ProtocolPredict,
		Title:         w.Title,
		ConditionID:   w.ConditionID,
		Category:      w.Category,
		ResolvesAt:    resolvesAt,
		YesTokenID:    w.TokenIDs[0],
		NoTokenID:     w.TokenIDs[1],
		OutcomeLabels: [2]string{w.Outcomes[0], w.Outcomes[1]},
		Image:         w.Image,
		URL:           w.URL,
	}, true
}
