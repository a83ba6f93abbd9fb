package probable

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

type wireToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

type wireEventMarket struct {
	ID          string      `json:"id"`
	Question    string      `json:"question"`
	ConditionID string      `json:"conditionId"`
	EndDateISO  string      `json:"endDateIso"`
	Tokens      []wireToken `json:"tokens"`
	FeeRateBps  int64       `json:"feeRateBps"`
	Image       string      `json:"image"`
	Closed      bool        `json:"closed"`
}

type wireEvent struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Category string            `json:"category"`
	Slug     string            `json:"slug"`
	Markets  []wireEventMarket `json:"markets"`
}

type eventsPage struct {
	Events []wireEvent `json:"events"`
}

// ListMarkets walks the active-events catalog with offset paging and
// flattens event markets into the discovery shape. Markets inherit the
// category of their event. Non-binary markets are skipped.
func (c *Client) ListMarkets(ctx context.Context) ([]types.DiscoveredMarket, error) {
	var out []types.DiscoveredMarket

	for offset := 0; ; offset += catalogPageSize {
		query := url.Values{}
		query.Set("active", "true")
		query.Set("limit", strconv.Itoa(catalogPageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page eventsPage
		if err := c.getWithRetry(ctx, "list events", apiPrefix+"/events", query, &page, false); err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}

		for i := range page.Events {
			out = append(out, flattenEvent(&page.Events[i])...)
		}

		if len(page.Events) < catalogPageSize {
			break
		}
	}

	c.logger.Debug("probable-catalog-fetched", zap.Int("markets", len(out)))

	return out, nil
}

func flattenEvent(event *wireEvent) []types.DiscoveredMarket {
	markets := make([]types.DiscoveredMarket, 0, len(event.Markets))

	for i := range event.Markets {
		if dm, ok := marketFromWire(&event.Markets[i], event.Category, event.Slug); ok {
			markets = append(markets, dm)
		}
	}

	return markets
}

// marketFromWire converts one market row. Closed and non-binary rows
// are rejected.
func marketFromWire(m *wireEventMarket, category, slug string) (types.DiscoveredMarket, bool) {
	if m.Closed || len(m.Tokens) != 2 || m.ID == "" {
		return types.DiscoveredMarket{}, false
	}

	var resolvesAt int64
	if m.EndDateISO != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
			resolvesAt = t.UnixMilli()
		}
	}

	return types.DiscoveredMarket{
		ID:            m.ID,
		Platform:      types.ProtocolProbable,
		Title:         m.Question,
		ConditionID:   m.ConditionID,
		Category:      category,
		ResolvesAt:    resolvesAt,
		YesTokenID:    m.Tokens[0].TokenID,
		NoTokenID:     m.Tokens[1].TokenID,
		OutcomeLabels: [2]string{m.Tokens[0].Outcome, m.Tokens[1].Outcome},
		Image:         m.Image,
		URL:           slug,
	}, true
}

// GetMarket fetches one market row and its fee schedule. A bare market
// fetch has no surrounding event, so category and URL stay empty.
func (c *Client) GetMarket(ctx context.Context, marketID string) (*types.DiscoveredMarket, int64, error) {
	var m wireEventMarket
	if err := c.getWithRetry(ctx, "get market", apiPrefix+"/market/"+url.PathEscape(marketID), nil, &m, false); err != nil {
		return nil, 0, fmt.Errorf("get market %s: %w", marketID, err)
	}

	dm, ok := marketFromWire(&m, "", "")
	if !ok {
		return nil, 0, fmt.Errorf("get market %s: not an open binary market", marketID)
	}

	return &dm, m.FeeRateBps, nil
}

type wireBook struct {
	Market  string             `json:"market"`
	AssetID string             `json:"asset_id"`
	Asks    []venues.WireLevel `json:"asks"`
	Bids    []venues.WireLevel `json:"bids"`
}

// FetchBook returns the book for one outcome token. Probable serves a
// separate book per token, so complement pricing is never needed here.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (*venues.Book, error) {
	query := url.Values{}
	query.Set("token_id", tokenID)

	var wire wireBook
	if err := c.getWithRetry(ctx, "book", apiPrefix+"/book", query, &wire, false); err != nil {
		return nil, fmt.Errorf("fetch book %s: %w", tokenID, err)
	}

	book, err := venues.NewBook(wire.Asks, wire.Bids)
	if err != nil {
		return nil, fmt.Errorf("parse book %s: %w", tokenID, err)
	}

	return book, nil
}
