package predict

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
)

type wireBook struct {
	Asks []venues.WireLevel `json:"asks"`
	Bids []venues.WireLevel `json:"bids"`
}

// FetchOrderBook returns the YES-token book for a market. The NO side
// is quoted by complement, so one book per market is all Predict serves.
func (c *Client) FetchOrderBook(ctx context.Context, marketID string) (*venues.Book, error) {
	path := "/v1/markets/" + url.PathEscape(marketID) + "/orderbook"

	var wire wireBook
	if err := c.getWithRetry(ctx, "orderbook", path, nil, &wire, false); err != nil {
		return nil, fmt.Errorf("fetch orderbook %s: %w", marketID, err)
	}

	book, err := venues.NewBook(wire.Asks, wire.Bids)
	if err != nil {
		return nil, fmt.Errorf("parse orderbook %s: %w", marketID, err)
	}

	return book, nil
}
