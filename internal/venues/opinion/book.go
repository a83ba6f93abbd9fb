package opinion

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
)

// wireBook is the order book payload inside the envelope.
type wireBook struct {
	Asks []venues.WireLevel `json:"asks"`
	Bids []venues.WireLevel `json:"bids"`
}

// FetchOrderBook returns the book for one outcome token.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (*venues.Book, error) {
	var wb wireBook
	query := map[string]string{"token_id": tokenID}
	if err := c.call(ctx, c.read, "fetch-orderbook", http.MethodGet, "/orderbook", query, nil, &wb); err != nil {
		return nil, fmt.Errorf("fetch orderbook %s: %w", tokenID, err)
	}

	book, err := venues.NewBook(wb.Asks, wb.Bids)
	if err != nil {
		return nil, fmt.Errorf("parse orderbook %s: %w", tokenID, err)
	}

	return book, nil
}
