package opinion

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

const exchangeDomain = "Opinion CTF Exchange"

// Venue-native order statuses mapped onto the canonical space.
var statusMap = map[string]types.OrderStatus{ //nolint:gochecknoglobals // static table
	"filled":         types.OrderFilled,
	"matched":        types.OrderFilled,
	"pending":        types.OrderOpen,
	"open":           types.OrderOpen,
	"live":           types.OrderOpen,
	"partial_filled": types.OrderPartial,
	"partial":        types.OrderPartial,
	"canceled":       types.OrderCancelled,
	"cancelled":      types.OrderCancelled,
	"expired":        types.OrderExpired,
}

func mapStatus(s string) types.OrderStatus {
	if mapped, ok := statusMap[s]; ok {
		return mapped
	}

	return types.OrderUnknown
}

// FetchNonce returns zero: Opinion manages order nonces server side.
func (c *Client) FetchNonce(_ context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

// SetNonce is a no-op on a server-managed-nonce venue.
func (c *Client) SetNonce(_ *big.Int) {}

// EnsureApprovals grants the exchange its collateral and outcome-token
// allowances. Skipped in dry-run mode and when no wallet is wired.
func (c *Client) EnsureApprovals(ctx context.Context) error {
	if c.dryRun || c.approver == nil {
		c.logger.Debug("opinion-approvals-skipped", zap.Bool("dry_run", c.dryRun))
		return nil
	}
	if c.exchange == (common.Address{}) {
		c.logger.Warn("opinion-approvals-skipped-no-exchange-address")
		return nil
	}

	if err := c.approver.EnsureERC20Allowance(ctx, c.collateral, c.exchange, venues.MaxApproval); err != nil {
		return fmt.Errorf("approve collateral: %w", err)
	}
	if err := c.approver.EnsureERC1155Approval(ctx, c.ctf, c.exchange); err != nil {
		return fmt.Errorf("approve outcome tokens: %w", err)
	}

	return nil
}

type orderRequest struct {
	Order *venues.OrderJSON `json:"order"`
	Type  string            `json:"type"`
}

type orderAck struct {
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	FilledSize string `json:"filledSize"`
}

// PlaceOrder signs and submits one leg through the non-retrying
// transport: an ambiguous failure must surface, not double-submit.
func (c *Client) PlaceOrder(ctx context.Context, params *types.OrderParams) (*types.PlaceResult, error) {
	if c.dryRun {
		return c.simulateFill(params), nil
	}
	if c.quoteOnly {
		return nil, fmt.Errorf("opinion client is quote-only, order signing disabled")
	}

	wire, err := c.buildSignedOrder(params)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	req := orderRequest{Order: wire, Type: string(params.Strategy)}

	var ack orderAck
	if err := c.call(ctx, c.write, "place-order", http.MethodPost, "/order", nil, req, &ack); err != nil {
		venues.OrdersSubmitted.WithLabelValues(venueLabel, "error").Inc()
		return nil, err
	}

	status := mapStatus(ack.Status)
	venues.OrdersSubmitted.WithLabelValues(venueLabel, string(status)).Inc()
	c.logger.Info("opinion-order-placed",
		zap.String("order_id", ack.OrderID),
		zap.String("status", string(status)),
		zap.String("token_id", params.TokenID),
		zap.String("side", params.Side.String()))

	return &types.PlaceResult{
		OrderID:      ack.OrderID,
		Status:       status,
		FilledShares: parseShares(ack.FilledSize),
	}, nil
}

// CancelOrder removes a resting order. A 404 means the venue already
// retired it, which is success for our purposes.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if c.dryRun {
		return nil
	}

	err := c.call(ctx, c.write, "cancel-order", http.MethodDelete, "/order/"+url.PathEscape(orderID), nil, nil, nil)
	if err != nil && !errors.Is(err, venues.ErrNotFound) {
		venues.OrdersCancelled.WithLabelValues(venueLabel, "error").Inc()
		return err
	}

	venues.OrdersCancelled.WithLabelValues(venueLabel, "success").Inc()

	return nil
}

// GetOrderStatus polls one order. Opinion archives filled orders after
// settlement, so a 404 means the order filled and was swept; a nil
// share count with FILLED tells the caller to assume a full fill.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (types.OrderStatus, *big.Int, error) {
	var ack orderAck
	err := c.call(ctx, c.read, "order-status", http.MethodGet, "/order/"+url.PathEscape(orderID), nil, nil, &ack)
	if errors.Is(err, venues.ErrNotFound) {
		return types.OrderFilled, nil, nil
	}
	if err != nil {
		return types.OrderUnknown, nil, err
	}

	return mapStatus(ack.Status), parseShares(ack.FilledSize), nil
}

type wireOpenOrder struct {
	OrderID   string `json:"orderId"`
	MarketID  string `json:"marketId"`
	TokenID   string `json:"tokenId"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	CreatedAt int64  `json:"createdAt"`
}

type openOrdersResult struct {
	List []wireOpenOrder `json:"list"`
}

// GetOpenOrders lists our resting orders.
func (c *Client) GetOpenOrders(ctx context.Context) ([]types.OpenOrder, error) {
	if c.dryRun {
		return nil, nil
	}

	query := map[string]string{"address": c.signer.Address().Hex()}

	var result openOrdersResult
	if err := c.call(ctx, c.read, "open-orders", http.MethodGet, "/orders", query, nil, &result); err != nil {
		return nil, err
	}

	orders := make([]types.OpenOrder, 0, len(result.List))
	for _, w := range result.List {
		price, err := types.ParsePrice(w.Price)
		if err != nil {
			continue
		}
		side := types.SideBuy
		if w.Side == "SELL" {
			side = types.SideSell
		}
		orders = append(orders, types.OpenOrder{
			OrderID:   w.OrderID,
			MarketID:  w.MarketID,
			TokenID:   w.TokenID,
			Side:      side,
			Price:     price,
			Shares:    parseShares(w.Size),
			CreatedAt: w.CreatedAt,
		})
	}

	return orders, nil
}

// buildSignedOrder produces the wire order signed against the Opinion
// exchange contract.
func (c *Client) buildSignedOrder(params *types.OrderParams) (*venues.OrderJSON, error) {
	tokenID, err := venues.ParseTokenID(params.TokenID)
	if err != nil {
		return nil, err
	}
	salt, err := venues.NewSalt()
	if err != nil {
		return nil, err
	}

	maker, taker := legAmounts(params)

	ord := &venues.Order{
		Salt:          salt,
		Maker:         c.signer.Address(),
		Signer:        c.signer.Address(),
		Taker:         venues.ZeroAddress,
		TokenID:       tokenID,
		MakerAmount:   maker,
		TakerAmount:   taker,
		Expiration:    big.NewInt(time.Now().Add(c.orderTTL).Unix()),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(params.FeeRateBps),
		Side:          params.Side,
		SignatureType: venues.SigTypeEOA,
	}

	signature, err := c.signer.SignOrder(exchangeDomain, c.exchange, ord)
	if err != nil {
		return nil, err
	}

	return ord.ToJSON(signature), nil
}

// legAmounts derives the exchange amount pair: buying spends USDT for
// shares, selling spends shares for USDT.
func legAmounts(params *types.OrderParams) (maker, taker *big.Int) {
	notional := params.Notional()
	if params.Side == types.SideBuy {
		return notional, new(big.Int).Set(params.Shares)
	}

	return new(big.Int).Set(params.Shares), notional
}

func (c *Client) simulateFill(params *types.OrderParams) *types.PlaceResult {
	id := "dry-" + uuid.NewString()
	c.logger.Info("dry-run-order",
		zap.String("venue", venueLabel),
		zap.String("order_id", id),
		zap.String("token_id", params.TokenID),
		zap.String("side", params.Side.String()),
		zap.String("price", types.FormatPrice(params.Price)),
		zap.String("shares", types.FormatUsdt(params.Shares)))

	return &types.PlaceResult{
		OrderID:      id,
		Status:       types.OrderFilled,
		FilledShares: new(big.Int).Set(params.Shares),
	}
}

func parseShares(s string) *big.Int {
	if s == "" {
		return nil
	}

	shares, err := types.ParseUsdt(s)
	if err != nil {
		return nil
	}

	return shares
}
