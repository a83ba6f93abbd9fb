package probable

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

const exchangeDomain = "Probable CTF Exchange"

// Venue-native order statuses mapped onto the canonical space. An
// unmatched kill-or-fill order comes back "unmatched", which is a
// cancellation from our point of view.
var statusMap = map[string]types.OrderStatus{ //nolint:gochecknoglobals // static table
	"matched":          types.OrderFilled,
	"filled":           types.OrderFilled,
	"live":             types.OrderOpen,
	"open":             types.OrderOpen,
	"delayed":          types.OrderOpen,
	"partial":          types.OrderPartial,
	"partially_filled": types.OrderPartial,
	"unmatched":        types.OrderCancelled,
	"canceled":         types.OrderCancelled,
	"cancelled":        types.OrderCancelled,
	"expired":          types.OrderExpired,
}

func mapStatus(s string) types.OrderStatus {
	if mapped, ok := statusMap[s]; ok {
		return mapped
	}

	return types.OrderUnknown
}

func (c *Client) currentNonce() uint64 {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	return c.nonce
}

// FetchNonce returns the client-tracked nonce. Probable validates
// order nonces but exposes no endpoint to read them, so the tracker is
// the source of truth and survives restarts via SetNonce.
func (c *Client) FetchNonce(_ context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(c.currentNonce()), nil
}

// SetNonce restores the tracker, typically from a state snapshot.
func (c *Client) SetNonce(n *big.Int) {
	if n == nil || n.Sign() < 0 {
		return
	}

	c.nonceMu.Lock()
	c.nonce = n.Uint64()
	c.nonceMu.Unlock()
}

func (c *Client) advanceNonce() {
	c.nonceMu.Lock()
	c.nonce++
	c.nonceMu.Unlock()
}

// EnsureApprovals grants the exchange its collateral and outcome-token
// allowances, then prepares the safe proxy that fronts as order maker:
// the proxy must be controllable by the signing key alone and hold
// enough collateral before any order goes out. Skipped in dry-run mode
// and when no wallet is wired.
func (c *Client) EnsureApprovals(ctx context.Context) error {
	if c.dryRun || c.approver == nil {
		c.logger.Debug("probable-approvals-skipped", zap.Bool("dry_run", c.dryRun))
		return nil
	}

	if err := c.approver.EnsureERC20Allowance(ctx, c.collateral, c.exchange, venues.MaxApproval); err != nil {
		return fmt.Errorf("approve collateral: %w", err)
	}
	if err := c.approver.EnsureERC1155Approval(ctx, c.ctf, c.exchange); err != nil {
		return fmt.Errorf("approve outcome tokens: %w", err)
	}

	if c.proxy != (common.Address{}) && c.preparer != nil {
		if err := c.preparer.PrepareSafeProxy(ctx, c.proxy, c.collateral, c.proxyFloor); err != nil {
			return fmt.Errorf("prepare proxy: %w", err)
		}
	}

	return nil
}

type orderRequest struct {
	Order     *venues.OrderJSON `json:"order"`
	Owner     string            `json:"owner"`
	OrderType string            `json:"orderType"`
}

type orderAck struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg"`
	OrderID     string `json:"orderID"`
	Status      string `json:"status"`
	SizeMatched string `json:"sizeMatched"`
}

// PlaceOrder signs and submits one leg. A nonce rejection means the
// venue did not book the order, so one rebuild with the next nonce is
// safe; any other failure surfaces without resubmission.
func (c *Client) PlaceOrder(ctx context.Context, params *types.OrderParams) (*types.PlaceResult, error) {
	if c.dryRun {
		return c.simulateFill(params), nil
	}
	if c.quoteOnly {
		return nil, fmt.Errorf("probable client is quote-only, order signing disabled")
	}

	retriedNonce := false
	for {
		result, err := c.submitOrder(ctx, params)
		if err == nil {
			return result, nil
		}

		var ve *types.ValidationError
		if errors.As(err, &ve) && ve.Code == venues.ErrCodeNonce {
			if retriedNonce {
				return nil, &types.NonceConflictError{Protocol: types.ProtocolProbable, Nonce: c.currentNonce()}
			}
			retriedNonce = true
			c.advanceNonce()
			c.logger.Warn("probable-nonce-conflict-retrying", zap.Uint64("nonce", c.currentNonce()))
			continue
		}

		return nil, err
	}
}

func (c *Client) submitOrder(ctx context.Context, params *types.OrderParams) (*types.PlaceResult, error) {
	// The body's owner field carries the api key, so the triplet must
	// exist before the body bytes are fixed; the lazy derivation on the
	// header path runs too late for it.
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	nonce := c.currentNonce()

	wire, err := c.buildSignedOrder(params, nonce)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	req := orderRequest{
		Order:     wire,
		Owner:     c.credentials().APIKey,
		OrderType: string(params.Strategy),
	}

	path := fmt.Sprintf("%s/order/%d", apiPrefix, c.chainID)

	var ack orderAck
	if err := c.do(ctx, "place order", http.MethodPost, path, nil, req, &ack, true); err != nil {
		venues.OrdersSubmitted.WithLabelValues(venueLabel, "error").Inc()
		return nil, err
	}

	if !ack.Success && ack.ErrorMsg != "" {
		venues.OrdersSubmitted.WithLabelValues(venueLabel, "rejected").Inc()
		return nil, &types.ValidationError{
			Protocol: types.ProtocolProbable,
			Code:     venues.InferRejectionCode(ack.ErrorMsg),
			Message:  ack.ErrorMsg,
		}
	}

	c.advanceNonce()

	status := mapStatus(ack.Status)
	venues.OrdersSubmitted.WithLabelValues(venueLabel, string(status)).Inc()
	c.logger.Info("probable-order-placed",
		zap.String("order_id", ack.OrderID),
		zap.String("status", string(status)),
		zap.Uint64("nonce", nonce),
		zap.String("side", params.Side.String()))

	return &types.PlaceResult{
		OrderID:      ack.OrderID,
		Status:       status,
		FilledShares: parseShares(ack.SizeMatched),
	}, nil
}

// CancelOrder removes a resting order. A 404 means the venue already
// retired it.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if c.dryRun {
		return nil
	}

	path := fmt.Sprintf("%s/order/%d/%s", apiPrefix, c.chainID, url.PathEscape(orderID))
	err := c.do(ctx, "cancel order", http.MethodDelete, path, nil, nil, nil, true)
	if err != nil && !errors.Is(err, venues.ErrNotFound) {
		venues.OrdersCancelled.WithLabelValues(venueLabel, "error").Inc()
		return err
	}

	venues.OrdersCancelled.WithLabelValues(venueLabel, "success").Inc()

	return nil
}

type orderStatusResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
}

// GetOrderStatus polls one order. Probable drops unknown orders from
// its books entirely, so a 404 here means the order was cancelled or
// expired without fills.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (types.OrderStatus, *big.Int, error) {
	path := fmt.Sprintf("%s/order/%d/%s", apiPrefix, c.chainID, url.PathEscape(orderID))

	var resp orderStatusResponse
	err := c.do(ctx, "order status", http.MethodGet, path, nil, nil, &resp, true)
	if errors.Is(err, venues.ErrNotFound) {
		return types.OrderCancelled, nil, nil
	}
	if err != nil {
		return types.OrderUnknown, nil, err
	}

	return mapStatus(resp.Status), parseShares(resp.SizeMatched), nil
}

type wireOpenOrder struct {
	ID           string `json:"id"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	CreatedAt    int64  `json:"created_at"`
}

type openOrdersResponse struct {
	Orders []wireOpenOrder `json:"orders"`
}

// GetOpenOrders lists our resting orders with their remaining size.
func (c *Client) GetOpenOrders(ctx context.Context) ([]types.OpenOrder, error) {
	if c.dryRun {
		return nil, nil
	}

	path := fmt.Sprintf("%s/orders/%d", apiPrefix, c.chainID)
	query := url.Values{}
	query.Set("address", c.signer.Address().Hex())

	var resp openOrdersResponse
	if err := c.do(ctx, "open orders", http.MethodGet, path, query, nil, &resp, true); err != nil {
		return nil, err
	}

	orders := make([]types.OpenOrder, 0, len(resp.Orders))
	for _, w := range resp.Orders {
		price, err := types.ParsePrice(w.Price)
		if err != nil {
			continue
		}

		remaining := parseShares(w.OriginalSize)
		if matched := parseShares(w.SizeMatched); remaining != nil && matched != nil {
			remaining = new(big.Int).Sub(remaining, matched)
		}

		side := types.SideBuy
		if w.Side == "SELL" || w.Side == "sell" {
			side = types.SideSell
		}

		orders = append(orders, types.OpenOrder{
			OrderID:   w.ID,
			MarketID:  w.Market,
			TokenID:   w.AssetID,
			Side:      side,
			Price:     price,
			Shares:    remaining,
			CreatedAt: w.CreatedAt,
		})
	}

	return orders, nil
}

// buildSignedOrder produces the wire order. With a proxy wallet the
// proxy is the maker and holds the funds; the EOA stays the signer.
func (c *Client) buildSignedOrder(params *types.OrderParams, nonce uint64) (*venues.OrderJSON, error) {
	tokenID, err := venues.ParseTokenID(params.TokenID)
	if err != nil {
		return nil, err
	}
	salt, err := venues.NewSalt()
	if err != nil {
		return nil, err
	}

	maker := c.signer.Address()
	sigType := venues.SigTypeEOA
	if c.proxy != (common.Address{}) {
		maker = c.proxy
		sigType = venues.SigTypeProxySafe
	}

	makerAmount, takerAmount := legAmounts(params)

	ord := &venues.Order{
		Salt:          salt,
		Maker:         maker,
		Signer:        c.signer.Address(),
		Taker:         venues.ZeroAddress,
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    big.NewInt(time.Now().Add(c.orderTTL).Unix()),
		Nonce:         new(big.Int).SetUint64(nonce),
		FeeRateBps:    big.NewInt(params.FeeRateBps),
		Side:          params.Side,
		SignatureType: sigType,
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
