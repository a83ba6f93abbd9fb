package probable

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

func buyParams(t *testing.T) *types.OrderParams {
	t.Helper()
	price, err := types.ParsePrice("0.40")
	if err != nil {
		t.Fatalf("parse price: %v", err)
	}
	return &types.OrderParams{
		MarketID:   "pm-1",
		TokenID:    "112",
		Side:       types.SideBuy,
		Price:      price,
		Shares:     big.NewInt(50_000_000), // 50 shares
		FeeRateBps: 175,
		Strategy:   types.StrategyFOK,
	}
}

type capturedOrder struct {
	mu     sync.Mutex
	nonces []string
	owners []string
}

func (c *capturedOrder) record(nonce, owner string) {
	c.mu.Lock()
	c.nonces = append(c.nonces, nonce)
	c.owners = append(c.owners, owner)
	c.mu.Unlock()
}

func orderServer(t *testing.T, rejectNonces int, captured *capturedOrder) *httptest.Server {
	t.Helper()
	var created, derived atomic.Int32
	var rejected atomic.Int32

	mux := http.NewServeMux()
	installAuth(t, mux, false, &created, &derived)
	mux.HandleFunc("POST /public/api/v1/order/31337", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Order struct {
				Nonce string `json:"nonce"`
				Side  string `json:"side"`
			} `json:"order"`
			Owner     string `json:"owner"`
			OrderType string `json:"orderType"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode order: %v", err)
		}
		captured.record(req.Order.Nonce, req.Owner)

		if rejected.Load() < int32(rejectNonces) {
			rejected.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid nonce for maker"}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"orderID":"0xdeal","status":"matched","sizeMatched":"50"}`)
	})

	return httptest.NewServer(mux)
}

func TestPlaceOrderAdvancesNonceOnSuccess(t *testing.T) {
	captured := &capturedOrder{}
	server := orderServer(t, 0, captured)
	defer server.Close()

	c := newTestClient(t, server.URL, false)

	for range 2 {
		result, err := c.PlaceOrder(context.Background(), buyParams(t))
		if err != nil {
			t.Fatalf("place order: %v", err)
		}
		if result.Status != types.OrderFilled {
			t.Errorf("status = %s, want FILLED", result.Status)
		}
		if result.FilledShares.Cmp(big.NewInt(50_000_000)) != 0 {
			t.Errorf("filled = %s", result.FilledShares)
		}
	}

	if got := captured.nonces; len(got) != 2 || got[0] != "0" || got[1] != "1" {
		t.Errorf("nonces seen = %v, want [0 1]", got)
	}
	// The first order of a fresh client must already carry the derived
	// api key in the body; credentials may not arrive later than that.
	for i, owner := range captured.owners {
		if owner != "key-1" {
			t.Errorf("order %d owner = %q, want the api key", i, owner)
		}
	}
}

func TestPlaceOrderRebuildsOnceOnNonceConflict(t *testing.T) {
	captured := &capturedOrder{}
	server := orderServer(t, 1, captured)
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	result, err := c.PlaceOrder(context.Background(), buyParams(t))
	if err != nil {
		t.Fatalf("expected the rebuilt order to land, got %v", err)
	}
	if result.OrderID != "0xdeal" {
		t.Errorf("order id = %s", result.OrderID)
	}
	if got := captured.nonces; len(got) != 2 || got[0] != "0" || got[1] != "1" {
		t.Errorf("nonces seen = %v, want [0 1]", got)
	}
}

func TestPlaceOrderGivesUpAfterSecondNonceConflict(t *testing.T) {
	captured := &capturedOrder{}
	server := orderServer(t, 99, captured)
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	_, err := c.PlaceOrder(context.Background(), buyParams(t))

	var conflict *types.NonceConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected NonceConflictError, got %v", err)
	}
	if len(captured.nonces) != 2 {
		t.Errorf("attempts = %d, want 2", len(captured.nonces))
	}
}

func TestGetOrderStatusNotFoundMeansCancelled(t *testing.T) {
	var created, derived atomic.Int32
	mux := http.NewServeMux()
	installAuth(t, mux, false, &created, &derived)

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	status, filled, err := c.GetOrderStatus(context.Background(), "vanished")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != types.OrderCancelled {
		t.Errorf("status = %s, want CANCELLED", status)
	}
	if filled != nil {
		t.Errorf("filled = %v, want nil", filled)
	}
}

func TestGetOpenOrdersComputesRemaining(t *testing.T) {
	var created, derived atomic.Int32
	mux := http.NewServeMux()
	installAuth(t, mux, false, &created, &derived)
	mux.HandleFunc("GET /public/api/v1/orders/31337", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"orders":[{
			"id":"0xaa","market":"pm-1","asset_id":"111","side":"BUY",
			"price":"0.40","original_size":"100","size_matched":"40","created_at":1756000000000
		}]}`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	orders, err := c.GetOpenOrders(context.Background())
	if err != nil {
		t.Fatalf("open orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	if orders[0].Shares.Cmp(big.NewInt(60_000_000)) != 0 {
		t.Errorf("remaining = %s, want 60000000", orders[0].Shares)
	}
}

func TestDryRunShortCircuits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("dry-run client must not reach the venue")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, true)

	result, err := c.PlaceOrder(context.Background(), buyParams(t))
	if err != nil {
		t.Fatalf("dry-run place: %v", err)
	}
	if result.Status != types.OrderFilled {
		t.Errorf("status = %s", result.Status)
	}

	// The tracked nonce must not move for simulated fills.
	nonce, _ := c.FetchNonce(context.Background())
	if nonce.Sign() != 0 {
		t.Errorf("dry-run advanced the nonce to %s", nonce)
	}

	if err := c.CancelOrder(context.Background(), result.OrderID); err != nil {
		t.Fatalf("dry-run cancel: %v", err)
	}
}

func TestStatusSynonyms(t *testing.T) {
	tests := []struct {
		wire string
		want types.OrderStatus
	}{
		{"matched", types.OrderFilled},
		{"live", types.OrderOpen},
		{"delayed", types.OrderOpen},
		{"unmatched", types.OrderCancelled},
		{"partially_filled", types.OrderPartial},
		{"expired", types.OrderExpired},
		{"??", types.OrderUnknown},
	}

	for _, tt := range tests {
		if got := mapStatus(tt.wire); got != tt.want {
			t.Errorf("mapStatus(%q) = %s, want %s", tt.wire, got, tt.want)
		}
	}
}
