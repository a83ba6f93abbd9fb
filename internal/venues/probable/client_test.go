package probable

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Well-known local development key, never funded on a real network.
const testKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var testSecret = base64.URLEncoding.EncodeToString([]byte("probable-secret-material")) //nolint:gochecknoglobals // test fixture

func newTestClient(t *testing.T, baseURL string, dryRun bool) *Client {
	t.Helper()
	c, err := New(&Config{
		BaseURL:         baseURL,
		PrivateKey:      testKeyHex,
		ChainID:         31337,
		ExchangeAddress: "0x56C79347e95530c01A2FC76E732f9566dA16E113",
		OrderTTL:        time.Minute,
		DryRun:          dryRun,
		Logger:          zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestQuoteOnlyDisablesOrderSigning(t *testing.T) {
	c, err := New(&Config{
		BaseURL:    "http://probable.test",
		PrivateKey: testKeyHex,
		ChainID:    31337,
		QuoteOnly:  true,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new quote-only client without exchange address: %v", err)
	}
	if _, err := c.PlaceOrder(context.Background(), buyParams(t)); err == nil {
		t.Error("quote-only client accepted an order")
	}
}

// installAuth wires the credential endpoints. When alreadyRegistered is
// set, the create endpoint rejects and only derive returns the triplet.
func installAuth(t *testing.T, mux *http.ServeMux, alreadyRegistered bool, created, derived *atomic.Int32) {
	t.Helper()
	triplet := fmt.Sprintf(`{"apiKey":"key-1","secret":%q,"passphrase":"pass-1"}`, testSecret)

	mux.HandleFunc("POST /public/api/v1/auth/api-key/31337", func(w http.ResponseWriter, r *http.Request) {
		created.Add(1)
		if r.Header.Get("Prob_address") == "" || r.Header.Get("Prob_signature") == "" || r.Header.Get("Prob_timestamp") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if alreadyRegistered {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"api key already exists for address"}`)
			return
		}
		fmt.Fprint(w, triplet)
	})
	mux.HandleFunc("GET /public/api/v1/auth/derive-api-key/31337", func(w http.ResponseWriter, r *http.Request) {
		derived.Add(1)
		if r.Header.Get("Prob_signature") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, triplet)
	})
}

func TestAuthenticateCreatesTriplet(t *testing.T) {
	var created, derived atomic.Int32
	mux := http.NewServeMux()
	installAuth(t, mux, false, &created, &derived)

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !c.credentials().Complete() {
		t.Fatal("expected a complete triplet")
	}
	if created.Load() != 1 || derived.Load() != 0 {
		t.Errorf("create=%d derive=%d, want 1/0", created.Load(), derived.Load())
	}

	// Idempotent: the triplet is cached.
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate again: %v", err)
	}
	if created.Load() != 1 {
		t.Errorf("create called %d times, want 1", created.Load())
	}
}

func TestAuthenticateFallsBackToDerive(t *testing.T) {
	var created, derived atomic.Int32
	mux := http.NewServeMux()
	installAuth(t, mux, true, &created, &derived)

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !c.credentials().Complete() {
		t.Fatal("expected a complete triplet via derive")
	}
	if created.Load() != 1 || derived.Load() != 1 {
		t.Errorf("create=%d derive=%d, want 1/1", created.Load(), derived.Load())
	}
}

func TestPrivateCallCarriesVerifiableHMAC(t *testing.T) {
	var created, derived atomic.Int32
	mux := http.NewServeMux()
	installAuth(t, mux, false, &created, &derived)

	mux.HandleFunc("GET /public/api/v1/orders/31337", func(w http.ResponseWriter, r *http.Request) {
		requestPath := r.URL.Path
		if r.URL.RawQuery != "" {
			requestPath += "?" + r.URL.RawQuery
		}

		want, err := venues.BuildHMAC(testSecret, r.Header.Get("Prob_timestamp"), r.Method, requestPath, "")
		if err != nil {
			t.Errorf("recompute hmac: %v", err)
		}
		if got := r.Header.Get("Prob_signature"); got != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Prob_api_key") != "key-1" || r.Header.Get("Prob_passphrase") != "pass-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"orders":[]}`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	orders, err := c.GetOpenOrders(context.Background())
	if err != nil {
		t.Fatalf("open orders: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("orders = %d, want 0", len(orders))
	}
}

func TestListMarketsFlattensBinaryEventMarkets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /public/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("active") != "true" {
			t.Errorf("active param = %q", r.URL.Query().Get("active"))
		}
		page := eventsPage{Events: []wireEvent{{
			ID:       "ev-1",
			Title:    "BTC milestones",
			Category: "crypto",
			Slug:     "btc-milestones",
			Markets: []wireEventMarket{
				{
					ID:          "pm-1",
					Question:    "Will Bitcoin hit $200k in 2026?",
					ConditionID: "0xabc",
					EndDateISO:  "2026-12-31T00:00:00Z",
					Tokens:      []wireToken{{TokenID: "111", Outcome: "Yes"}, {TokenID: "112", Outcome: "No"}},
					FeeRateBps:  175,
				},
				{
					ID:       "pm-2",
					Question: "Which month does it peak?",
					Tokens:   []wireToken{{TokenID: "1"}, {TokenID: "2"}, {TokenID: "3"}},
				},
				{
					ID:       "pm-3",
					Question: "Closed market",
					Closed:   true,
					Tokens:   []wireToken{{TokenID: "5", Outcome: "Yes"}, {TokenID: "6", Outcome: "No"}},
				},
			},
		}}}
		if err := json.NewEncoder(w).Encode(page); err != nil {
			t.Errorf("encode page: %v", err)
		}
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	markets, err := c.ListMarkets(context.Background())
	if err != nil {
		t.Fatalf("list markets: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("markets = %d, want 1 (binary, open only)", len(markets))
	}

	m := markets[0]
	if m.Platform != types.ProtocolProbable {
		t.Errorf("platform = %s", m.Platform)
	}
	if m.Category != "crypto" {
		t.Errorf("category = %q, want inherited crypto", m.Category)
	}
	if m.YesTokenID != "111" || m.NoTokenID != "112" {
		t.Errorf("tokens = %s/%s", m.YesTokenID, m.NoTokenID)
	}
	if m.ConditionID != "0xabc" {
		t.Errorf("condition id = %s", m.ConditionID)
	}
}

func TestFetchBookParsesClubShape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /public/api/v1/book", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token_id") != "111" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{
			"market":"0xabc","asset_id":"111",
			"asks":[{"price":"0.47","size":"300"},{"price":"0.46","size":"120"}],
			"bids":[{"price":"0.43","size":"80"}]
		}`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	book, err := c.FetchBook(context.Background(), "111")
	if err != nil {
		t.Fatalf("fetch book: %v", err)
	}

	ask, ok := book.BestAsk()
	if !ok {
		t.Fatal("expected asks")
	}
	want, _ := types.ParsePrice("0.46")
	if ask.Cmp(want) != 0 {
		t.Errorf("best ask = %s, want %s", ask, want)
	}

	_, err = c.FetchBook(context.Background(), "999")
	if !errors.Is(err, venues.ErrNotFound) {
		t.Errorf("missing book should map to ErrNotFound, got %v", err)
	}
}

func TestSetNonceRestoresTracker(t *testing.T) {
	c := newTestClient(t, "http://unused", false)

	c.SetNonce(big.NewInt(7))
	nonce, err := c.FetchNonce(context.Background())
	if err != nil {
		t.Fatalf("fetch nonce: %v", err)
	}
	if nonce.Uint64() != 7 {
		t.Errorf("nonce = %s, want 7", nonce)
	}

	c.SetNonce(nil) // ignored
	nonce, _ = c.FetchNonce(context.Background())
	if nonce.Uint64() != 7 {
		t.Errorf("nil restore must not reset the tracker, got %s", nonce)
	}
}
