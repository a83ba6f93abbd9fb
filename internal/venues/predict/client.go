// Package predict implements the Predict venue client: JWT-backed
// auth, the cursor-paged market catalog, order books, and EIP-712
// signed order flow against the /v1 API family.
package predict

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
	"github.com/vaibhav0806/prophit-sub001/pkg/retry"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

const (
	venueLabel      = "predict"
	catalogPageSize = 50

	defaultTimeout = 10 * time.Second
	defaultRate    = 10
	defaultBurst   = 20
)

// Chains the exchange order builder ships contract support for. Other
// chains fall back to direct typed-data signing against the configured
// exchange address.
var builderChains = map[int64]bool{137: true, 80002: true} //nolint:gochecknoglobals // static table

// Config holds the Predict client configuration.
type Config struct {
	BaseURL           string
	APIKey            string
	PrivateKey        string
	ChainID           int64
	ExchangeAddress   string
	CollateralAddress string
	CTFAddress        string
	OrderTTL          time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPTimeout       time.Duration
	DryRun            bool
	// QuoteOnly disables order signing: the client reads catalogs and
	// books but never places, so no exchange address is needed. The
	// vault execution path runs its venues this way.
	QuoteOnly bool
	Approver  venues.Approver
	Logger    *zap.Logger
}

// Client talks to the Predict venue.
type Client struct {
	baseURL      string
	apiKey       string
	signer       *venues.Signer
	signerKey    *ecdsa.PrivateKey
	orderBuilder builder.ExchangeOrderBuilder
	exchange     common.Address
	collateral   common.Address
	ctf          common.Address
	orderTTL     time.Duration
	dryRun       bool
	quoteOnly    bool
	approver     venues.Approver
	httpClient   *http.Client
	limiter      *rate.Limiter
	retryCfg     retry.Config
	session      *session
	authGroup    singleflight.Group
	logger       *zap.Logger
}

// New validates the configuration and builds a client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}

	signer, err := venues.NewSigner(cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("build signer: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		signer:     signer,
		exchange:   common.HexToAddress(cfg.ExchangeAddress),
		collateral: common.HexToAddress(cfg.CollateralAddress),
		ctf:        common.HexToAddress(cfg.CTFAddress),
		orderTTL:   cfg.OrderTTL,
		dryRun:     cfg.DryRun,
		quoteOnly:  cfg.QuoteOnly,
		approver:   cfg.Approver,
		retryCfg:   retry.DefaultConfig(),
		session:    &session{},
		logger:     cfg.Logger,
	}

	if c.orderTTL <= 0 {
		c.orderTTL = 5 * time.Minute
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.httpClient = &http.Client{Timeout: timeout}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)

	if builderChains[cfg.ChainID] {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		c.signerKey = key
		c.orderBuilder = builder.NewExchangeOrderBuilderImpl(big.NewInt(cfg.ChainID), nil)
	} else if cfg.ExchangeAddress == "" && !cfg.DryRun && !cfg.QuoteOnly {
		return nil, fmt.Errorf("exchange address is required on chain %d", cfg.ChainID)
	}

	return c, nil
}

// Protocol identifies the venue.
func (c *Client) Protocol() types.Protocol { return types.ProtocolPredict }

// do runs one authenticated round trip. A 401 triggers a single token
// refresh followed by one replay of the original request.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload, out any, authed bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit wait: %w", op, err)
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
	}

	refreshed := false
	for {
		err := c.roundTrip(ctx, op, method, path, query, body, out, authed)
		if err == nil {
			return nil
		}

		var authErr *types.AuthError
		if authed && !refreshed && errors.As(err, &authErr) {
			refreshed = true
			if rerr := c.refreshToken(ctx); rerr != nil {
				return rerr
			}
			continue
		}

		return err
	}
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, query url.Values, body []byte, out any, authed bool) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "prophit/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if authed {
		token := c.session.token()
		if token == "" {
			if err := c.refreshToken(ctx); err != nil {
				return err
			}
			token = c.session.token()
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		venues.ObserveRequest(venueLabel, op, "transport-error", time.Since(start).Seconds())
		return &types.TransientNetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := venues.ReadBody(resp)
	venues.ObserveRequest(venueLabel, op, fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return &types.TransientNetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return venues.ClassifyStatus(types.ProtocolPredict, op, resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: unmarshal response: %w", op, err)
		}
	}

	return nil
}

// getWithRetry wraps read-only calls with the single-retry-on-5xx
// policy used for quotes and catalog pages.
func (c *Client) getWithRetry(ctx context.Context, op, path string, query url.Values, out any, authed bool) error {
	return retry.Do(ctx, c.retryCfg, venues.RetryOn5xx, func(ctx context.Context) error {
		return c.do(ctx, op, http.MethodGet, path, query, nil, out, authed)
	})
}
