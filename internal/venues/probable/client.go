// Package probable implements the Probable venue client. Probable runs
// a CLOB with HMAC-authenticated REST: the wallet derives an API key
// triplet once, then every private call carries Prob_-prefixed headers
// signed with the credential secret.
package probable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
	"github.com/vaibhav0806/prophit-sub001/pkg/retry"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

const (
	venueLabel = "probable"
	apiPrefix  = "/public/api/v1"

	catalogPageSize = 100

	defaultTimeout = 10 * time.Second
	defaultRate    = 10
	defaultBurst   = 20
)

// Config holds the Probable client configuration.
type Config struct {
	BaseURL           string
	PrivateKey        string
	ChainID           int64
	ProxyAddress      string
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
	QuoteOnly  bool
	Approver   venues.Approver
	Preparer   venues.ProxyPreparer
	ProxyFloor *big.Int // 6-dp USDT the proxy must hold before trading
	Logger     *zap.Logger
}

// Client talks to the Probable venue.
type Client struct {
	baseURL    string
	chainID    int64
	signer     *venues.Signer
	proxy      common.Address
	exchange   common.Address
	collateral common.Address
	ctf        common.Address
	orderTTL   time.Duration
	dryRun     bool
	quoteOnly  bool
	approver   venues.Approver
	preparer   venues.ProxyPreparer
	proxyFloor *big.Int
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
	logger     *zap.Logger

	credMu    sync.RWMutex
	creds     venues.Credentials
	authGroup singleflight.Group

	nonceMu sync.Mutex
	nonce   uint64
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
	if cfg.ExchangeAddress == "" && !cfg.DryRun && !cfg.QuoteOnly {
		return nil, fmt.Errorf("exchange address is required")
	}

	signer, err := venues.NewSigner(cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("build signer: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		chainID:    cfg.ChainID,
		signer:     signer,
		proxy:      common.HexToAddress(cfg.ProxyAddress),
		exchange:   common.HexToAddress(cfg.ExchangeAddress),
		collateral: common.HexToAddress(cfg.CollateralAddress),
		ctf:        common.HexToAddress(cfg.CTFAddress),
		orderTTL:   cfg.OrderTTL,
		dryRun:     cfg.DryRun,
		quoteOnly:  cfg.QuoteOnly,
		approver:   cfg.Approver,
		preparer:   cfg.Preparer,
		proxyFloor: cfg.ProxyFloor,
		retryCfg:   retry.DefaultConfig(),
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

	return c, nil
}

// Protocol identifies the venue.
func (c *Client) Protocol() types.Protocol { return types.ProtocolProbable }

// credentials returns the current triplet under the read lock.
func (c *Client) credentials() venues.Credentials {
	c.credMu.RLock()
	defer c.credMu.RUnlock()

	return c.creds
}

// Credentials exposes the derived L2 triplet so operators can export
// it. Empty until Authenticate has run.
func (c *Client) Credentials() venues.Credentials {
	return c.credentials()
}

func (c *Client) setCredentials(creds venues.Credentials) {
	c.credMu.Lock()
	c.creds = creds
	c.credMu.Unlock()
}

// do runs one round trip. Private calls carry the L2 header set; a 401
// triggers a single credential re-derivation and one replay.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload, out any, private bool) error {
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
		err := c.roundTrip(ctx, op, method, path, query, body, out, private)
		if err == nil {
			return nil
		}

		var authErr *types.AuthError
		if private && !refreshed && errors.As(err, &authErr) {
			refreshed = true
			if rerr := c.Authenticate(ctx); rerr != nil {
				return rerr
			}
			continue
		}

		return err
	}
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, query url.Values, body []byte, out any, private bool) error {
	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "prophit/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if private {
		creds := c.credentials()
		if !creds.Complete() {
			if err := c.Authenticate(ctx); err != nil {
				return err
			}
			creds = c.credentials()
		}
		if err := c.setL2Headers(req, creds, method, requestPath, string(body)); err != nil {
			return err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		venues.ObserveRequest(venueLabel, op, "transport-error", time.Since(start).Seconds())
		return &types.TransientNetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := venues.ReadBody(resp)
	venues.ObserveRequest(venueLabel, op, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return &types.TransientNetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return venues.ClassifyStatus(types.ProtocolProbable, op, resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: unmarshal response: %w", op, err)
		}
	}

	return nil
}

// setL2Headers attaches the HMAC header set private endpoints verify.
func (c *Client) setL2Headers(req *http.Request, creds venues.Credentials, method, requestPath, body string) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	signature, err := venues.BuildHMAC(creds.Secret, timestamp, method, requestPath, body)
	if err != nil {
		return &types.AuthError{Protocol: types.ProtocolProbable, Op: "build hmac", Err: err}
	}

	req.Header.Set("Prob_address", c.signer.Address().Hex())
	req.Header.Set("Prob_api_key", creds.APIKey)
	req.Header.Set("Prob_passphrase", creds.Passphrase)
	req.Header.Set("Prob_timestamp", timestamp)
	req.Header.Set("Prob_signature", signature)
	req.Header.Set("Prob_nonce", strconv.FormatUint(c.currentNonce(), 10))

	return nil
}

// getWithRetry wraps read-only calls with the single-retry-on-5xx
// policy used for quotes and catalog pages.
func (c *Client) getWithRetry(ctx context.Context, op, path string, query url.Values, out any, private bool) error {
	return retry.Do(ctx, c.retryCfg, venues.RetryOn5xx, func(ctx context.Context) error {
		return c.do(ctx, op, http.MethodGet, path, query, nil, out, private)
	})
}
