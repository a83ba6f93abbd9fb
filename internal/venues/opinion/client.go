// Package opinion implements the Opinion venue client. Opinion fronts
// everything with a single REST family that wraps responses in an
// errno envelope; authentication is a static API key header and orders
// are EIP-712 signed like the other venues.
package opinion

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vaibhav0806/prophit-sub001/internal/venues"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

const (
	venueLabel      = "opinion"
	catalogPageSize = 100

	defaultTimeout = 10 * time.Second
	defaultRate    = 10
	defaultBurst   = 20
)

// Config holds the Opinion client configuration.
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

// Client talks to the Opinion venue. Reads and writes go through
// separate transports: reads retry once on 5xx, order mutations are
// never auto-retried.
type Client struct {
	read       *resty.Client
	write      *resty.Client
	apiKey     string
	signer     *venues.Signer
	exchange   common.Address
	collateral common.Address
	ctf        common.Address
	orderTTL   time.Duration
	dryRun     bool
	quoteOnly  bool
	approver   venues.Approver
	limiter    *rate.Limiter
	logger     *zap.Logger
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

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	base := strings.TrimRight(cfg.BaseURL, "/")

	newTransport := func() *resty.Client {
		rc := resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "prophit/1.0")
		if cfg.APIKey != "" {
			rc.SetHeader("apikey", cfg.APIKey)
		}
		return rc
	}

	read := newTransport().
		SetRetryCount(1).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError
		})

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	orderTTL := cfg.OrderTTL
	if orderTTL <= 0 {
		orderTTL = 5 * time.Minute
	}

	return &Client{
		read:       read,
		write:      newTransport(),
		apiKey:     cfg.APIKey,
		signer:     signer,
		exchange:   common.HexToAddress(cfg.ExchangeAddress),
		collateral: common.HexToAddress(cfg.CollateralAddress),
		ctf:        common.HexToAddress(cfg.CTFAddress),
		orderTTL:   orderTTL,
		dryRun:     cfg.DryRun,
		quoteOnly:  cfg.QuoteOnly,
		approver:   cfg.Approver,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     cfg.Logger,
	}, nil
}

// Protocol identifies the venue.
func (c *Client) Protocol() types.Protocol { return types.ProtocolOpinion }

// Authenticate is a no-op: Opinion authenticates with the static API
// key header attached to every request.
func (c *Client) Authenticate(_ context.Context) error { return nil }

// envelope is the response wrapper every Opinion endpoint uses.
type envelope struct {
	Errno  int             `json:"errno"`
	Errmsg string          `json:"errmsg"`
	Result json.RawMessage `json:"result"`
}

// call runs one request through the given transport and unwraps the
// errno envelope into out.
func (c *Client) call(ctx context.Context, transport *resty.Client, op, method, path string, query map[string]string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit wait: %w", op, err)
	}

	req := transport.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		venues.ObserveRequest(venueLabel, op, "transport-error", time.Since(start).Seconds())
		return &types.TransientNetworkError{Op: op, Err: err}
	}
	venues.ObserveRequest(venueLabel, op, strconv.Itoa(resp.StatusCode()), time.Since(start).Seconds())

	if !resp.IsSuccess() {
		return venues.ClassifyStatus(types.ProtocolOpinion, op, resp.StatusCode(), resp.Body())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("%s: unmarshal envelope: %w", op, err)
	}
	if env.Errno != 0 {
		return envelopeError(env.Errno, env.Errmsg)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: unmarshal result: %w", op, err)
		}
	}

	return nil
}

// envelopeError converts a non-zero errno into the shared taxonomy.
// The envelope arrives with HTTP 200, so the errno carries the whole
// verdict.
func envelopeError(errno int, errmsg string) error {
	code := venues.InferRejectionCode(errmsg)
	if code == "BAD_REQUEST" {
		code = fmt.Sprintf("ERRNO_%d", errno)
	}

	return &types.ValidationError{Protocol: types.ProtocolOpinion, Code: code, Message: errmsg}
}
