package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Tracker periodically reads wallet state and updates Prometheus
// metrics. It is the observability side of the wallet; nothing trades
// through it.
type Tracker struct {
	client       *Client
	address      common.Address
	usdt         common.Address
	spenders     map[string]common.Address
	pollInterval time.Duration
	logger       *zap.Logger
}

// Config holds tracker configuration.
type Config struct {
	RPCEndpoint  string
	Address      common.Address
	USDTAddress  common.Address
	Spenders     map[string]common.Address
	PollInterval time.Duration
	Logger       *zap.Logger
}

// New creates a new wallet tracker.
func New(cfg *Config) (t *Tracker, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.RPCEndpoint == "" {
		return nil, errors.New("RPC endpoint cannot be empty")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	client, err := NewClient(cfg.RPCEndpoint, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	tracker := &Tracker{
		client:       client,
		address:      cfg.Address,
		usdt:         cfg.USDTAddress,
		spenders:     cfg.Spenders,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}

	return tracker, nil
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) (err error) {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	// Initial poll
	pollErr := t.poll(ctx)
	if pollErr != nil {
		t.logger.Error("initial-poll-failed", zap.Error(pollErr))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			pollErr = t.poll(ctx)
			if pollErr != nil {
				t.logger.Error("poll-failed", zap.Error(pollErr))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

// poll performs a single polling cycle.
func (t *Tracker) poll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	balCtx, balCancel := context.WithTimeout(ctx, 15*time.Second)
	defer balCancel()

	balances, err := t.client.GetBalances(balCtx, t.address, t.usdt, t.spenders)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	t.updateMetrics(balances)
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("poll-complete",
		zap.Int("allowance-count", len(balances.Allowances)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// updateMetrics updates Prometheus gauges with wallet state.
func (t *Tracker) updateMetrics(balances *Balances) {
	// Convert gas balance from wei to float64
	gasFloat := new(big.Float).Quo(
		new(big.Float).SetInt(balances.Gas),
		big.NewFloat(1e18))
	gasVal, _ := gasFloat.Float64()
	GasBalance.Set(gasVal)

	// Convert USDT from 6 decimals to float64
	usdtFloat := new(big.Float).Quo(
		new(big.Float).SetInt(balances.USDT),
		big.NewFloat(1e6))
	usdtVal, _ := usdtFloat.Float64()
	CollateralBalance.Set(usdtVal)

	for venue, allowance := range balances.Allowances {
		allowanceFloat := new(big.Float).Quo(
			new(big.Float).SetInt(allowance),
			big.NewFloat(1e6))
		allowanceVal, _ := allowanceFloat.Float64()
		AllowanceBalance.WithLabelValues(venue).Set(allowanceVal)
	}
}
