package execution

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// VaultWriter is the chain write surface vault execution drives. The
// wallet signer satisfies it.
type VaultWriter interface {
	ExecuteArbitrage(ctx context.Context, vault, adapterA, adapterB common.Address, marketID common.Hash, amount *big.Int) (string, error)
}

// VaultConfig holds vault executor configuration.
type VaultConfig struct {
	Writer   VaultWriter
	Vault    common.Address
	AdapterA common.Address
	AdapterB common.Address
	MarketID common.Hash
	Breaker  LossBreaker
	Logger   *zap.Logger
}

// VaultExecutor runs both legs of a spread inside one contract call.
// The contract settles atomically, so there is no stranded state to
// manage: an execution either completes or aborts clean.
type VaultExecutor struct {
	writer   VaultWriter
	vault    common.Address
	adapterA common.Address
	adapterB common.Address
	marketID common.Hash
	breaker  LossBreaker
	logger   *zap.Logger

	mu sync.Mutex // serializes executions
}

// NewVault creates a vault executor.
func NewVault(cfg *VaultConfig) (*VaultExecutor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("vault writer is required")
	}
	if cfg.Vault == (common.Address{}) {
		return nil, fmt.Errorf("vault address is required")
	}
	if cfg.AdapterA == (common.Address{}) || cfg.AdapterB == (common.Address{}) {
		return nil, fmt.Errorf("both adapter addresses are required")
	}

	return &VaultExecutor{
		writer:   cfg.Writer,
		vault:    cfg.Vault,
		adapterA: cfg.AdapterA,
		adapterB: cfg.AdapterB,
		marketID: cfg.MarketID,
		breaker:  cfg.Breaker,
		logger:   cfg.Logger,
	}, nil
}

// Execute sends one executeArbitrage call sized from the opportunity
// and waits for it to mine. A failed or reverted call moves nothing,
// so it comes back as a clean abort with no loss recorded.
func (e *VaultExecutor) Execute(ctx context.Context, opp *types.ArbitOpportunity) (*Result, error) {
	if opp == nil {
		return nil, fmt.Errorf("opportunity is required")
	}
	if opp.Shares == nil || opp.Shares.Sign() <= 0 {
		return nil, fmt.Errorf("opportunity %s has no size", opp.ID)
	}
	if e.breaker != nil && !e.breaker.Allow() {
		BreakerRejectionsTotal.Inc()
		return nil, fmt.Errorf("execute %s: %w", opp.ID, ErrBreakerOpen)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	yesCost := types.NotionalUsdt(opp.YesPriceA, opp.Shares)
	noCost := types.NotionalUsdt(opp.NoPriceB, opp.Shares)
	amount := new(big.Int).Add(yesCost, noCost)

	e.logger.Info("executing-vault-spread",
		zap.String("opportunity_id", opp.ID),
		zap.String("fingerprint", opp.MarketID),
		zap.String("vault", e.vault.Hex()),
		zap.String("amount", types.FormatUsdt(amount)),
		zap.Int64("spread_bps", opp.SpreadBps))

	txHash, err := e.writer.ExecuteArbitrage(ctx, e.vault, e.adapterA, e.adapterB, e.marketID, amount)
	if err != nil {
		e.logger.Warn("vault-execution-aborted",
			zap.String("opportunity_id", opp.ID),
			zap.Error(err))
		ExecutionsTotal.WithLabelValues(string(OutcomeAborted)).Inc()
		ExecutionErrorsTotal.Inc()

		return &Result{
			OpportunityID: opp.ID,
			Outcome:       OutcomeAborted,
			Err:           fmt.Errorf("vault execution: %w", err),
			Duration:      time.Since(start),
		}, nil
	}

	pos := &types.Position{
		ID:           uuid.NewString(),
		MarketID:     opp.MarketID,
		ProtocolA:    opp.ProtocolA,
		ProtocolB:    opp.ProtocolB,
		BoughtYesOnA: opp.BuyYesOnA,
		SharesA:      new(big.Int).Set(opp.Shares),
		SharesB:      new(big.Int).Set(opp.Shares),
		CostA:        yesCost,
		CostB:        noCost,
		OpenedAt:     time.Now().UnixMilli(),
		Closed:       false,
	}

	ExecutionsTotal.WithLabelValues(string(OutcomeCompleted)).Inc()

	e.logger.Info("vault-spread-executed",
		zap.String("opportunity_id", opp.ID),
		zap.String("fingerprint", opp.MarketID),
		zap.String("tx", txHash),
		zap.String("cost_a", types.FormatUsdt(pos.CostA)),
		zap.String("cost_b", types.FormatUsdt(pos.CostB)),
		zap.Duration("duration", time.Since(start)))

	return &Result{
		OpportunityID: opp.ID,
		Outcome:       OutcomeCompleted,
		Position:      pos,
		Duration:      time.Since(start),
	}, nil
}
