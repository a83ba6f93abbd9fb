package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// GasBalance tracks the native token balance that pays for transactions.
	GasBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_wallet_gas_balance",
		Help: "Native token balance in the signing wallet (whole units)",
	})

	// CollateralBalance tracks the USDT balance available for trading.
	CollateralBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_wallet_usdt_balance",
		Help: "USDT balance in the signing wallet (USD)",
	})

	// AllowanceBalance tracks the USDT allowance granted to each venue exchange.
	AllowanceBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "prophit_wallet_usdt_allowance",
		Help: "USDT allowance granted to a venue exchange (USD)",
	}, []string{"venue"})

	// ApprovalsSentTotal counts approval transactions sent, by token standard.
	ApprovalsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_wallet_approvals_sent_total",
		Help: "Total approval transactions sent, by token standard",
	}, []string{"standard"})

	// TxRevertsTotal counts transactions that mined with a reverted status.
	TxRevertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_wallet_tx_reverts_total",
		Help: "Total transactions mined with a reverted status",
	})

	// ProxySweepsTotal counts USDT sweeps from the signer into the safe proxy.
	ProxySweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_wallet_proxy_sweeps_total",
		Help: "Total USDT sweeps from the signer into the safe proxy",
	})

	// VaultExecutionsTotal counts vault executeArbitrage calls by result.
	VaultExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_wallet_vault_executions_total",
		Help: "Total vault executeArbitrage transactions, by result",
	}, []string{"result"})

	// UpdateErrorsTotal tracks the number of failed balance poll attempts.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_wallet_update_errors_total",
		Help: "Total number of failed wallet update attempts",
	})

	// UpdateDuration tracks the time taken to fetch wallet data.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_wallet_update_duration_seconds",
		Help:    "Time taken to fetch wallet data (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp tracks the Unix timestamp of the last successful update.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_wallet_last_update_timestamp",
		Help: "Unix timestamp of last successful wallet update",
	})
)
