package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal tracks execution attempts by outcome.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prophit_execution_executions_total",
			Help: "Total number of execution attempts by outcome",
		},
		[]string{"outcome"},
	)

	// LegsPlacedTotal tracks placed legs by venue and side.
	LegsPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prophit_execution_legs_placed_total",
			Help: "Total number of legs placed",
		},
		[]string{"venue", "leg"},
	)

	// LegFailuresTotal tracks leg placement failures by venue and side.
	LegFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prophit_execution_leg_failures_total",
			Help: "Total number of leg placement failures",
		},
		[]string{"venue", "leg"},
	)

	// StrandedLegsTotal tracks positions left holding a single leg.
	StrandedLegsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_execution_stranded_legs_total",
		Help: "Total number of positions stranded with one unhedged leg",
	})

	// LossesRecordedUsdt accumulates losses fed to the daily breaker.
	LossesRecordedUsdt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_execution_losses_recorded_usdt",
		Help: "Cumulative realized losses recorded against the daily limit in USDT",
	})

	// BreakerRejectionsTotal tracks opportunities rejected by the breaker.
	BreakerRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_execution_breaker_rejections_total",
		Help: "Total number of opportunities rejected while the daily loss breaker was open",
	})

	// ExecutionDurationSeconds tracks end-to-end execution latency.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_execution_duration_seconds",
		Help:    "Duration of one two-leg execution",
		Buckets: prometheus.DefBuckets,
	})

	// FillWaitSeconds tracks time spent polling for fill confirmation.
	FillWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_execution_fill_wait_seconds",
		Help:    "Time spent waiting for order fill confirmation",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// ExecutionErrorsTotal tracks execution failures.
	ExecutionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_execution_errors_total",
		Help: "Total number of execution errors",
	})
)
