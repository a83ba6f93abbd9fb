package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal counts completed agent ticks.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_agent_ticks_total",
		Help: "Total agent scan ticks completed",
	})

	// TickDurationSeconds tracks full tick latency including quote refresh.
	TickDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_agent_tick_duration_seconds",
		Help:    "Duration of one full agent tick",
		Buckets: prometheus.DefBuckets,
	})

	// OpportunitiesSeenTotal counts ticks where the scanner produced at
	// least one actionable opportunity.
	OpportunitiesSeenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_agent_opportunities_seen_total",
		Help: "Total top opportunities surfaced to the agent",
	})

	// TradesExecutedTotal counts executions that placed shares, by outcome.
	TradesExecutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_agent_trades_executed_total",
		Help: "Total executions that produced a position",
	}, []string{"outcome"})

	// TradesSkippedTotal counts opportunities not handed to the executor.
	TradesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_agent_trades_skipped_total",
		Help: "Total top opportunities skipped before execution",
	}, []string{"reason"})

	// ExecutionFailuresTotal counts executor calls that returned an error.
	ExecutionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_agent_execution_failures_total",
		Help: "Total executor invocations that failed",
	})

	// BreakerTripsTotal counts daily loss breaker trip events observed.
	BreakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_agent_breaker_trips_total",
		Help: "Total daily loss breaker trips observed by the agent",
	})

	// StaleOrdersCancelledTotal counts resting orders swept per venue.
	StaleOrdersCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_agent_stale_orders_cancelled_total",
		Help: "Total resting orders cancelled by yield rotation",
	}, []string{"venue"})

	// SessionTrades reports trades executed in the current session.
	SessionTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_agent_session_trades",
		Help: "Trades executed in the current agent session",
	})
)
