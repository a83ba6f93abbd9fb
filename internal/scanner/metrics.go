package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts completed scan passes over the quote store.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_scanner_scans_total",
		Help: "Total number of completed scan passes",
	})

	// ScanDuration tracks scan pass latency.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_scanner_scan_duration_seconds",
		Help:    "Duration of one scan pass over the quote store",
		Buckets: prometheus.DefBuckets,
	})

	// OpportunitiesFound counts emitted opportunities.
	OpportunitiesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_scanner_opportunities_total",
		Help: "Total number of opportunities emitted by scans",
	})

	// RejectedTotal counts candidates dropped by filter, by reason.
	RejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prophit_scanner_rejected_total",
			Help: "Total number of candidate spreads rejected",
		},
		[]string{"reason"},
	)

	// NetSpreadBps tracks the net spread of emitted opportunities.
	NetSpreadBps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_scanner_net_spread_bps",
		Help:    "Net spread after fees of emitted opportunities in basis points",
		Buckets: []float64{25, 50, 100, 150, 200, 300, 500, 1000, 2000},
	})

	// OpportunitySizeUsdt tracks estimated profit of emitted opportunities.
	OpportunitySizeUsdt = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_scanner_opportunity_profit_usdt",
		Help:    "Estimated profit of emitted opportunities in USDT",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)
