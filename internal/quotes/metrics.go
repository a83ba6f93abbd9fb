package quotes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // prometheus metrics are package-level by convention
var (
	// FetchesTotal counts book polls per venue.
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_quotes_fetches_total",
		Help: "Total order book polls per venue",
	}, []string{"venue"})

	// FetchErrorsTotal counts failed book polls per venue.
	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_quotes_fetch_errors_total",
		Help: "Total failed order book polls per venue",
	}, []string{"venue"})

	// SkippedTotal counts markets that produced no quote, by reason.
	SkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_quotes_skipped_total",
		Help: "Markets skipped during quoting, by reason",
	}, []string{"venue", "reason"})

	// DeadMarkets gauges the per-venue dead set size.
	DeadMarkets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "prophit_quotes_dead_markets",
		Help: "Markets the venue reports gone and no longer polled",
	}, []string{"venue"})

	// FetchDuration tracks book poll latency per venue.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prophit_quotes_fetch_duration_seconds",
		Help:    "Order book poll latency per venue",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue"})

	// StoredQuotes gauges quotes currently held in the store.
	StoredQuotes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_quotes_stored",
		Help: "Quotes currently held in the store across venues",
	})

	// StaleWritesTotal counts writes rejected for being older than the
	// stored quote.
	StaleWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_quotes_stale_writes_total",
		Help: "Store writes dropped because a fresher quote was already held",
	})
)
