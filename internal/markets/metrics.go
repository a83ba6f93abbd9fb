package markets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeeFetchDuration tracks catalog fee fetch latency.
	FeeFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_markets_fee_fetch_duration_seconds",
		Help:    "Duration of per-market fee fetches from venue catalogs",
		Buckets: prometheus.DefBuckets,
	})

	// FeeFetchErrorsTotal tracks fee fetch failures.
	FeeFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_markets_fee_fetch_errors_total",
		Help: "Total number of fee fetch errors",
	})

	// FeeCacheHitsTotal tracks cache hits for fee lookups.
	FeeCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_markets_fee_cache_hits_total",
		Help: "Total number of fee cache hits",
	})

	// FeeCacheMissesTotal tracks cache misses for fee lookups.
	FeeCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_markets_fee_cache_misses_total",
		Help: "Total number of fee cache misses",
	})
)
