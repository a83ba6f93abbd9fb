package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupsTotal counts Get calls by outcome (hit or miss).
	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_cache_lookups_total",
		Help: "Total number of metadata cache lookups by outcome",
	}, []string{"outcome"})

	// WritesDroppedTotal counts Set calls ristretto declined to admit.
	WritesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_cache_writes_dropped_total",
		Help: "Total number of metadata cache writes dropped at admission",
	})
)
