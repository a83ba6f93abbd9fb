package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogMarketsTotal counts binary markets accepted per venue catalog.
	CatalogMarketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_discovery_catalog_markets_total",
		Help: "Total binary markets accepted from venue catalogs",
	}, []string{"venue"})

	// CatalogErrorsTotal counts venue catalog fetch failures.
	CatalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_discovery_catalog_errors_total",
		Help: "Total venue catalog fetch failures",
	}, []string{"venue"})

	// MarketsFilteredTotal counts catalog rows dropped before pairing.
	MarketsFilteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_discovery_markets_filtered_total",
		Help: "Total catalog rows dropped before pairing",
	}, []string{"venue", "reason"})

	// PairsMatchedTotal counts cross-venue pairs published.
	PairsMatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_discovery_pairs_matched_total",
		Help: "Total cross-venue pairs published",
	})

	// PairsDroppedTotal counts matches that could not be published.
	PairsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_discovery_pairs_dropped_total",
		Help: "Total matches dropped during map assembly",
	}, []string{"reason"})

	// TrackedFingerprints reports fingerprints in the live snapshot.
	TrackedFingerprints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_discovery_tracked_fingerprints",
		Help: "Fingerprints present in the live discovery snapshot",
	})

	// RefreshDurationSeconds tracks full pipeline refresh latency.
	RefreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_discovery_refresh_duration_seconds",
		Help:    "Duration of full discovery refreshes",
		Buckets: prometheus.DefBuckets,
	})

	// RefreshErrorsTotal counts refreshes that failed outright.
	RefreshErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_discovery_refresh_errors_total",
		Help: "Total discovery refreshes where every venue catalog failed",
	})
)
