package venues

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Shared across the venue subpackages so every client reports on the
// same series.
//
//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	// RequestsTotal counts venue HTTP requests by endpoint and outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_venue_http_requests_total",
		Help: "Total venue HTTP requests by endpoint and status code",
	}, []string{"venue", "endpoint", "status"})

	// RequestDuration tracks venue round-trip latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prophit_venue_http_request_duration_seconds",
		Help:    "Venue HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue", "endpoint"})

	// AuthRefreshes counts credential refresh attempts by outcome.
	AuthRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_venue_auth_refreshes_total",
		Help: "Credential refresh attempts by venue and outcome",
	}, []string{"venue", "outcome"})

	// OrdersSubmitted counts order placements by venue and ack status.
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_venue_orders_submitted_total",
		Help: "Orders submitted by venue and acknowledged status",
	}, []string{"venue", "status"})

	// OrdersCancelled counts cancel requests by venue and outcome.
	OrdersCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prophit_venue_orders_cancelled_total",
		Help: "Order cancellations by venue and outcome",
	}, []string{"venue", "outcome"})
)

// ObserveRequest records one completed venue round trip.
func ObserveRequest(venue, endpoint, status string, seconds float64) {
	RequestsTotal.WithLabelValues(venue, endpoint, status).Inc()
	RequestDuration.WithLabelValues(venue, endpoint).Observe(seconds)
}
