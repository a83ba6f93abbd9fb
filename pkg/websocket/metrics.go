package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClientsActive tracks connected stream clients.
	ClientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_ws_clients_active",
		Help: "Number of connected WebSocket stream clients",
	})

	// BroadcastsTotal tracks broadcast calls.
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_ws_broadcasts_total",
		Help: "Total number of payloads broadcast to stream clients",
	})

	// MessagesSentTotal tracks messages written to client connections.
	MessagesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_ws_messages_sent_total",
		Help: "Total number of WebSocket messages written to clients",
	})

	// MessagesDroppedTotal tracks messages dropped instead of written.
	MessagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prophit_ws_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped",
		},
		[]string{"reason"},
	)

	// UpgradeFailuresTotal tracks failed connection upgrades.
	UpgradeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_ws_upgrade_failures_total",
		Help: "Total number of failed WebSocket upgrade attempts",
	})

	// ConnectionDuration tracks client connection lifetime.
	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_ws_connection_duration_seconds",
		Help:    "Duration of WebSocket client connections before disconnect",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800, 43200, 86400},
	})
)
