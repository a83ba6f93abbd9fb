package websocket

import (
	"testing"
)

// TestMetrics_Registration tests all metrics are initialized
func TestMetrics_Registration(t *testing.T) {
	if ClientsActive == nil {
		t.Error("ClientsActive not registered")
	}

	if BroadcastsTotal == nil {
		t.Error("BroadcastsTotal not registered")
	}

	if MessagesSentTotal == nil {
		t.Error("MessagesSentTotal not registered")
	}

	if MessagesDroppedTotal == nil {
		t.Error("MessagesDroppedTotal not registered")
	}

	if UpgradeFailuresTotal == nil {
		t.Error("UpgradeFailuresTotal not registered")
	}

	if ConnectionDuration == nil {
		t.Error("ConnectionDuration not registered")
	}
}

// TestMetrics_CounterIncrement tests counters can be incremented
func TestMetrics_CounterIncrement(t *testing.T) {
	BroadcastsTotal.Inc()
	MessagesSentTotal.Inc()
	UpgradeFailuresTotal.Inc()
	MessagesDroppedTotal.WithLabelValues("slow_client").Inc()
}

// TestMetrics_GaugeSet tests gauges can be set
func TestMetrics_GaugeSet(t *testing.T) {
	ClientsActive.Set(1)
	ClientsActive.Inc()
	ClientsActive.Dec()
}

// TestMetrics_HistogramObserve tests histograms can observe values
func TestMetrics_HistogramObserve(t *testing.T) {
	ConnectionDuration.Observe(3600)
}
