package cache

import (
	"testing"
)

// TestMetrics_Registration tests all metrics are initialized
func TestMetrics_Registration(t *testing.T) {
	if LookupsTotal == nil {
		t.Error("LookupsTotal not registered")
	}

	if WritesDroppedTotal == nil {
		t.Error("WritesDroppedTotal not registered")
	}
}

// TestMetrics_CounterIncrement tests counter can be incremented
func TestMetrics_CounterIncrement(t *testing.T) {
	LookupsTotal.WithLabelValues("hit").Inc()
	LookupsTotal.WithLabelValues("miss").Inc()
	WritesDroppedTotal.Inc()
}
