package markets

import (
	"testing"
)

// TestMetrics_Registration tests all metrics are initialized
func TestMetrics_Registration(t *testing.T) {
	if FeeFetchDuration == nil {
		t.Error("FeeFetchDuration not registered")
	}

	if FeeFetchErrorsTotal == nil {
		t.Error("FeeFetchErrorsTotal not registered")
	}

	if FeeCacheHitsTotal == nil {
		t.Error("FeeCacheHitsTotal not registered")
	}

	if FeeCacheMissesTotal == nil {
		t.Error("FeeCacheMissesTotal not registered")
	}
}

// TestMetrics_CounterIncrement tests counter can be incremented
func TestMetrics_CounterIncrement(t *testing.T) {
	FeeFetchErrorsTotal.Inc()
	FeeCacheHitsTotal.Inc()
	FeeCacheMissesTotal.Inc()
}

// TestMetrics_HistogramObserve tests histogram can observe values
func TestMetrics_HistogramObserve(t *testing.T) {
	FeeFetchDuration.Observe(0.1)
}
