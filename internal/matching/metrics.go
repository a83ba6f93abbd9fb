package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchesTotal tracks emitted matches by pass.
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prophit_matching_matches_total",
			Help: "Total market pairs matched, labeled by match type",
		},
		[]string{"match_type"},
	)

	// CandidatesBlockedTotal tracks pairs rejected by a guard.
	CandidatesBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prophit_matching_candidates_blocked_total",
			Help: "Total candidate pairs blocked before emission",
		},
		[]string{"reason"},
	)

	// PolarityFlipsTotal tracks emitted matches with inverted outcomes.
	PolarityFlipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_matching_polarity_flips_total",
		Help: "Total matches emitted with polarityFlip set",
	})

	// MatchDurationSeconds tracks full three-pass run latency.
	MatchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prophit_matching_duration_seconds",
		Help:    "Duration of one matching engine run",
		Buckets: prometheus.DefBuckets,
	})
)
