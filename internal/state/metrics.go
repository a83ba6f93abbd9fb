package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SnapshotWritesTotal counts successful snapshot saves.
var SnapshotWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "prophit_state_snapshot_writes_total",
	Help: "Total number of state snapshots written to disk",
})

// SnapshotErrorsTotal counts failed snapshot saves.
var SnapshotErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "prophit_state_snapshot_errors_total",
	Help: "Total number of state snapshot writes that failed",
})

// SnapshotPositions tracks the position count in the latest snapshot.
var SnapshotPositions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "prophit_state_snapshot_positions",
	Help: "Number of positions in the most recently written snapshot",
})
