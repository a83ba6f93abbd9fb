// Package state persists the agent's session snapshot as a JSON file.
//
// Writes use atomic file replacement (write to .tmp, then rename) so the
// live file is never left in a partial state. The agent saves after every
// tick and loads on startup to resume a session without double-counting
// trades.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Snapshot is everything the agent needs to resume a session.
type Snapshot struct {
	TradesExecuted int              `json:"tradesExecuted"`
	Positions      []types.Position `json:"positions"`
	LastScan       int64            `json:"lastScan"` // unix ms
}

// Config holds state file configuration.
type Config struct {
	Path   string
	Logger *zap.Logger
}

// File owns one snapshot path. All operations are mutex-protected to
// prevent concurrent file corruption.
type File struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// New creates a state file handle and ensures its directory exists.
func New(cfg *Config) (*File, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	return &File{
		path:   cfg.Path,
		logger: cfg.Logger,
	}, nil
}

// Path returns the live snapshot path.
func (f *File) Path() string {
	return f.path
}

// Save atomically replaces the snapshot on disk. It writes to a .tmp
// file first, then renames over the target, so a crash mid-save cannot
// truncate the previous snapshot.
func (f *File) Save(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		SnapshotErrorsTotal.Inc()
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		SnapshotErrorsTotal.Inc()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		SnapshotErrorsTotal.Inc()
		return fmt.Errorf("replace snapshot: %w", err)
	}

	SnapshotWritesTotal.Inc()
	SnapshotPositions.Set(float64(len(snap.Positions)))

	f.logger.Debug("state-saved",
		zap.String("path", f.path),
		zap.Int("trades-executed", snap.TradesExecuted),
		zap.Int("positions", len(snap.Positions)))

	return nil
}

// Load restores the snapshot from disk. Returns nil, nil when no
// snapshot exists yet (fresh session).
func (f *File) Load() (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	f.logger.Info("state-restored",
		zap.String("path", f.path),
		zap.Int("trades-executed", snap.TradesExecuted),
		zap.Int("positions", len(snap.Positions)))

	return &snap, nil
}
