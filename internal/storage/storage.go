// Package storage archives detected opportunities and executed positions.
// Three implementations: console pretty-printing for local runs, postgres
// for a shared archive, sqlite for a single-host file archive.
package storage

import (
	"context"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Storage is the archive sink for scan and execution output.
type Storage interface {
	// StoreOpportunity archives a detected spread opportunity.
	StoreOpportunity(ctx context.Context, opp *types.ArbitOpportunity) error

	// StorePosition archives an executed (possibly stranded) position.
	StorePosition(ctx context.Context, pos *types.Position) error

	// Close closes the storage connection.
	Close() error
}
