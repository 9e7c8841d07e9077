// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/squadlab/posrating/pkg/core"
)

// ErrNotFound is returned when no report is stored for a player.
var ErrNotFound = errors.New("report not found")

// Backend is the interface all report storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveReport appends a report to the player's history.
	SaveReport(ctx context.Context, r *core.RatingReport) error
	// GetReport returns the most recent report for a player, or ErrNotFound.
	GetReport(ctx context.Context, playerID uint) (*core.RatingReport, error)
	// History returns up to limit reports for a player, newest first.
	// A limit of zero or less returns all of them.
	History(ctx context.Context, playerID uint, limit int) ([]*core.RatingReport, error)
}

// Exporter is an optional interface for backends that write their contents
// to a file.
type Exporter interface {
	Export() (string, error)
}
