// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/squadlab/posrating/internal/config"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/pkg/core"
)

// Backend keeps every report in memory and exports the latest report per
// player to JSON on Close.
type Backend struct {
	cfg config.MemoryConfig

	// history is keyed by player ID, oldest report first
	history map[uint][]*core.RatingReport

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		history: make(map[uint][]*core.RatingReport),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the stored reports when an output directory is configured.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	_, err := b.Export()
	return err
}

// SaveReport stores a copy of r.
func (b *Backend) SaveReport(_ context.Context, r *core.RatingReport) error {
	if r == nil {
		return fmt.Errorf("nil report")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := cloneReport(r)
	b.history[r.PlayerID] = append(b.history[r.PlayerID], cp)
	return nil
}

// GetReport returns the most recent report for playerID.
func (b *Backend) GetReport(_ context.Context, playerID uint) (*core.RatingReport, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	h := b.history[playerID]
	if len(h) == 0 {
		return nil, fmt.Errorf("player %d: %w", playerID, storage.ErrNotFound)
	}
	return cloneReport(h[len(h)-1]), nil
}

// History returns up to limit reports for playerID, newest first.
func (b *Backend) History(_ context.Context, playerID uint, limit int) ([]*core.RatingReport, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	h := b.history[playerID]
	n := len(h)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*core.RatingReport, 0, n)
	for i := len(h) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, cloneReport(h[i]))
	}
	return out, nil
}

// cloneReport copies r deeply enough that callers cannot mutate stored slices.
func cloneReport(r *core.RatingReport) *core.RatingReport {
	cp := *r
	cp.Secondary = append([]core.Position(nil), r.Secondary...)
	cp.Ratings = append([]core.PositionRating(nil), r.Ratings...)
	cp.Top3 = append([]core.Position(nil), r.Top3...)
	cp.Warnings = append([]string(nil), r.Warnings...)
	if r.Overall != nil {
		o := *r.Overall
		cp.Overall = &o
	}
	return &cp
}
