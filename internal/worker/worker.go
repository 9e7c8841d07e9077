// Package worker persists rating reports in the background. The service
// dispatches a Job per computed report and the handlers registered here write
// it to the storage backend and, when configured, to the metrics sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/squadlab/posrating/internal/logging"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/pkg/core"
)

// CommandPersist is the dispatcher command that stores a Job.
const CommandPersist = "persist"

// DefaultBufferSize is the persist queue length used when none is configured.
const DefaultBufferSize = 1000

// ErrBadPayload is returned when an event does not carry a Job.
var ErrBadPayload = errors.New("persist event without job payload")

// Job is one report to persist.
type Job struct {
	Report *core.RatingReport
	// Source is "api" for fetched players and "attributes" for inline requests.
	Source   string
	Duration time.Duration
}

// ReportSink receives time series for every persisted report.
// *influx.Manager satisfies it.
type ReportSink interface {
	WriteReport(ctx context.Context, r *core.RatingReport) error
	WriteDuration(ctx context.Context, source string, d time.Duration, ok bool) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	LogManager *logging.SlogManager
	// Sink is optional.
	Sink       ReportSink
	BufferSize int
}

// Stats is a snapshot of persistence counters.
type Stats struct {
	Persisted         int64
	Failed            int64
	LastWriteDuration time.Duration
}

// Manager owns the persist handlers.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	persisted atomic.Int64
	failed    atomic.Int64
	lastWrite atomic.Int64
}

// NewManager creates a new worker manager. backend may be nil, in which case
// only the sink receives reports.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.BufferSize <= 0 {
		deps.BufferSize = DefaultBufferSize
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// GetLastWriteDuration returns how long the last storage write took.
func (m *Manager) GetLastWriteDuration() time.Duration {
	return time.Duration(m.lastWrite.Load())
}

// Stats returns the current counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Persisted:         m.persisted.Load(),
		Failed:            m.failed.Load(),
		LastWriteDuration: m.GetLastWriteDuration(),
	}
}

func (m *Manager) persist(ctx context.Context, job Job) error {
	if job.Report == nil {
		return fmt.Errorf("%w: nil report", ErrBadPayload)
	}
	logger := m.deps.LogManager.Logger()

	var errs []error
	if m.backend != nil {
		start := time.Now()
		err := m.backend.SaveReport(ctx, job.Report)
		m.lastWrite.Store(int64(time.Since(start)))
		if err != nil {
			m.failed.Add(1)
			logger.Error("Failed to save report", "player", job.Report.PlayerID, "error", err)
			errs = append(errs, fmt.Errorf("saving report for player %d: %w", job.Report.PlayerID, err))
		} else {
			m.persisted.Add(1)
		}
	}

	if m.deps.Sink != nil {
		if err := m.deps.Sink.WriteReport(ctx, job.Report); err != nil {
			logger.Warn("Failed to write report metrics", "player", job.Report.PlayerID, "error", err)
			errs = append(errs, err)
		}
		if err := m.deps.Sink.WriteDuration(ctx, job.Source, job.Duration, len(errs) == 0); err != nil {
			logger.Warn("Failed to write run duration", "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
