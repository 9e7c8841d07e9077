// Package monitor periodically snapshots service health: persistence
// counters, the last storage write time and the player cache size. Each
// snapshot is written to a status file and, when a sink is configured, to the
// time-series store.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/squadlab/posrating/internal/cache"
	"github.com/squadlab/posrating/internal/logging"
	"github.com/squadlab/posrating/internal/worker"
)

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = 10 * time.Second

// StatusSink receives status snapshots. *influx.Manager satisfies it.
type StatusSink interface {
	WriteStatus(ctx context.Context, fields map[string]any) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager    *logging.SlogManager
	WorkerManager *worker.Manager
	Cache         *cache.PlayerCache
	Sink          StatusSink
	// StatusPath is rewritten on every tick; empty disables the file.
	StatusPath string
	Interval   time.Duration
	StartedAt  time.Time
}

// Status is one snapshot.
type Status struct {
	Time             time.Time `json:"time"`
	UptimeSeconds    int64     `json:"uptimeSeconds"`
	ReportsPersisted int64     `json:"reportsPersisted"`
	PersistFailures  int64     `json:"persistFailures"`
	LastWriteMs      float64   `json:"lastWriteMs"`
	CachedPlayers    int       `json:"cachedPlayers"`
	ExpiredPurged    int       `json:"expiredPurged"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus takes a snapshot. Expired cache entries are purged first so the
// cache size reflects live entries only.
func (s *Service) GetStatus() Status {
	now := time.Now()
	st := Status{
		Time:          now.UTC(),
		UptimeSeconds: int64(now.Sub(s.deps.StartedAt).Seconds()),
	}
	if s.deps.WorkerManager != nil {
		stats := s.deps.WorkerManager.Stats()
		st.ReportsPersisted = stats.Persisted
		st.PersistFailures = stats.Failed
		st.LastWriteMs = float64(stats.LastWriteDuration.Microseconds()) / 1000
	}
	if s.deps.Cache != nil {
		st.ExpiredPurged = s.deps.Cache.Purge()
		st.CachedPlayers = s.deps.Cache.Len()
	}
	return st
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

func (s *Service) tick() {
	logger := s.deps.LogManager.Logger()
	st := s.GetStatus()

	if s.deps.StatusPath != "" {
		if err := writeStatusFile(s.deps.StatusPath, st); err != nil {
			logger.Error("Error writing status file", "path", s.deps.StatusPath, "error", err)
		}
	}

	if s.deps.Sink != nil {
		err := s.deps.Sink.WriteStatus(context.Background(), map[string]any{
			"reports_persisted": st.ReportsPersisted,
			"persist_failures":  st.PersistFailures,
			"last_write_ms":     st.LastWriteMs,
			"cached_players":    st.CachedPlayers,
			"uptime_s":          st.UptimeSeconds,
		})
		if err != nil {
			logger.Error("Error writing status point", "error", err)
		}
	}
}

func writeStatusFile(path string, st Status) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return os.Rename(tmp, path)
}
