// Package service ties the rating engine to its inputs and outputs: it
// fetches players from the upstream API (through the player cache), rates
// them, logs warnings, records metrics and hands reports to the persist
// worker.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/squadlab/posrating/internal/cache"
	"github.com/squadlab/posrating/internal/dispatcher"
	"github.com/squadlab/posrating/internal/logging"
	"github.com/squadlab/posrating/internal/rating"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/internal/worker"
	"github.com/squadlab/posrating/pkg/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// Rating sources, used as metric attributes and persist job sources.
const (
	SourceAPI        = "api"
	SourceAttributes = "attributes"
)

// DefaultConcurrency bounds RatePlayers.
const DefaultConcurrency = 4

var (
	// ErrNoStorage is returned by report lookups when no backend is configured.
	ErrNoStorage = errors.New("no storage backend configured")
	// ErrNoPlayerSource is returned by RatePlayer when no upstream client is configured.
	ErrNoPlayerSource = errors.New("no player source configured")
)

// PlayerSource fetches players by ID. *api.Client satisfies it.
type PlayerSource interface {
	GetPlayer(ctx context.Context, id uint) (core.Player, error)
}

// HealthChecker is implemented by player sources that can report reachability.
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by the service
type Dependencies struct {
	Engine  *rating.Engine
	Players PlayerSource
	Cache   *cache.PlayerCache
	Storage storage.Backend
	// Dispatcher persists reports through the worker when it has a persist
	// handler. Without one, reports are saved synchronously.
	Dispatcher  *dispatcher.Dispatcher
	LogManager  *logging.SlogManager
	Concurrency int
	Now         func() time.Time
}

// Service rates players.
type Service struct {
	deps Dependencies

	computed metric.Int64Counter
	rejected metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a service. An engine is required; everything else is optional.
func New(deps Dependencies) (*Service, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("service: rating engine is required")
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = DefaultConcurrency
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Service{deps: deps}
	m := meter()

	var err error
	s.computed, err = m.Int64Counter(
		"ratings.computed",
		metric.WithDescription("Players rated successfully"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating computed counter: %w", err)
	}
	s.rejected, err = m.Int64Counter(
		"ratings.rejected",
		metric.WithDescription("Rating requests that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}
	s.duration, err = m.Float64Histogram(
		"ratings.duration",
		metric.WithDescription("Time to fetch and rate one player"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return s, nil
}

// Tables returns the tables the engine rates with.
func (s *Service) Tables() *rating.Tables {
	return s.deps.Engine.Tables()
}

// Healthcheck reports whether the upstream player API is reachable. Sources
// without a health check are assumed healthy.
func (s *Service) Healthcheck(ctx context.Context) error {
	if hc, ok := s.deps.Players.(HealthChecker); ok {
		return hc.Healthcheck(ctx)
	}
	return nil
}

// InvalidatePlayer drops a cached upstream record so the next rating refetches it.
func (s *Service) InvalidatePlayer(id uint) {
	if s.deps.Cache != nil {
		s.deps.Cache.Delete(id)
	}
}

// RatePlayer fetches a player, rates it and queues the report for persistence.
func (s *Service) RatePlayer(ctx context.Context, id uint) (*core.RatingReport, error) {
	start := s.deps.Now()

	p, err := s.player(ctx, id)
	if err != nil {
		s.reject(ctx, SourceAPI, err)
		return nil, err
	}

	report, err := s.deps.Engine.Rate(p)
	if err != nil {
		s.reject(ctx, SourceAPI, err)
		return nil, err
	}

	elapsed := s.deps.Now().Sub(start)
	s.observe(ctx, SourceAPI, report, elapsed)
	s.persist(ctx, report, SourceAPI, elapsed)
	return report, nil
}

// RatePlayers rates several players concurrently. Reports come back in the
// order of ids; a failed player leaves a nil entry and contributes to the
// joined error.
func (s *Service) RatePlayers(ctx context.Context, ids []uint) ([]*core.RatingReport, error) {
	reports := make([]*core.RatingReport, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(s.deps.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			r, err := s.RatePlayer(ctx, id)
			if err != nil {
				errs[i] = fmt.Errorf("player %d: %w", id, err)
				return nil
			}
			reports[i] = r
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}

// RateAttributes rates an inline player description. The result is not persisted.
func (s *Service) RateAttributes(ctx context.Context, req AttributesRequest) (*core.RatingReport, error) {
	start := s.deps.Now()

	p, err := req.Player()
	if err != nil {
		s.reject(ctx, SourceAttributes, err)
		return nil, err
	}

	report, err := s.deps.Engine.Rate(p)
	if err != nil {
		s.reject(ctx, SourceAttributes, err)
		return nil, err
	}

	s.observe(ctx, SourceAttributes, report, s.deps.Now().Sub(start))
	return report, nil
}

// LatestReport returns the most recent stored report for a player.
func (s *Service) LatestReport(ctx context.Context, id uint) (*core.RatingReport, error) {
	if s.deps.Storage == nil {
		return nil, ErrNoStorage
	}
	return s.deps.Storage.GetReport(ctx, id)
}

// History returns up to limit stored reports for a player, newest first.
func (s *Service) History(ctx context.Context, id uint, limit int) ([]*core.RatingReport, error) {
	if s.deps.Storage == nil {
		return nil, ErrNoStorage
	}
	return s.deps.Storage.History(ctx, id, limit)
}

func (s *Service) player(ctx context.Context, id uint) (core.Player, error) {
	if s.deps.Cache != nil {
		if p, ok := s.deps.Cache.Get(id); ok {
			return p, nil
		}
	}
	if s.deps.Players == nil {
		return core.Player{}, ErrNoPlayerSource
	}

	p, err := s.deps.Players.GetPlayer(ctx, id)
	if err != nil {
		return core.Player{}, err
	}
	if s.deps.Cache != nil {
		s.deps.Cache.Set(p)
	}
	return p, nil
}

func (s *Service) observe(ctx context.Context, source string, r *core.RatingReport, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("source", source))
	s.computed.Add(ctx, 1, attrs)
	s.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)

	logger := s.deps.LogManager.Logger()
	for _, w := range r.Warnings {
		logger.Warn("Rating warning", "player", r.PlayerID, "source", source, "warning", w)
	}
	logger.Debug("Player rated",
		"player", r.PlayerID,
		"source", source,
		"best", r.Best.String(),
		"tablesVersion", r.TablesVersion,
		"duration", elapsed,
	)
}

func (s *Service) reject(ctx context.Context, source string, err error) {
	s.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("reason", Reason(err)),
	))
	s.deps.LogManager.Logger().Debug("Rating rejected", "source", source, "error", err)
}

func (s *Service) persist(ctx context.Context, r *core.RatingReport, source string, elapsed time.Duration) {
	logger := s.deps.LogManager.Logger()

	d := s.deps.Dispatcher
	if d != nil && d.HasHandler(worker.CommandPersist) {
		_, err := d.Dispatch(ctx, dispatcher.Event{
			Command: worker.CommandPersist,
			Payload: worker.Job{Report: r, Source: source, Duration: elapsed},
		})
		if err != nil {
			logger.Error("Failed to queue report", "player", r.PlayerID, "error", err)
		}
		return
	}

	if s.deps.Storage == nil {
		return
	}
	if err := s.deps.Storage.SaveReport(ctx, r); err != nil {
		logger.Error("Failed to save report", "player", r.PlayerID, "error", err)
	}
}
