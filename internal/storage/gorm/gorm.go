// Package gormstorage implements the storage.Backend interface on top of a
// GORM connection. The postgres and sqlite backends embed it.
package gormstorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/squadlab/posrating/internal/database"
	"github.com/squadlab/posrating/internal/logging"
	"github.com/squadlab/posrating/internal/model"
	"github.com/squadlab/posrating/internal/model/convert"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	TablesVersion string
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database connection")
	}
	b.deps.LogManager.WriteLog("gorm:Init", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB, b.deps.TablesVersion); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("gorm:Init", "Database setup complete", "INFO")
	return nil
}

// Close is a no-op; the connection owner closes it.
func (b *Backend) Close() error {
	return nil
}

// SaveReport inserts the report and its position rows in one transaction.
func (b *Backend) SaveReport(ctx context.Context, r *core.RatingReport) error {
	if r == nil {
		return fmt.Errorf("nil report")
	}
	m := convert.CoreToReport(r)
	err := b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&m).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert report for player %d: %w", r.PlayerID, err)
	}
	return nil
}

// GetReport returns the most recent report for playerID.
func (b *Backend) GetReport(ctx context.Context, playerID uint) (*core.RatingReport, error) {
	var m model.RatingReport
	err := b.reportsQuery(ctx, playerID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("player %d: %w", playerID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report for player %d: %w", playerID, err)
	}
	return convert.ReportToCore(m)
}

// History returns up to limit reports for playerID, newest first.
func (b *Backend) History(ctx context.Context, playerID uint, limit int) ([]*core.RatingReport, error) {
	q := b.reportsQuery(ctx, playerID)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []model.RatingReport
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load history for player %d: %w", playerID, err)
	}

	out := make([]*core.RatingReport, 0, len(rows))
	for _, m := range rows {
		r, err := convert.ReportToCore(m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (b *Backend) reportsQuery(ctx context.Context, playerID uint) *gorm.DB {
	return b.deps.DB.WithContext(ctx).
		Preload("Ratings", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("player_id = ?", playerID).
		Order("rated_at desc").
		Order("id desc")
}
