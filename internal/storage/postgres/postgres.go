// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
// When Postgres is unreachable the database manager falls back to an in-memory
// SQLite database, which is dumped to disk on Close.
package postgres

import (
	"fmt"

	"github.com/squadlab/posrating/internal/database"
	"github.com/squadlab/posrating/internal/logging"
	gormstorage "github.com/squadlab/posrating/internal/storage/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	DBManager     *database.Manager
	LogManager    *logging.SlogManager
	TablesVersion string
}

// Backend embeds the GORM backend and owns the database connection.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// Init connects through the database manager and migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DBManager == nil {
		return fmt.Errorf("postgres backend: no database manager")
	}
	if err := b.deps.DBManager.Connect(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if b.deps.DBManager.ShouldSaveLocal {
		b.deps.LogManager.WriteLog("postgres:Init",
			fmt.Sprintf("Postgres unavailable, reports will be dumped to %s", b.deps.DBManager.SqliteFilePath), "WARN")
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            b.deps.DBManager.DB,
		LogManager:    b.deps.LogManager,
		TablesVersion: b.deps.TablesVersion,
	})
	return b.Backend.Init()
}

// Close dumps the fallback database if one is in use and closes the connection.
func (b *Backend) Close() error {
	m := b.deps.DBManager
	if m == nil || m.DB == nil {
		return nil
	}
	if m.ShouldSaveLocal && m.SqliteFilePath != "" {
		if err := m.DumpMemoryToDisk(); err != nil {
			b.deps.LogManager.WriteLog("postgres:Close", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
		}
	}
	return m.Close()
}

// UsingFallback reports whether reports are going to the local SQLite fallback.
func (b *Backend) UsingFallback() bool {
	return b.deps.DBManager != nil && b.deps.DBManager.ShouldSaveLocal
}
