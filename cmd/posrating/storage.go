package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/squadlab/posrating/internal/config"
	"github.com/squadlab/posrating/internal/database"
	"github.com/squadlab/posrating/internal/logging"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/internal/storage/memory"
	pgstorage "github.com/squadlab/posrating/internal/storage/postgres"
	sqlitestorage "github.com/squadlab/posrating/internal/storage/sqlite"
)

func createStorageBackend(a *app, storageCfg config.StorageConfig) (storage.Backend, error) {
	tablesVersion := a.engine.Tables().Version

	switch storageCfg.Type {
	case "postgres":
		dbManager := database.NewManager(logging.NewZerolog(a.logWriter(), viper.GetString("logLevel"), "database"))
		// used only when Postgres is unreachable
		dbManager.SqliteFilePath = sessionFilePath(storageCfg.SQLite.DumpPath, a)
		a.Logger.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{
			DBManager:     dbManager,
			LogManager:    a.LogManager,
			TablesVersion: tablesVersion,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Path:          storageCfg.SQLite.Path,
			DumpInterval:  storageCfg.SQLite.DumpInterval,
			DumpPath:      sessionFilePath(storageCfg.SQLite.DumpPath, a),
			TablesVersion: tablesVersion,
		}, a.LogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		a.Logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "memory", "":
		a.Logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// sessionFilePath stamps the session start into a dump file name so that
// runs never overwrite each other: ./posrating.db -> ./posrating_20240101_120000.db
func sessionFilePath(path string, a *app) string {
	if path == "" {
		path = ServiceName + ".db"
	}
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	return fmt.Sprintf("%s_%s%s", base, a.sessionStart.Format("20060102_150405"), ext)
}
