package database

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/squadlab/posrating/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "rater")
	viper.Set("db.password", "secret")
	viper.Set("db.database", "ratings")

	assert.Equal(t, "host=db.internal port=5433 user=rater password=secret dbname=ratings sslmode=disable", PostgresDSN())
}

func TestMigrate_SQLite(t *testing.T) {
	db, err := GetSqliteDBStandalone(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, Migrate(db, "builtin-1"))
	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m))
	}

	// second run updates the version in place
	require.NoError(t, Migrate(db, "season-2"))
	var infos []model.ServiceInfo
	require.NoError(t, db.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "season-2", infos[0].TablesVersion)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := GetSqliteDBStandalone(filepath.Join(dir, "live.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db, "builtin-1"))

	dumpPath := filepath.Join(dir, "dump.db")
	require.NoError(t, os.WriteFile(dumpPath, []byte("stale"), 0644))

	require.NoError(t, DumpMemoryDBToDisk(db, dumpPath))

	dumped, err := GetSqliteDBStandalone(dumpPath)
	require.NoError(t, err)
	assert.True(t, dumped.Migrator().HasTable(&model.RatingReport{}))
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	err := DumpMemoryDBToDisk(nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path not set")
}

func TestManager_SetupAndDump(t *testing.T) {
	var logBuf bytes.Buffer
	m := NewManager(zerolog.New(&logBuf))
	assert.False(t, m.IsValid)

	db, err := GetSqliteDBStandalone(filepath.Join(t.TempDir(), "mgr.db"))
	require.NoError(t, err)
	m.DB = db
	m.SqlDB, err = db.DB()
	require.NoError(t, err)
	m.SqliteFilePath = filepath.Join(t.TempDir(), "mgr_dump.db")

	require.NoError(t, m.Setup("builtin-1"))
	require.NoError(t, m.DumpMemoryToDisk())
	assert.FileExists(t, m.SqliteFilePath)
	assert.Contains(t, logBuf.String(), "Database setup complete")

	require.NoError(t, m.Close())
}

func TestManager_CloseWithoutConnection(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.NoError(t, m.Close())
}
