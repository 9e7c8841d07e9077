package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/squadlab/posrating/internal/database"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestInit_NoManager(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
	assert.False(t, b.UsingFallback())
}

// With Postgres unreachable the manager falls back to in-memory SQLite, and
// Close dumps it to the configured file.
func TestInit_FallbackToSQLite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "postgres")
	viper.Set("db.password", "postgres")
	viper.Set("db.database", "posrating")

	mgr := database.NewManager(zerolog.Nop())
	mgr.SqliteFilePath = filepath.Join(t.TempDir(), "fallback.db")

	b := New(Dependencies{DBManager: mgr, TablesVersion: "builtin-1"})
	require.NoError(t, b.Init())
	assert.True(t, b.UsingFallback())

	ctx := context.Background()
	r := &core.RatingReport{
		PlayerID: 77,
		Primary:  core.CB,
		Ratings:  []core.PositionRating{{Position: core.CB, Rating: 70, Familiarity: core.Primary}},
		Best:     core.CB,
		Top3:     []core.Position{core.CB},
		RatedAt:  time.Now().UTC(),
	}
	require.NoError(t, b.SaveReport(ctx, r))
	got, err := b.GetReport(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, core.CB, got.Best)

	require.NoError(t, b.Close())
	assert.FileExists(t, mgr.SqliteFilePath)
}
