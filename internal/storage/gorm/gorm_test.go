package gormstorage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/squadlab/posrating/internal/database"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

// newTestBackend creates a Backend over a file-backed SQLite database in a temp dir.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "ratings.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, TablesVersion: "builtin-1"})
	require.NoError(t, b.Init())
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return b
}

func sampleReport(playerID uint, at time.Time) *core.RatingReport {
	overall := 80
	return &core.RatingReport{
		PlayerID:  playerID,
		Name:      "Ana Lima",
		Primary:   core.LB,
		Secondary: []core.Position{core.LWB},
		Overall:   &overall,
		Ratings: []core.PositionRating{
			{Position: core.LWB, Rating: 77, Familiarity: core.Secondary, Difference: 5, WeightedSum: 82.19},
			{Position: core.LB, Rating: 82, Familiarity: core.Primary, Difference: 0, WeightedSum: 82.1},
			{Position: core.RB, Rating: 76, Familiarity: core.Somewhat, Difference: 8, WeightedSum: 84},
		},
		Best:               core.LB,
		Top3:               []core.Position{core.LB, core.LWB, core.RB},
		OverallDiscrepancy: 2,
		Warnings:           []string{"formula rating 82 at LB differs from reported overall 80"},
		TablesVersion:      "builtin-1",
		RatedAt:            at,
	}
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestSaveAndGetReport(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	want := sampleReport(21, at)
	require.NoError(t, b.SaveReport(ctx, want))

	got, err := b.GetReport(ctx, 21)
	require.NoError(t, err)

	assert.Equal(t, want.PlayerID, got.PlayerID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Primary, got.Primary)
	assert.Equal(t, want.Secondary, got.Secondary)
	assert.Equal(t, *want.Overall, *got.Overall)
	assert.Equal(t, want.Ratings, got.Ratings, "position rows keep insertion order")
	assert.Equal(t, want.Best, got.Best)
	assert.Equal(t, want.Top3, got.Top3)
	assert.Equal(t, want.OverallDiscrepancy, got.OverallDiscrepancy)
	assert.Equal(t, want.Warnings, got.Warnings)
	assert.Equal(t, want.TablesVersion, got.TablesVersion)
	assert.True(t, want.RatedAt.Equal(got.RatedAt))
}

func TestGetReport_NotFound(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.GetReport(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetReport_Latest(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	t0 := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	older := sampleReport(8, t0)
	newer := sampleReport(8, t0.Add(24*time.Hour))
	newer.Best = core.LWB

	require.NoError(t, b.SaveReport(ctx, newer))
	require.NoError(t, b.SaveReport(ctx, older))

	got, err := b.GetReport(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, core.LWB, got.Best)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	t0 := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.SaveReport(ctx, sampleReport(9, t0.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, b.SaveReport(ctx, sampleReport(10, t0)))

	all, err := b.History(ctx, 9, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].RatedAt.After(all[1].RatedAt))
	for _, r := range all {
		assert.Len(t, r.Ratings, 3)
	}

	limited, err := b.History(ctx, 9, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	empty, err := b.History(ctx, 11, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSaveReport_Nil(t *testing.T) {
	b := newTestBackend(t)
	assert.Error(t, b.SaveReport(context.Background(), nil))
}
