package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/squadlab/posrating/internal/api"
	"github.com/squadlab/posrating/internal/cache"
	"github.com/squadlab/posrating/internal/config"
	"github.com/squadlab/posrating/internal/dispatcher"
	"github.com/squadlab/posrating/internal/rating"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/internal/storage/memory"
	"github.com/squadlab/posrating/internal/worker"
	"github.com/squadlab/posrating/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource implements PlayerSource and HealthChecker for testing
type fakeSource struct {
	mu        sync.Mutex
	players   map[uint]core.Player
	calls     map[uint]int
	healthErr error
}

func newFakeSource(players ...core.Player) *fakeSource {
	s := &fakeSource{players: map[uint]core.Player{}, calls: map[uint]int{}}
	for _, p := range players {
		s.players[p.ID] = p
	}
	return s
}

func (s *fakeSource) GetPlayer(_ context.Context, id uint) (core.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++
	p, ok := s.players[id]
	if !ok {
		return core.Player{}, fmt.Errorf("%w: %d", api.ErrPlayerNotFound, id)
	}
	return p, nil
}

func (s *fakeSource) Healthcheck(context.Context) error { return s.healthErr }

func (s *fakeSource) callCount(id uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct{}

func (mockLogger) Debug(string, ...any) {}
func (mockLogger) Info(string, ...any)  {}
func (mockLogger) Error(string, ...any) {}

func intPtr(v int) *int { return &v }

func centreBack(id uint) core.Player {
	return core.Player{
		ID:        id,
		FirstName: "Virgil",
		LastName:  "Example",
		Attributes: core.Attributes{
			core.Pace: 78, core.Shooting: 60, core.Passing: 71,
			core.Dribbling: 72, core.Defense: 91, core.Physical: 86, core.Goalkeeping: 10,
		},
		Positions: []core.Position{core.CB},
		Overall:   intPtr(90),
	}
}

func newTestService(t *testing.T, deps Dependencies) *Service {
	t.Helper()
	if deps.Engine == nil {
		e, err := rating.New()
		require.NoError(t, err)
		deps.Engine = e
	}
	s, err := New(deps)
	require.NoError(t, err)
	return s
}

func TestNew_RequiresEngine(t *testing.T) {
	_, err := New(Dependencies{})
	require.Error(t, err)
}

func TestRatePlayer_FetchesRatesAndSaves(t *testing.T) {
	src := newFakeSource(centreBack(4))
	backend := memory.New(config.MemoryConfig{})
	s := newTestService(t, Dependencies{Players: src, Storage: backend})

	report, err := s.RatePlayer(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, uint(4), report.PlayerID)
	assert.Equal(t, "Virgil Example", report.Name)
	assert.Len(t, report.Ratings, core.NumPositions)
	cb, ok := report.RatingFor(core.CB)
	require.True(t, ok)
	assert.Equal(t, 90, cb.Rating)
	assert.Equal(t, core.CB, report.Best)

	stored, err := s.LatestReport(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, report.Ratings, stored.Ratings)
}

func TestRatePlayer_UsesCache(t *testing.T) {
	src := newFakeSource(centreBack(4))
	s := newTestService(t, Dependencies{Players: src, Cache: cache.NewPlayerCache(time.Minute)})

	for i := 0; i < 3; i++ {
		_, err := s.RatePlayer(context.Background(), 4)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.callCount(4))

	s.InvalidatePlayer(4)
	_, err := s.RatePlayer(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 2, src.callCount(4))
}

func TestRatePlayer_NotFound(t *testing.T) {
	s := newTestService(t, Dependencies{Players: newFakeSource()})

	_, err := s.RatePlayer(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrPlayerNotFound)
	assert.False(t, IsInputError(err))
}

func TestRatePlayer_NoSource(t *testing.T) {
	s := newTestService(t, Dependencies{})

	_, err := s.RatePlayer(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoPlayerSource)
}

func TestRatePlayer_IncompletePlayerIsNotSaved(t *testing.T) {
	p := centreBack(5)
	delete(p.Attributes, core.Defense)
	backend := memory.New(config.MemoryConfig{})
	s := newTestService(t, Dependencies{Players: newFakeSource(p), Storage: backend})

	_, err := s.RatePlayer(context.Background(), 5)
	require.ErrorIs(t, err, core.ErrIncompleteAttributes)

	_, err = s.LatestReport(context.Background(), 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRatePlayer_PersistsThroughWorker(t *testing.T) {
	backend := memory.New(config.MemoryConfig{})
	d, err := dispatcher.New(mockLogger{})
	require.NoError(t, err)
	worker.NewManager(worker.Dependencies{BufferSize: 4}, backend).RegisterHandlers(d)

	s := newTestService(t, Dependencies{
		Players:    newFakeSource(centreBack(4)),
		Storage:    backend,
		Dispatcher: d,
	})

	for i := 0; i < 2; i++ {
		_, err := s.RatePlayer(context.Background(), 4)
		require.NoError(t, err)
	}
	require.NoError(t, d.Shutdown(context.Background()))

	history, err := s.History(context.Background(), 4, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRatePlayers(t *testing.T) {
	src := newFakeSource(centreBack(1), centreBack(2), centreBack(3))
	s := newTestService(t, Dependencies{Players: src, Concurrency: 2})

	reports, err := s.RatePlayers(context.Background(), []uint{3, 42, 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrPlayerNotFound)
	assert.Contains(t, err.Error(), "player 42")

	require.Len(t, reports, 3)
	assert.Equal(t, uint(3), reports[0].PlayerID)
	assert.Nil(t, reports[1])
	assert.Equal(t, uint(1), reports[2].PlayerID)
}

func TestRateAttributes(t *testing.T) {
	backend := memory.New(config.MemoryConfig{})
	s := newTestService(t, Dependencies{Storage: backend})

	report, err := s.RateAttributes(context.Background(), AttributesRequest{
		PlayerID: 11,
		Name:     "Inline",
		Attributes: map[string]int{
			"pace": 80, "SHO": 70, "pas": 75, "dri": 77, "def": 40, "phy": 65,
		},
		Positions: []string{"rw", "rm"},
	})
	require.NoError(t, err)

	assert.Equal(t, core.RW, report.Primary)
	assert.Equal(t, []core.Position{core.RM}, report.Secondary)
	assert.Len(t, report.Ratings, core.NumPositions-1)
	_, hasGK := report.RatingFor(core.GK)
	assert.False(t, hasGK)
	assert.NotEmpty(t, report.Warnings)

	// inline ratings are not stored
	_, err = s.LatestReport(context.Background(), 11)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRateAttributes_Errors(t *testing.T) {
	s := newTestService(t, Dependencies{})
	full := map[string]int{"pac": 1, "sho": 1, "pas": 1, "dri": 1, "def": 1, "phy": 1}

	tests := []struct {
		name    string
		req     AttributesRequest
		wantErr error
	}{
		{
			name:    "unknown attribute",
			req:     AttributesRequest{Attributes: map[string]int{"stamina": 50}, Positions: []string{"ST"}},
			wantErr: core.ErrUnknownAttribute,
		},
		{
			name:    "duplicate attribute",
			req:     AttributesRequest{Attributes: map[string]int{"pac": 50, "pace": 60}, Positions: []string{"ST"}},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "unknown position",
			req:     AttributesRequest{Attributes: full, Positions: []string{"SW"}},
			wantErr: core.ErrInvalidPosition,
		},
		{
			name:    "no positions",
			req:     AttributesRequest{Attributes: full},
			wantErr: core.ErrInvalidPosition,
		},
		{
			name:    "missing attributes",
			req:     AttributesRequest{Attributes: map[string]int{"pac": 50}, Positions: []string{"ST"}},
			wantErr: core.ErrIncompleteAttributes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.RateAttributes(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsInputError(err))
		})
	}
}

func TestRateAttributes_RejectPolicy(t *testing.T) {
	e, err := rating.New(rating.WithOutOfRangePolicy(rating.PolicyReject))
	require.NoError(t, err)
	s := newTestService(t, Dependencies{Engine: e})

	_, err = s.RateAttributes(context.Background(), AttributesRequest{
		Attributes: map[string]int{"pac": 120, "sho": 1, "pas": 1, "dri": 1, "def": 1, "phy": 1},
		Positions:  []string{"ST"},
	})
	assert.ErrorIs(t, err, core.ErrOutOfRangeAttribute)
	assert.Equal(t, "out_of_range", Reason(err))
}

func TestLatestReport_NoStorage(t *testing.T) {
	s := newTestService(t, Dependencies{})

	_, err := s.LatestReport(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoStorage)
	_, err = s.History(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrNoStorage)
}

func TestHealthcheck(t *testing.T) {
	src := newFakeSource()
	s := newTestService(t, Dependencies{Players: src})
	assert.NoError(t, s.Healthcheck(context.Background()))

	src.healthErr = errors.New("down")
	assert.EqualError(t, s.Healthcheck(context.Background()), "down")

	assert.NoError(t, newTestService(t, Dependencies{}).Healthcheck(context.Background()))
}

func TestTables(t *testing.T) {
	s := newTestService(t, Dependencies{})
	assert.Equal(t, rating.DefaultTables().Version, s.Tables().Version)
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("x: %w", core.ErrInvalidPosition), "invalid_position"},
		{core.ErrIncompleteAttributes, "incomplete_attributes"},
		{api.ErrPlayerNotFound, "not_found"},
		{fmt.Errorf("%w: boom", api.ErrUpstream), "upstream"},
		{fmt.Errorf("%w: player 3: %w", api.ErrUpstream, core.ErrInvalidPosition), "upstream"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("other"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Reason(tt.err), fmt.Sprint(tt.err))
	}
}
