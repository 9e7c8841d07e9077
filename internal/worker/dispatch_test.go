package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/squadlab/posrating/internal/dispatcher"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) { l.add(msg) }
func (l *mockLogger) Info(msg string, keysAndValues ...any)  { l.add(msg) }
func (l *mockLogger) Error(msg string, keysAndValues ...any) { l.add(msg) }

func (l *mockLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu      sync.Mutex
	reports []*core.RatingReport
	saveErr error
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) SaveReport(_ context.Context, r *core.RatingReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.reports = append(b.reports, r)
	return nil
}

func (b *mockBackend) GetReport(_ context.Context, playerID uint) (*core.RatingReport, error) {
	return nil, storage.ErrNotFound
}

func (b *mockBackend) History(_ context.Context, playerID uint, limit int) ([]*core.RatingReport, error) {
	return nil, nil
}

// mockSink implements ReportSink for testing
type mockSink struct {
	mu        sync.Mutex
	reports   []uint
	durations []string
	oks       []bool
}

func (s *mockSink) WriteReport(_ context.Context, r *core.RatingReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r.PlayerID)
	return nil
}

func (s *mockSink) WriteDuration(_ context.Context, source string, d time.Duration, ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = append(s.durations, source)
	s.oks = append(s.oks, ok)
	return nil
}

func newTestSetup(t *testing.T, backend storage.Backend, sink ReportSink) (*Manager, *dispatcher.Dispatcher) {
	t.Helper()
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)

	m := NewManager(Dependencies{Sink: sink, BufferSize: 10}, backend)
	m.RegisterHandlers(d)
	return m, d
}

func report(id uint) *core.RatingReport {
	return &core.RatingReport{PlayerID: id, Primary: core.ST, Best: core.ST}
}

func TestRegisterHandlers(t *testing.T) {
	_, d := newTestSetup(t, &mockBackend{}, nil)
	assert.True(t, d.HasHandler(CommandPersist))
}

func TestHandlePersist_SavesAndWritesMetrics(t *testing.T) {
	backend := &mockBackend{}
	sink := &mockSink{}
	m, d := newTestSetup(t, backend, sink)

	ctx := context.Background()
	for _, id := range []uint{1, 2} {
		res, err := d.Dispatch(ctx, dispatcher.Event{
			Command: CommandPersist,
			Payload: Job{Report: report(id), Source: "api", Duration: time.Millisecond},
		})
		require.NoError(t, err)
		assert.Equal(t, dispatcher.Queued, res)
	}
	require.NoError(t, d.Shutdown(ctx))

	require.Len(t, backend.reports, 2)
	assert.Equal(t, uint(1), backend.reports[0].PlayerID)
	assert.Equal(t, []uint{1, 2}, sink.reports)
	assert.Equal(t, []string{"api", "api"}, sink.durations)
	assert.Equal(t, []bool{true, true}, sink.oks)

	stats := m.Stats()
	assert.Equal(t, int64(2), stats.Persisted)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestHandlePersist_StorageFailure(t *testing.T) {
	backend := &mockBackend{saveErr: errors.New("disk full")}
	sink := &mockSink{}
	m, d := newTestSetup(t, backend, sink)

	ctx := context.Background()
	_, err := d.Dispatch(ctx, dispatcher.Event{Command: CommandPersist, Payload: Job{Report: report(9), Source: "api"}})
	require.NoError(t, err)
	require.NoError(t, d.Shutdown(ctx))

	assert.Equal(t, int64(1), m.Stats().Failed)
	assert.Equal(t, int64(0), m.Stats().Persisted)
	assert.Equal(t, []bool{false}, sink.oks)
}

func TestHandlePersist_BadPayload(t *testing.T) {
	m := NewManager(Dependencies{}, &mockBackend{})

	_, err := m.handlePersist(context.Background(), dispatcher.Event{Command: CommandPersist, Payload: "nope"})
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = m.handlePersist(context.Background(), dispatcher.Event{Command: CommandPersist, Payload: Job{}})
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestHandlePersist_NoBackend(t *testing.T) {
	sink := &mockSink{}
	m := NewManager(Dependencies{Sink: sink}, nil)

	_, err := m.handlePersist(context.Background(), dispatcher.Event{
		Command: CommandPersist,
		Payload: Job{Report: report(3), Source: "attributes"},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{3}, sink.reports)
	assert.Equal(t, int64(0), m.Stats().Persisted)
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Dependencies{}, nil)
	assert.Equal(t, DefaultBufferSize, m.deps.BufferSize)
	assert.NotNil(t, m.deps.LogManager)
	assert.Equal(t, time.Duration(0), m.GetLastWriteDuration())
}
