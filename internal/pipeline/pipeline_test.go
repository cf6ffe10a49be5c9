package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/observability"
	"github.com/couchcryptid/forecast-narrative-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.OutputEvent
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) events() []domain.OutputEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputEvent(nil), m.loaded...)
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- pipeline loop ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawRequest(t, domain.RefreshRequest{ID: "req-1", City: "gent"})

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	loaded := ldr.events()
	require.Len(t, loaded, 1)
	assert.Equal(t, raw.Value, loaded[0].Value)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesProduced), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.events())
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	var commits atomic.Int32
	raw := makeRawRequest(t, domain.RefreshRequest{ID: "req-2", City: "gent"})
	raw.Commit = func(context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad data")}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.events())
	assert.Equal(t, int32(1), commits.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := atomic.Bool{}

	raw := makeRawRequest(t, domain.RefreshRequest{ID: "req-5", City: "namur"})
	raw.Topic = "forecast-refresh-requests"
	raw.Commit = func(context.Context) error {
		commitCalled.Store(true)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.True(t, commitCalled.Load())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	commitCalled := atomic.Bool{}
	raw := makeRawRequest(t, domain.RefreshRequest{ID: "req-6", City: "namur"})
	raw.Commit = func(context.Context) error {
		commitCalled.Store(true)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{err: errors.New("broker down")}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.False(t, commitCalled.Load())
}

func TestPipeline_Run_DropsSupersededRequests(t *testing.T) {
	var committed sync.Map
	mk := func(id, session, city string) domain.RawEvent {
		raw := makeRawRequest(t, domain.RefreshRequest{ID: id, Session: session, City: city})
		raw.Commit = func(context.Context) error {
			committed.Store(id, true)
			return nil
		}
		return raw
	}
	batch := []domain.RawEvent{
		mk("a1", "alice", "gent"),
		mk("b1", "bob", "namur"),
		mk("a2", "alice", "liege"),
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{batch}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	loaded := ldr.events()
	require.Len(t, loaded, 2)
	assert.Equal(t, []byte("b1"), loaded[0].Key)
	assert.Equal(t, []byte("a2"), loaded[1].Key)
	for _, id := range []string{"a1", "b1", "a2"} {
		_, ok := committed.Load(id)
		assert.True(t, ok, "offset for %s should be committed", id)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RequestsSuperseded), 0)
}

// --- Supersede ---

func TestSupersede(t *testing.T) {
	batch := []domain.RawEvent{
		makeRawRequest(t, domain.RefreshRequest{ID: "1", Session: "s1", City: "gent"}),
		makeRawRequest(t, domain.RefreshRequest{ID: "2", City: "gent"}),
		{Key: []byte("3"), Value: []byte("not json")},
		makeRawRequest(t, domain.RefreshRequest{ID: "4", Session: "s1", City: "namur"}),
		makeRawRequest(t, domain.RefreshRequest{ID: "5", Session: "s2", City: "namur"}),
		makeRawRequest(t, domain.RefreshRequest{ID: "6", Session: "s1", City: "liege"}),
	}

	kept, superseded := pipeline.Supersede(batch)

	assert.Equal(t, []string{"2", "3", "5", "6"}, keys(kept))
	assert.Equal(t, []string{"1", "4"}, keys(superseded))
}

func TestSupersede_RedeliveredRequestWithoutSession(t *testing.T) {
	batch := []domain.RawEvent{
		makeRawRequest(t, domain.RefreshRequest{ID: "7", City: "gent"}),
		makeRawRequest(t, domain.RefreshRequest{ID: "8", City: "gent"}),
		makeRawRequest(t, domain.RefreshRequest{ID: "7", City: "gent"}),
	}

	kept, superseded := pipeline.Supersede(batch)

	assert.Equal(t, []string{"8", "7"}, keys(kept))
	assert.Equal(t, []string{"7"}, keys(superseded))
}

func TestSupersede_Empty(t *testing.T) {
	kept, superseded := pipeline.Supersede(nil)
	assert.Empty(t, kept)
	assert.Empty(t, superseded)
}

// --- Refresher ---

func TestRefresher_NewerRequestSupersedesInFlight(t *testing.T) {
	metrics := newTestMetrics()
	r := pipeline.NewRefresher(metrics)

	started := make(chan struct{})
	firstDone := make(chan error, 1)
	var firstCause error

	go func() {
		firstDone <- r.Refresh(context.Background(), "alice", func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			firstCause = context.Cause(ctx)
			return ctx.Err()
		})
	}()
	<-started

	secondRan := false
	err := r.Refresh(context.Background(), "alice", func(context.Context) error {
		secondRan = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, secondRan)

	require.ErrorIs(t, <-firstDone, pipeline.ErrSuperseded)
	require.ErrorIs(t, firstCause, pipeline.ErrSuperseded)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RequestsSuperseded), 0)
	assert.Equal(t, 0, r.InFlight())
}

func TestRefresher_SupersededResultDiscardedEvenOnSuccess(t *testing.T) {
	r := pipeline.NewRefresher(newTestMetrics())

	started := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		firstDone <- r.Refresh(context.Background(), "alice", func(context.Context) error {
			close(started)
			<-release
			return nil // ignores cancellation and "succeeds"
		})
	}()
	<-started

	secondCtx, cancelSecond := context.WithCancel(context.Background())
	t.Cleanup(cancelSecond)
	secondStarted := make(chan struct{})
	go func() {
		_ = r.Refresh(secondCtx, "alice", func(ctx context.Context) error {
			close(secondStarted)
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	<-secondStarted
	close(release)

	require.ErrorIs(t, <-firstDone, pipeline.ErrSuperseded)
	assert.Equal(t, 1, r.InFlight(), "second request is still running")
}

func TestRefresher_DifferentSessionsIndependent(t *testing.T) {
	r := pipeline.NewRefresher(newTestMetrics())

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- r.Refresh(context.Background(), "alice", func(ctx context.Context) error {
			close(started)
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	<-started

	require.NoError(t, r.Refresh(context.Background(), "bob", func(context.Context) error { return nil }))
	close(release)
	require.NoError(t, <-done)
}

func TestRefresher_EmptySessionPassesThrough(t *testing.T) {
	r := pipeline.NewRefresher(newTestMetrics())
	want := errors.New("boom")

	err := r.Refresh(context.Background(), "", func(context.Context) error { return want })
	require.ErrorIs(t, err, want)
	assert.Equal(t, 0, r.InFlight())
}

// --- helpers ---

func makeRawRequest(t *testing.T, req domain.RefreshRequest) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(req.ID),
		Value: data,
	}
}

func keys(events []domain.RawEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = string(e.Key)
	}
	return out
}
