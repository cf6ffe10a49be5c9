package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/forecast-narrative-service/internal/adapter/http"
	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/observability"
	"github.com/couchcryptid/forecast-narrative-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

// stubNarrator echoes the resolved request back as an event.
type stubNarrator struct {
	mu    sync.Mutex
	reqs  []domain.RefreshRequest
	err    error
	noData bool
	block  chan struct{} // when set, Narrate waits for it or cancellation
}

func (s *stubNarrator) Narrate(ctx context.Context, req domain.RefreshRequest) (domain.NarrativeEvent, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.NarrativeEvent{}, ctx.Err()
		}
	}
	if s.err != nil {
		return domain.NarrativeEvent{}, s.err
	}
	if s.noData {
		return domain.NarrativeEvent{
			RequestID: req.ID,
			Location:  domain.Place{ID: req.City},
			Language:  req.Language,
			Narrative: domain.EmptyNarrative(),
		}, nil
	}
	return domain.NarrativeEvent{
		RequestID: req.ID,
		Session:   req.Session,
		Location:  domain.Place{ID: req.City},
		Language:  req.Language,
		Narrative: domain.Narrative{Title: "title for " + req.City, Paragraphs: []string{"p"}},
	}, nil
}

func (s *stubNarrator) DefaultLanguage() string { return "fr" }

func (s *stubNarrator) requests() []domain.RefreshRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RefreshRequest(nil), s.reqs...)
}

var testNow = time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)

type testServer struct {
	*httpadapter.Server
	narrator *stubNarrator
	metrics  *observability.Metrics
}

func newTestServer(readyErr error) *testServer {
	narrator := &stubNarrator{}
	metrics := observability.NewMetricsForTesting()
	srv := httpadapter.NewServer(":0", httpadapter.Options{
		Ready:     &mockReadiness{err: readyErr},
		Narrator:  narrator,
		Refresher: pipeline.NewRefresher(metrics),
		Clock:     clockwork.NewFakeClockAt(testNow),
	}, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &testServer{Server: srv, narrator: narrator, metrics: metrics}
}

func get(srv http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	srv.ServeHTTP(rec, req)
	return rec
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- cities ---

func TestCitiesLocalized(t *testing.T) {
	srv := newTestServer(nil)

	tests := []struct {
		target string
		header []string
		want   string
	}{
		{target: "/v1/cities", want: "Bruxelles"},
		{target: "/v1/cities?lang=nl", want: "Brussel"},
		{target: "/v1/cities", header: []string{"Accept-Language", "de-BE,de;q=0.9"}, want: "Brüssel"},
		{target: "/v1/cities?lang=xx", header: []string{"Accept-Language", "en-GB"}, want: "Brussels"},
	}
	for _, tt := range tests {
		t.Run(tt.target+tt.want, func(t *testing.T) {
			rec := get(srv, tt.target, tt.header...)
			require.Equal(t, http.StatusOK, rec.Code)

			var cities []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cities))
			require.Len(t, cities, len(domain.BelgianCities))
			assert.Equal(t, "brussels", cities[0].ID)
			assert.Equal(t, tt.want, cities[0].Name)
		})
	}
}

// --- narrative ---

func TestNarrativeByCity(t *testing.T) {
	srv := newTestServer(nil)
	rec := get(srv, "/v1/narrative?city=gent&lang=nl&session=alice")

	require.Equal(t, http.StatusOK, rec.Code)
	var event domain.NarrativeEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, "gent", event.Location.ID)
	assert.Equal(t, "nl", event.Language)
	assert.Equal(t, "alice", event.Session)
	assert.NotEmpty(t, event.RequestID)

	reqs := srv.narrator.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, testNow, reqs[0].RequestedAt)
	assert.InDelta(t, 1, testutil.ToFloat64(srv.metrics.HTTPRequests.WithLabelValues("/v1/narrative", "200")), 0)
}

func TestNarrativeByCoordinates(t *testing.T) {
	srv := newTestServer(nil)
	rec := get(srv, "/v1/narrative?lat=50.85&lon=4.35&label=Home", "Accept-Language", "en-US")

	require.Equal(t, http.StatusOK, rec.Code)
	reqs := srv.narrator.requests()
	require.Len(t, reqs, 1)
	require.True(t, reqs[0].HasCoordinates())
	assert.InDelta(t, 50.85, *reqs[0].Lat, 1e-9)
	assert.Equal(t, "Home", reqs[0].Label)
	assert.Equal(t, "en", reqs[0].Language)
}

func TestNarrativeWithoutDataReturns200(t *testing.T) {
	srv := newTestServer(nil)
	srv.narrator.noData = true

	rec := get(srv, "/v1/narrative?city=namur&lang=fr")

	require.Equal(t, http.StatusOK, rec.Code)
	var event domain.NarrativeEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, "namur", event.Location.ID)
	assert.False(t, event.Narrative.HasData())
	assert.NotNil(t, event.Narrative.Paragraphs)
	assert.Empty(t, event.Narrative.Paragraphs)
}

func TestNarrativeBadInput(t *testing.T) {
	srv := newTestServer(nil)

	for _, target := range []string{
		"/v1/narrative",
		"/v1/narrative?lat=abc&lon=4",
		"/v1/narrative?lat=50",
		"/v1/narrative?lat=95&lon=4",
	} {
		t.Run(target, func(t *testing.T) {
			rec := get(srv, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, srv.narrator.requests())
	assert.InDelta(t, 4, testutil.ToFloat64(srv.metrics.HTTPRequests.WithLabelValues("/v1/narrative", "400")), 0)
}

func TestNarrativeErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: city %q", pipeline.ErrPlaceNotFound, "Paris"), http.StatusNotFound},
		{fmt.Errorf("%w: boom", pipeline.ErrForecastUnavailable), http.StatusBadGateway},
		{fmt.Errorf("%w: boom", pipeline.ErrSearchUnavailable), http.StatusBadGateway},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv := newTestServer(nil)
			srv.narrator.err = tt.err

			rec := get(srv, "/v1/narrative?q=Paris")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestNarrativeSupersededReturns409(t *testing.T) {
	srv := newTestServer(nil)
	srv.narrator.block = make(chan struct{})

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- get(srv, "/v1/narrative?city=gent&session=alice")
	}()
	require.Eventually(t, func() bool { return len(srv.narrator.requests()) == 1 }, time.Second, 5*time.Millisecond)

	srv.narrator.mu.Lock()
	srv.narrator.block = nil
	srv.narrator.mu.Unlock()

	second := get(srv, "/v1/narrative?city=namur&session=alice")
	assert.Equal(t, http.StatusOK, second.Code)

	rec := <-first
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(srv.metrics.RequestsSuperseded), 0)
}
