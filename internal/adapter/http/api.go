package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Narrator composes the narrative for a refresh request.
type Narrator interface {
	Narrate(ctx context.Context, req domain.RefreshRequest) (domain.NarrativeEvent, error)
	DefaultLanguage() string
}

// Refresher runs a computation, cancelling older ones for the same session.
type Refresher interface {
	Refresh(ctx context.Context, session string, fn func(context.Context) error) error
}

type api struct {
	narrator  Narrator
	refresher Refresher
	clock     clockwork.Clock
	logger    *slog.Logger
}

type cityResponse struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (a *api) handleCities(w http.ResponseWriter, r *http.Request) {
	lang := a.language(r)
	cities := make([]cityResponse, len(domain.BelgianCities))
	for i, c := range domain.BelgianCities {
		cities[i] = cityResponse{ID: c.ID, Name: c.Label(lang), Lat: c.Lat, Lon: c.Lon}
	}
	sharedobs.WriteJSON(w, http.StatusOK, cities)
}

func (a *api) handleNarrative(w http.ResponseWriter, r *http.Request) {
	req, err := a.refreshRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var event domain.NarrativeEvent
	err = a.refresher.Refresh(r.Context(), req.SessionKey(), func(ctx context.Context) error {
		var err error
		event, err = a.narrator.Narrate(ctx, req)
		return err
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			a.logger.Error("narrative request failed", "error", err, "request_id", req.ID)
		}
		writeError(w, status, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, event)
}

// refreshRequest maps query parameters onto a validated RefreshRequest.
func (a *api) refreshRequest(r *http.Request) (domain.RefreshRequest, error) {
	q := r.URL.Query()
	req := domain.RefreshRequest{
		ID:          uuid.NewString(),
		Session:     strings.TrimSpace(q.Get("session")),
		City:        strings.TrimSpace(q.Get("city")),
		Query:       strings.TrimSpace(q.Get("q")),
		Label:       strings.TrimSpace(q.Get("label")),
		Language:    a.language(r),
		RequestedAt: a.clock.Now(),
	}

	lat, err := optionalFloat(q.Get("lat"), "lat")
	if err != nil {
		return domain.RefreshRequest{}, err
	}
	lon, err := optionalFloat(q.Get("lon"), "lon")
	if err != nil {
		return domain.RefreshRequest{}, err
	}
	req.Lat, req.Lon = lat, lon

	if err := domain.ValidateRefreshRequest(req); err != nil {
		return domain.RefreshRequest{}, err
	}
	return req, nil
}

// language resolves the lang parameter, then Accept-Language, then the
// narrator default.
func (a *api) language(r *http.Request) string {
	if lang, ok := domain.NormalizeLanguage(r.URL.Query().Get("lang")); ok {
		return lang
	}
	return domain.MatchLanguage(r.Header.Get("Accept-Language"), a.narrator.DefaultLanguage())
}

func optionalFloat(s, name string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &v, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoTarget):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrPlaceNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrForecastUnavailable), errors.Is(err, pipeline.ErrSearchUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
