package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrPlaceNotFound means a city or query matched no known place.
	ErrPlaceNotFound = errors.New("place not found")

	// ErrForecastUnavailable wraps failures to fetch a forecast.
	ErrForecastUnavailable = errors.New("forecast unavailable")

	// ErrSearchUnavailable wraps place search failures.
	ErrSearchUnavailable = errors.New("place search unavailable")
)

// noDataLevel labels narratives composed from an incomplete payload.
const noDataLevel = "none"

// NarratorOptions configures rendering for a Narrator.
type NarratorOptions struct {
	Phrases         *domain.PhraseTable // nil uses the embedded tables
	Location        *time.Location      // forecast timezone
	DefaultLanguage string
	Clock           clockwork.Clock // nil uses the real clock
}

// Narrator resolves a refresh request to a place, fetches its forecast and
// composes the narrative.
type Narrator struct {
	fetcher  *FallbackFetcher
	places   domain.PlaceSearcher
	phrases  *domain.PhraseTable
	loc      *time.Location
	language string
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewNarrator creates a Narrator. places may be nil, in which case free-text
// queries only match the built-in city list.
func NewNarrator(fetcher *FallbackFetcher, places domain.PlaceSearcher, opts NarratorOptions, metrics *observability.Metrics, logger *slog.Logger) *Narrator {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Phrases == nil {
		opts.Phrases = domain.DefaultPhraseTable()
	}
	lang, ok := domain.NormalizeLanguage(opts.DefaultLanguage)
	if !ok {
		lang = opts.Phrases.Base()
	}
	return &Narrator{
		fetcher:  fetcher,
		places:   places,
		phrases:  opts.Phrases,
		loc:      opts.Location,
		language: lang,
		clock:    opts.Clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// DefaultLanguage is the language used when a request names none.
func (n *Narrator) DefaultLanguage() string {
	return n.language
}

// Narrate produces the narrative event for req. The current time is read
// once and used for every derived window. A payload missing a section
// yields an event carrying domain.EmptyNarrative, not an error.
func (n *Narrator) Narrate(ctx context.Context, req domain.RefreshRequest) (domain.NarrativeEvent, error) {
	lang := req.Language
	if lang == "" {
		lang = n.language
	}

	place, err := n.Resolve(ctx, req, lang)
	if err != nil {
		return domain.NarrativeEvent{}, err
	}

	payload, synthetic, err := n.fetcher.Fetch(ctx, place.Lat, place.Lon)
	if err != nil {
		return domain.NarrativeEvent{}, fmt.Errorf("%w: %w", ErrForecastUnavailable, err)
	}

	now := n.clock.Now()
	narrative := domain.BuildNarrative(payload, domain.NarrativeRequest{
		Location: place.Label(lang),
		Language: lang,
		Now:      now,
		Loc:      n.loc,
		Phrases:  n.phrases,
	})
	level := string(narrative.Confidence)
	if !narrative.HasData() {
		// An incomplete payload is published as a no-data narrative.
		narrative.Language = lang
		level = noDataLevel
		n.logger.Info("forecast payload incomplete, publishing empty narrative",
			"request_id", req.ID, "place", place.ID)
	}

	n.metrics.NarrativesComposed.WithLabelValues(narrative.Language, level).Inc()
	n.logger.Debug("narrative composed",
		"request_id", req.ID,
		"place", place.ID,
		"language", narrative.Language,
		"confidence", narrative.Confidence,
		"synthetic", synthetic,
	)

	return domain.NarrativeEvent{
		RequestID:   req.ID,
		Session:     req.Session,
		Location:    place,
		Language:    narrative.Language,
		Narrative:   narrative,
		Synthetic:   synthetic,
		GeneratedAt: now.UTC(),
	}, nil
}

// Resolve maps a request to a place: a built-in city first, then explicit
// coordinates, then a free-text search.
func (n *Narrator) Resolve(ctx context.Context, req domain.RefreshRequest, lang string) (domain.Place, error) {
	switch {
	case req.City != "":
		if city, ok := domain.FindCity(req.City); ok {
			return city, nil
		}
		return domain.Place{}, fmt.Errorf("%w: city %q", ErrPlaceNotFound, req.City)
	case req.HasCoordinates():
		return domain.CoordinatePlace(*req.Lat, *req.Lon, req.Label), nil
	case req.Query != "":
		return n.search(ctx, req.Query, lang)
	default:
		return domain.Place{}, domain.ErrNoTarget
	}
}

func (n *Narrator) search(ctx context.Context, query, lang string) (domain.Place, error) {
	if city, ok := domain.FindCity(query); ok {
		return city, nil
	}
	if n.places == nil {
		return domain.Place{}, fmt.Errorf("%w: %q", ErrPlaceNotFound, query)
	}
	results, err := n.places.SearchPlaces(ctx, query, lang)
	if err != nil {
		return domain.Place{}, fmt.Errorf("%w: %q: %w", ErrSearchUnavailable, query, err)
	}
	if len(results) == 0 {
		return domain.Place{}, fmt.Errorf("%w: %q", ErrPlaceNotFound, query)
	}
	return results[0], nil
}
