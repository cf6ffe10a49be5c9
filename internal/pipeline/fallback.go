package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/observability"
)

// FallbackFetcher fetches from a primary source and, when that fails and a
// fallback is configured, from the fallback instead.
type FallbackFetcher struct {
	primary  domain.ForecastFetcher
	fallback domain.ForecastFetcher
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewFallbackFetcher wraps primary. Pass a nil fallback to disable it.
func NewFallbackFetcher(primary, fallback domain.ForecastFetcher, metrics *observability.Metrics, logger *slog.Logger) *FallbackFetcher {
	return &FallbackFetcher{
		primary:  primary,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger,
	}
}

// FetchForecast implements domain.ForecastFetcher.
func (f *FallbackFetcher) FetchForecast(ctx context.Context, lat, lon float64) (domain.Payload, error) {
	p, _, err := f.Fetch(ctx, lat, lon)
	return p, err
}

// Fetch returns the payload and whether it came from the fallback. A
// cancelled context is never papered over with fallback data.
func (f *FallbackFetcher) Fetch(ctx context.Context, lat, lon float64) (domain.Payload, bool, error) {
	p, err := f.primary.FetchForecast(ctx, lat, lon)
	if err == nil {
		return p, false, nil
	}
	if f.fallback == nil || ctx.Err() != nil {
		return domain.Payload{}, false, err
	}

	f.logger.Warn("forecast fetch failed, using synthetic forecast",
		"error", err, "lat", lat, "lon", lon)
	p, ferr := f.fallback.FetchForecast(ctx, lat, lon)
	if ferr != nil {
		return domain.Payload{}, false, ferr
	}
	f.metrics.SyntheticFallbacks.Inc()
	return p, true, nil
}
