package pipeline

import (
	"context"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

// RefreshAll narrates every request concurrently, at most limit at a time
// (limit <= 0 means unbounded). Results keep the order of reqs. The first
// failure cancels the remaining work and is returned.
func RefreshAll(ctx context.Context, n *Narrator, reqs []domain.RefreshRequest, limit int) ([]domain.NarrativeEvent, error) {
	out := make([]domain.NarrativeEvent, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		g.Go(func() error {
			event, err := n.Narrate(ctx, req)
			if err != nil {
				return err
			}
			out[i] = event
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CityRequests builds one request per built-in city in lang.
func CityRequests(lang string) []domain.RefreshRequest {
	reqs := make([]domain.RefreshRequest, len(domain.BelgianCities))
	for i, c := range domain.BelgianCities {
		reqs[i] = domain.RefreshRequest{ID: c.ID, City: c.ID, Language: lang}
	}
	return reqs
}
