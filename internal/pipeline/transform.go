package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
)

// NarrativeTransformer implements Transformer: it parses a refresh request,
// composes its narrative and serializes the result for the sink topic.
type NarrativeTransformer struct {
	narrator *Narrator
	logger   *slog.Logger
}

// NewTransformer creates a NarrativeTransformer.
func NewTransformer(narrator *Narrator, logger *slog.Logger) *NarrativeTransformer {
	return &NarrativeTransformer{
		narrator: narrator,
		logger:   logger,
	}
}

func (t *NarrativeTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseRefreshRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	event, err := t.narrator.Narrate(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	return domain.SerializeNarrativeEvent(event)
}
