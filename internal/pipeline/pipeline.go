package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// BatchExtractor reads up to batchSize refresh requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a refresh request into a serialized narrative.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader publishes multiple narratives to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

const (
	initialRetryDelay = 200 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
)

// retryDelay is the pause before the next attempt after a broker failure.
type retryDelay struct {
	next time.Duration
}

func (d *retryDelay) reset() { d.next = initialRetryDelay }

// wait sleeps for the current delay and doubles it. It returns false when
// ctx ends first.
func (d *retryDelay) wait(ctx context.Context) bool {
	if ctx.Err() != nil || !retry.SleepWithContext(ctx, d.next) {
		return false
	}
	d.next = retry.NextBackoff(d.next, maxRetryDelay)
	return true
}

// Pipeline is the refresh loop: it pulls refresh requests, drops those
// superseded within the batch, composes narratives and publishes them.
// Offsets are committed once a request is published or rejected.
type Pipeline struct {
	requests  BatchExtractor
	narrator  Transformer
	publisher BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
	delay     retryDelay
	ready     atomic.Bool
}

// New wires a Pipeline around its request source, narrator and publisher.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	p := &Pipeline{
		requests:  e,
		narrator:  t,
		publisher: l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
	p.delay.reset()
	return p
}

// CheckReadiness reports an error until a first narrative has been published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no narrative published yet")
	}
	return nil
}

// Run serves refresh requests until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("narrative pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for ctx.Err() == nil {
		if !p.step(ctx) {
			break
		}
	}
	p.logger.Info("narrative pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// step handles one batch of refresh requests. It returns false once the
// loop should end.
func (p *Pipeline) step(ctx context.Context) bool {
	start := time.Now()

	batch, err := p.requests.ExtractBatch(ctx, p.batchSize)
	switch {
	case err != nil && ctx.Err() != nil:
		return false
	case err != nil:
		p.logger.Error("reading refresh requests failed", "error", err)
		return p.delay.wait(ctx)
	case len(batch) == 0:
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	p.delay.reset()

	batch = p.dropSuperseded(ctx, batch)
	narratives, served := p.narrate(ctx, batch)
	if len(narratives) == 0 {
		return true
	}

	if err := p.publisher.LoadBatch(ctx, narratives); err != nil {
		p.logger.Error("publishing narratives failed", "error", err, "batch_size", len(narratives))
		return p.delay.wait(ctx)
	}
	p.metrics.MessagesProduced.Add(float64(len(narratives)))
	for _, raw := range served {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// dropSuperseded commits and counts requests replaced by a later request
// for the same session in this batch, returning the rest.
func (p *Pipeline) dropSuperseded(ctx context.Context, batch []domain.RawEvent) []domain.RawEvent {
	kept, superseded := Supersede(batch)
	for _, raw := range superseded {
		p.logger.Debug("request superseded within batch",
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
		p.commit(ctx, raw)
	}
	if len(superseded) > 0 {
		p.metrics.RequestsSuperseded.Add(float64(len(superseded)))
	}
	return kept
}

// narrate composes a narrative per request. Rejected requests are committed
// and skipped; the requests that produced a narrative are returned alongside.
func (p *Pipeline) narrate(ctx context.Context, batch []domain.RawEvent) ([]domain.OutputEvent, []domain.RawEvent) {
	narratives := make([]domain.OutputEvent, 0, len(batch))
	served := make([]domain.RawEvent, 0, len(batch))
	for _, raw := range batch {
		out, err := p.narrator.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("refresh request rejected",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		narratives = append(narratives, out)
		served = append(served, raw)
	}
	return narratives, served
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
