package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/observability"
)

// ErrSuperseded is returned for a computation whose session received a
// newer request before it finished. Its result must be discarded.
var ErrSuperseded = errors.New("request superseded by a newer one")

// Refresher runs at most one live computation per session. Starting a new
// one cancels the previous computation for that session.
type Refresher struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]generation
	metrics  *observability.Metrics
}

type generation struct {
	id     uint64
	cancel context.CancelCauseFunc
}

// NewRefresher creates an empty Refresher.
func NewRefresher(metrics *observability.Metrics) *Refresher {
	return &Refresher{
		inflight: make(map[string]generation),
		metrics:  metrics,
	}
}

// Refresh runs fn under a context that is cancelled when a later Refresh
// call for the same session starts. If that happens, Refresh returns
// ErrSuperseded whatever fn returned. An empty session never supersedes.
func (r *Refresher) Refresh(ctx context.Context, session string, fn func(context.Context) error) error {
	if session == "" {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	r.mu.Lock()
	r.seq++
	id := r.seq
	if prev, ok := r.inflight[session]; ok {
		prev.cancel(ErrSuperseded)
	}
	r.inflight[session] = generation{id: id, cancel: cancel}
	r.mu.Unlock()

	err := fn(ctx)

	r.mu.Lock()
	current := r.inflight[session].id == id
	if current {
		delete(r.inflight, session)
	}
	r.mu.Unlock()

	if !current {
		r.metrics.RequestsSuperseded.Inc()
		return ErrSuperseded
	}
	return err
}

// InFlight returns the number of sessions with a running computation.
func (r *Refresher) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Supersede keeps only the last refresh request per session key in batch order.
// Messages that do not parse are kept so the transformer can reject them.
func Supersede(batch []domain.RawEvent) (kept, superseded []domain.RawEvent) {
	keys := make([]string, len(batch))
	last := make(map[string]int, len(batch))
	for i, raw := range batch {
		req, err := domain.ParseRefreshRequest(raw)
		if err != nil {
			continue
		}
		keys[i] = req.SessionKey()
		last[keys[i]] = i
	}

	kept = make([]domain.RawEvent, 0, len(batch))
	for i, raw := range batch {
		if keys[i] != "" && last[keys[i]] != i {
			superseded = append(superseded, raw)
			continue
		}
		kept = append(kept, raw)
	}
	return kept, superseded
}
