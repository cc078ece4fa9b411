package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"recruitflow/internal/candidate"
	"recruitflow/internal/metrics"
	"recruitflow/internal/realtime"
)

// Table is the change-feed table the reconciler consumes.
const Table = "candidates"

type Loader interface {
	ListCandidates(ctx context.Context) ([]candidate.Candidate, error)
	GetCandidate(ctx context.Context, id string) (candidate.Candidate, error)
}

// writeTimeout bounds writes and fetches that outlive the request that
// started them.
const writeTimeout = 10 * time.Second

type ViewMarker interface {
	MarkViewed(ctx context.Context, id string) error
}

// Reconciler holds the service-wide candidate collection. All mutation goes
// through Apply/Load on a State value swapped under the lock.
type Reconciler struct {
	mu    sync.RWMutex
	state State
	stats map[candidate.Status]int

	loader Loader
	marker ViewMarker
	views  singleflight.Group
	log    *zap.Logger
}

func NewReconciler(loader Loader, marker ViewMarker, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Reconciler{loader: loader, marker: marker, log: log}
	r.set(NewState())
	return r
}

// set must be called with mu held (or before r is shared).
func (r *Reconciler) set(s State) {
	r.state = s
	r.stats = s.Counts()
	metrics.CandidatesHeld.Set(float64(s.Len()))
}

// Load fetches the full collection and replaces the held one. On error the
// held state is left as it was.
func (r *Reconciler) Load(ctx context.Context) error {
	list, err := r.loader.ListCandidates(ctx)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}
	r.mu.Lock()
	r.set(Load(r.state, list))
	n := r.state.Len()
	r.mu.Unlock()
	r.log.Info("candidates loaded", zap.Int("count", n))
	return nil
}

func (r *Reconciler) Apply(e Event) {
	r.mu.Lock()
	r.set(Apply(r.state, e))
	r.mu.Unlock()
}

func (r *Reconciler) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Reconciler) Get(id string) (candidate.Candidate, bool) {
	return r.Snapshot().Get(id)
}

func (r *Reconciler) Visible(query string, mode FilterMode) []candidate.Candidate {
	return Derive(r.Snapshot().List(), query, mode)
}

// Stats returns a copy of the counts computed at the last state change.
func (r *Reconciler) Stats() map[candidate.Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[candidate.Status]int, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}

func (r *Reconciler) Analytics(now time.Time) Analytics {
	return Analyze(r.Snapshot().List(), now)
}

// MarkViewed writes viewed=true for id unless the held copy already has it.
// Concurrent calls for one id share a single write.
func (r *Reconciler) MarkViewed(ctx context.Context, id string) error {
	if c, ok := r.Get(id); ok && c.Viewed {
		return nil
	}
	_, err, _ := r.views.Do(id, func() (any, error) {
		if c, ok := r.Get(id); ok && c.Viewed {
			return nil, nil
		}
		// shared by every waiting caller, so one cancelled request must not
		// fail the others
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		if err := r.marker.MarkViewed(wctx, id); err != nil {
			return nil, err
		}
		r.mu.Lock()
		if c, ok := r.state.Get(id); ok && !c.Viewed {
			c.Viewed = true
			r.set(Apply(r.state, Event{Op: Upsert, Candidate: c}))
		}
		r.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("mark viewed %s: %w", id, err)
	}
	return nil
}

// FromFeed converts a change-feed event for the candidates table.
func FromFeed(e realtime.Event) (Event, error) {
	if e.Table != Table {
		return Event{}, fmt.Errorf("%w: table %q", realtime.ErrMalformed, e.Table)
	}
	op := Upsert
	if e.Op == realtime.OpDelete {
		op = Delete
	}
	c, err := candidate.FromRecord(e.Row())
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", realtime.ErrMalformed, err)
	}
	return Event{Op: op, Candidate: c}, nil
}

// Handle applies one feed event. Malformed events are logged and skipped.
// A partial event (the row was too large for the notification) is completed
// by fetching the row.
func (r *Reconciler) Handle(fe realtime.Event) {
	e, err := FromFeed(fe)
	if err != nil {
		metrics.RealtimeEventsDropped.WithLabelValues(fe.Table, "malformed").Inc()
		r.log.Warn("dropping candidate event", zap.String("op", string(fe.Op)), zap.Error(err))
		return
	}
	if fe.Partial && e.Op == Upsert {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		c, err := r.loader.GetCandidate(ctx, e.Candidate.ID)
		cancel()
		if err != nil {
			metrics.RealtimeEventsDropped.WithLabelValues(fe.Table, "fetch_failed").Inc()
			r.log.Warn("fetching candidate for partial event failed",
				zap.String("candidate_id", e.Candidate.ID), zap.Error(err))
			return
		}
		e.Candidate = c
	}
	r.Apply(e)
	metrics.RealtimeEventsApplied.WithLabelValues(Table).Inc()
}

// Run applies events from a channel until ctx is done or events is closed.
func (r *Reconciler) Run(ctx context.Context, events <-chan realtime.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fe, ok := <-events:
			if !ok {
				return nil
			}
			r.Handle(fe)
		}
	}
}
