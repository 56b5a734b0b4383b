package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
)

// Refresh outcomes reported to the Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
	// OutcomeDiscarded is a successful fetch whose index lost to a newer one.
	OutcomeDiscarded = "discarded"
)

// Observer receives refresh telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRefreshAttempt(outcome string)
	ObserveCatalogSize(n int)
}

// Refresher fetches the full catalog, retrying with exponential backoff,
// and commits it to the state store. Concurrent Refresh calls share one run.
type Refresher struct {
	Fetcher   Fetcher
	State     *StateStore
	Snapshots SnapshotStore
	Observer  Observer
	Log       *zap.Logger

	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep waits d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error

	group singleflight.Group
}

func NewRefresher(f Fetcher, state *StateStore, log *zap.Logger) *Refresher {
	return &Refresher{
		Fetcher:     f,
		State:       state,
		Log:         log,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Sleep:       SleepContext,
	}
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff is the wait after the given failed attempt: base * 2^attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base << attempt
}

// Refresh runs one refresh cycle and reports whether a new catalog was
// committed. Failures are recorded in the state store, never returned.
func (r *Refresher) Refresh(ctx context.Context) bool {
	v, _, shared := r.group.Do("refresh", func() (any, error) {
		return r.run(ctx), nil
	})
	if shared {
		r.logger().Debug("joined in-flight catalog refresh")
	}
	return v.(bool)
}

func (r *Refresher) run(ctx context.Context) bool {
	log := r.logger().With(zap.String("refresh_id", uuid.NewString()))

	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	startedAt := r.State.BeginUpdating()
	r.State.ResetAttempts()
	log.Info("catalog refresh started")

	for attempt := 1; ; attempt++ {
		entries, err := r.Fetcher.FetchAll(ctx)
		if err == nil {
			idx := BuildIndex(entries)
			installed := r.State.Commit(idx, startedAt)
			if installed {
				r.observeAttempt(OutcomeSuccess)
				r.observeSize(idx.Len())
				r.saveSnapshot(ctx, log, entries)
			} else {
				r.observeAttempt(OutcomeDiscarded)
			}
			log.Info("catalog refresh finished",
				zap.Int("attempt", attempt),
				zap.Int("games", idx.Len()),
				zap.Bool("installed", installed),
			)
			return installed
		}

		r.State.IncrementAttempts()
		r.observeAttempt(OutcomeFailure)
		log.Warn("catalog fetch failed", zap.Int("attempt", attempt), zap.Error(err))

		if attempt >= maxAttempts {
			r.State.RecordFailure(fmt.Sprintf("failed to refresh after %d attempts. last error: %v", attempt, err))
			return false
		}

		delay := Backoff(r.BaseDelay, attempt)
		if serr := sleep(ctx, delay); serr != nil {
			r.observeAttempt(OutcomeCanceled)
			r.State.RecordFailure(fmt.Sprintf("refresh canceled after %d attempts: %v", attempt, serr))
			log.Info("catalog refresh canceled", zap.Error(serr))
			return false
		}
	}
}

func (r *Refresher) saveSnapshot(ctx context.Context, log *zap.Logger, entries []Entry) {
	if r.Snapshots == nil {
		return
	}
	if err := r.Snapshots.Save(ctx, entries); err != nil {
		log.Error("catalog snapshot save failed", zap.Error(err))
		return
	}
	log.Debug("catalog snapshot saved", zap.Int("games", len(entries)))
}

func (r *Refresher) observeAttempt(outcome string) {
	if r.Observer != nil {
		r.Observer.ObserveRefreshAttempt(outcome)
	}
}

func (r *Refresher) observeSize(n int) {
	if r.Observer != nil {
		r.Observer.ObserveCatalogSize(n)
	}
}

func (r *Refresher) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}
