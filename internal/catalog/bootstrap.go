package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Bootstrap brings the catalog out of Loading. A persisted snapshot, when
// present, is committed as-is and the next refresh is left to the scheduler.
// Otherwise a refresh runs right away. It reports whether a catalog is
// installed on return. obs, when set, sees the size of a restored catalog.
func Bootstrap(ctx context.Context, state *StateStore, r Refreshable, snaps SnapshotStore, obs Observer, log *zap.Logger) bool {
	if log == nil {
		log = zap.NewNop()
	}
	state.Initialize()

	if snaps != nil {
		entries, savedAt, err := snaps.Load(ctx)
		switch {
		case err == nil:
			idx := BuildIndex(entries)
			state.Commit(idx, savedAt)
			if obs != nil {
				obs.ObserveCatalogSize(idx.Len())
			}
			log.Info("catalog restored from snapshot",
				zap.Int("games", len(entries)),
				zap.Time("saved_at", savedAt),
			)
			return true
		case errors.Is(err, ErrNoSnapshot):
			log.Info("no catalog snapshot, fetching from upstream")
		default:
			log.Warn("catalog snapshot load failed", zap.Error(err))
		}
	}

	return r.Refresh(ctx)
}
