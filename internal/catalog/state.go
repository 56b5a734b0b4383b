package catalog

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the catalog lifecycle stage.
type Status int

const (
	StatusLoading Status = iota
	StatusUpdating
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUpdating:
		return "updating"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ErrInconsistent means the store was read before Initialize or lost its
// index. It indicates a wiring bug, never a user condition.
var ErrInconsistent = errors.New("catalog state is missing required values")

// State is a point-in-time copy of the catalog lifecycle. Index is shared
// but immutable.
type State struct {
	Status         Status
	Index          *Index
	LastUpdated    time.Time
	ErrorMessage   string
	UpdateAttempts int
}

// StateStore is the single owner of the live catalog state. Every
// transition holds mu for its whole critical section.
type StateStore struct {
	mu    sync.RWMutex
	state State

	initialized bool
	loaded      bool
	// startedAt of the refresh that produced the installed index.
	installedFrom time.Time

	attemptsMu sync.Mutex

	now func() time.Time
	log *zap.Logger
}

func NewStateStore(log *zap.Logger) *StateStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &StateStore{now: time.Now, log: log}
}

// Initialize installs the Loading state with an empty index. Later calls
// are no-ops.
func (s *StateStore) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return
	}
	s.state = State{Status: StatusLoading, Index: BuildIndex(nil)}
	s.initialized = true
	s.log.Info("catalog state initialized")
}

// Snapshot returns a consistent copy of the current state.
func (s *StateStore) Snapshot() (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized || s.state.Index == nil {
		return State{}, ErrInconsistent
	}
	return s.state, nil
}

// Loaded reports whether any catalog was ever committed.
func (s *StateStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// BeginUpdating moves to Updating and returns the refresh start time to pass
// back to Commit.
func (s *StateStore) BeginUpdating() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	s.state.Status = StatusUpdating
	s.log.Info("catalog status set", zap.Stringer("status", StatusUpdating))
	return started
}

// Commit installs idx, marks the catalog Ready and clears error and attempt
// bookkeeping. It refuses an index from a refresh that started before the
// one already installed and reports whether idx was installed.
func (s *StateStore) Commit(idx *Index, startedAt time.Time) bool {
	if idx == nil {
		idx = BuildIndex(nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && startedAt.Before(s.installedFrom) {
		s.log.Warn("discarding stale catalog commit",
			zap.Time("started_at", startedAt),
			zap.Time("installed_from", s.installedFrom),
		)
		if s.state.Status == StatusUpdating {
			s.state.Status = StatusReady
		}
		return false
	}

	s.state = State{
		Status:      StatusReady,
		Index:       idx,
		LastUpdated: s.now(),
	}
	s.initialized = true
	s.loaded = true
	s.installedFrom = startedAt

	s.log.Info("catalog updated", zap.Int("games", idx.Len()))
	return true
}

// RecordFailure stores msg and leaves the catalog Ready if one was ever
// loaded, Error otherwise.
func (s *StateStore) RecordFailure(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		s.state.Status = StatusReady
	} else {
		s.state.Status = StatusError
	}
	s.state.ErrorMessage = msg

	s.log.Error("catalog update failed",
		zap.String("error_message", msg),
		zap.Stringer("status", s.state.Status),
	)
}

// IncrementAttempts bumps the failed-attempt counter and returns the new
// value.
func (s *StateStore) IncrementAttempts() int {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()

	s.mu.Lock()
	s.state.UpdateAttempts++
	n := s.state.UpdateAttempts
	s.mu.Unlock()

	s.log.Warn("catalog update attempt failed", zap.Int("attempt", n))
	return n
}

func (s *StateStore) ResetAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UpdateAttempts = 0
}
