package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultCooldown is the minimum gap between scheduled refreshes.
const DefaultCooldown = 2 * time.Minute

// Refreshable is what the scheduler drives.
type Refreshable interface {
	Refresh(ctx context.Context) bool
}

// Scheduler triggers a refresh once a day at a fixed local wall-clock time.
type Scheduler struct {
	Refresher Refreshable
	State     *StateStore
	Log       *zap.Logger

	Hour     int
	Minute   int
	Cooldown time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewScheduler(r Refreshable, state *StateStore, hour, minute int, log *zap.Logger) *Scheduler {
	return &Scheduler{
		Refresher: r,
		State:     state,
		Log:       log,
		Hour:      hour,
		Minute:    minute,
		Cooldown:  DefaultCooldown,
		Now:       time.Now,
		Sleep:     SleepContext,
	}
}

// ParseClock parses "HH:MM" in 24h form.
func ParseClock(s string) (hour, minute int, err error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(hs)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(ms)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// NextRun is the first hour:minute strictly after now, in now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	for {
		current := now()
		next := NextRun(current, s.Hour, s.Minute)
		log.Info("next catalog refresh scheduled", zap.Time("at", next))

		if err := sleep(ctx, next.Sub(current)); err != nil {
			log.Info("refresh scheduler stopped")
			return
		}

		if s.recentlyUpdated(now()) {
			log.Info("skipping scheduled refresh, catalog updated recently")
		} else {
			s.Refresher.Refresh(ctx)
		}

		if err := sleep(ctx, s.Cooldown); err != nil {
			log.Info("refresh scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) recentlyUpdated(at time.Time) bool {
	if s.State == nil || s.Cooldown <= 0 {
		return false
	}
	st, err := s.State.Snapshot()
	if err != nil || st.LastUpdated.IsZero() {
		return false
	}
	return at.Sub(st.LastUpdated) < s.Cooldown
}
