package catalog

import (
	"context"
	"sync"
	"time"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	// results are consumed in order; the last one repeats.
	results []fetchResult
}

type fetchResult struct {
	entries []Entry
	err     error
}

func (f *fakeFetcher) FetchAll(ctx context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	r := f.results[i]
	return r.entries, r.err
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fetcherFunc func(ctx context.Context) ([]Entry, error)

func (f fetcherFunc) FetchAll(ctx context.Context) ([]Entry, error) { return f(ctx) }

type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

type fakeSnapshots struct {
	entries []Entry
	savedAt time.Time
	loadErr error
	saveErr error
	saved   [][]Entry
}

func (f *fakeSnapshots) Save(ctx context.Context, entries []Entry) error {
	f.saved = append(f.saved, entries)
	return f.saveErr
}

func (f *fakeSnapshots) Load(ctx context.Context) ([]Entry, time.Time, error) {
	if f.loadErr != nil {
		return nil, time.Time{}, f.loadErr
	}
	return f.entries, f.savedAt, nil
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
	size     int
}

func (o *countingObserver) ObserveRefreshAttempt(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[outcome]++
}

func (o *countingObserver) ObserveCatalogSize(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.size = n
}

func sampleEntries() []Entry {
	return []Entry{
		{ID: 10, Name: "Counter-Strike"},
		{ID: 20, Name: "Team Fortress Classic"},
		{ID: 30, Name: "Day of Defeat"},
		{ID: 40, Name: "Deathmatch Classic"},
		{ID: 730, Name: "Counter-Strike 2"},
	}
}
