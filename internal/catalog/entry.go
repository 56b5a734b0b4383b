// Package catalog owns the process-wide game catalog: its lifecycle state,
// the search index derived from it, and the refresh machinery that keeps it
// current.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNoSnapshot is returned by SnapshotStore.Load when nothing was saved yet.
var ErrNoSnapshot = errors.New("no catalog snapshot")

// Entry is one upstream catalog item.
type Entry struct {
	ID   int    `json:"appid"`
	Name string `json:"name"`
}

// Fetcher returns the full upstream catalog.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]Entry, error)
}

// SnapshotStore persists the last good catalog for faster cold starts.
type SnapshotStore interface {
	Save(ctx context.Context, entries []Entry) error
	Load(ctx context.Context) ([]Entry, time.Time, error)
}
