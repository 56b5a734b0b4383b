// Package snapshot persists the last good catalog so a restarted process can
// serve search before the first upstream fetch completes.
package snapshot

import (
	"context"
	"fmt"
	"strings"

	"SteamPM/internal/catalog"
)

const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

var ErrNoSnapshot = catalog.ErrNoSnapshot

type Store interface {
	catalog.SnapshotStore
	Close() error
}

// Open returns the store for driver, or nil when persistence is disabled.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverRedis:
		s, err := NewRedisStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown snapshot driver %q", driver)
	}
}
