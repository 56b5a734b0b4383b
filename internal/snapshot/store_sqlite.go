package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS catalog_entries (
			position INTEGER PRIMARY KEY,
			appid    INTEGER NOT NULL,
			name     TEXT    NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_meta (
			id          INTEGER PRIMARY KEY CHECK (id = 1),
			saved_at    INTEGER NOT NULL,
			entry_count INTEGER NOT NULL
		)`,
	},
	insert: `INSERT INTO catalog_entries (position, appid, name) VALUES (?, ?, ?)`,
	upsertMeta: `
		INSERT INTO snapshot_meta (id, saved_at, entry_count) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET saved_at = excluded.saved_at, entry_count = excluded.entry_count`,
}

type SQLiteStore struct {
	sqlStore
}

// OpenSQLite opens (creating if needed) the snapshot database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite snapshot path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Save replaces the whole table inside one write transaction.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{sqlStore{db: db, d: sqliteDialect}}
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
