package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var postgresDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS catalog_entries (
			position INTEGER PRIMARY KEY,
			appid    BIGINT  NOT NULL,
			name     TEXT    NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_meta (
			id          SMALLINT PRIMARY KEY CHECK (id = 1),
			saved_at    BIGINT   NOT NULL,
			entry_count BIGINT   NOT NULL
		)`,
	},
	insert: `INSERT INTO catalog_entries (position, appid, name) VALUES ($1, $2, $3)`,
	upsertMeta: `
		INSERT INTO snapshot_meta (id, saved_at, entry_count) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET saved_at = EXCLUDED.saved_at, entry_count = EXCLUDED.entry_count`,
}

type PostgresStore struct {
	sqlStore
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlStore{db: db, d: postgresDialect}}
}

// OpenPostgres connects through the pgx database/sql driver and ensures the
// snapshot tables exist.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
