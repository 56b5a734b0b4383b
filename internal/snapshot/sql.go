package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SteamPM/internal/catalog"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 30 * time.Second
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	schema     []string
	insert     string
	upsertMeta string
}

// sqlStore keeps one snapshot: the entries table is replaced wholesale on
// every Save and snapshot_meta holds a single row with the save time.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

func (s *sqlStore) migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		for _, stmt := range s.d.schema {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *sqlStore) Save(ctx context.Context, entries []catalog.Entry) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries`); err != nil {
			return fmt.Errorf("clear entries: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, s.d.insert)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, e := range entries {
			if _, err := stmt.ExecContext(ctx, i, e.ID, e.Name); err != nil {
				return fmt.Errorf("insert entry %d: %w", e.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, s.d.upsertMeta, time.Now().UTC().UnixMilli(), len(entries)); err != nil {
			return fmt.Errorf("write snapshot meta: %w", err)
		}
		return tx.Commit()
	})
}

func (s *sqlStore) Load(ctx context.Context) ([]catalog.Entry, time.Time, error) {
	var (
		out     []catalog.Entry
		savedAt time.Time
	)

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var millis, count int64
		err := s.db.QueryRowContext(ctx, `
			SELECT saved_at, entry_count
			FROM snapshot_meta
			WHERE id = 1
		`).Scan(&millis, &count)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoSnapshot
		}
		if err != nil {
			return err
		}
		savedAt = time.UnixMilli(millis).UTC()

		rows, err := s.db.QueryContext(ctx, `
			SELECT appid, name
			FROM catalog_entries
			ORDER BY position ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]catalog.Entry, 0, count)
		for rows.Next() {
			var e catalog.Entry
			if err := rows.Scan(&e.ID, &e.Name); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, time.Time{}, err
	}
	return out, savedAt, nil
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
