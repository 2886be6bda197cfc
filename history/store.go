// Package history provides an optional execution-history audit log for
// a bridge: every execution Entry it is fed (the bridge feeds one per
// observed cell completion) is durably recorded in Postgres. Nothing in bridge requires this
// package; a host process wires it in only if it wants a queryable
// record of what ran.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Entry is one recorded execution.
type Entry struct {
	MsgID          string
	Session        string
	ExecutionCount int
	Code           string
	Status         string
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Store is a handle to the audit log table. Open ensures the schema
// exists before returning.
type Store struct {
	db *sql.DB
}

// Open connects to dsn via the pgx stdlib driver and ensures the
// execution_history table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS execution_history (
	msg_id           TEXT PRIMARY KEY,
	session          TEXT NOT NULL,
	execution_count  INTEGER NOT NULL,
	code             TEXT NOT NULL,
	status           TEXT NOT NULL,
	error            TEXT NOT NULL DEFAULT '',
	started_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("history: ensure schema: %w", err)
	}
	return nil
}

// Record inserts one execution's audit row. If a row with the same
// msg_id exists, only its status, error and finished_at are updated.
func (s *Store) Record(ctx context.Context, e Entry) error {
	const stmt = `
INSERT INTO execution_history
	(msg_id, session, execution_count, code, status, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (msg_id) DO UPDATE SET
	status = EXCLUDED.status,
	error = EXCLUDED.error,
	finished_at = EXCLUDED.finished_at`

	_, err := s.db.ExecContext(ctx, stmt,
		e.MsgID, e.Session, e.ExecutionCount, e.Code, e.Status, e.Error, e.StartedAt, e.FinishedAt)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// Recent returns the last limit recorded executions for a session,
// most recent first.
func (s *Store) Recent(ctx context.Context, session string, limit int) ([]Entry, error) {
	const q = `
SELECT msg_id, session, execution_count, code, status, error, started_at, finished_at
FROM execution_history
WHERE session = $1
ORDER BY finished_at DESC
LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, session, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.MsgID, &e.Session, &e.ExecutionCount, &e.Code, &e.Status, &e.Error, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
