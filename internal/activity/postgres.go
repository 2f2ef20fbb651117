package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS panel_activity (
	id          BIGSERIAL PRIMARY KEY,
	at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	session_id  TEXT NOT NULL DEFAULT '',
	request_id  TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	entity      TEXT NOT NULL,
	record_id   TEXT NOT NULL DEFAULT '',
	detail      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS panel_activity_at_idx ON panel_activity (at DESC);
`

// PostgresStore persists entries in the panel_activity table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("activity database ping failed: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the activity table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create activity schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO panel_activity (at, session_id, request_id, action, entity, record_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.At, e.Session, e.RequestID, e.Action, e.Entity, e.RecordID, e.Detail)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, at, session_id, request_id, action, entity, record_id, detail
		FROM panel_activity
		ORDER BY at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.At, &e.Session, &e.RequestID, &e.Action, &e.Entity, &e.RecordID, &e.Detail)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan activity: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
