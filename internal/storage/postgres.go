package storage

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps the key-value documents in a single JSONB table.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the backing table if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS kv_store (
	key         TEXT PRIMARY KEY,
	value       JSONB NOT NULL,
	update_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: migrate kv_store: %w", err)
	}

	return nil
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const stmt = `SELECT value FROM kv_store WHERE key = $1;`

	var b []byte
	err := s.db.QueryRow(ctx, stmt, key).Scan(&b)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", key, err)
	}

	return b, nil
}

func (s *Postgres) Set(ctx context.Context, key string, value []byte) error {
	const stmt = `
INSERT INTO kv_store (key, value, update_time) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, update_time = NOW();`

	if _, err := s.db.Exec(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("postgres: set %s: %w", key, err)
	}

	return nil
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	const stmt = `DELETE FROM kv_store WHERE key = $1;`

	if _, err := s.db.Exec(ctx, stmt, key); err != nil {
		return fmt.Errorf("postgres: delete %s: %w", key, err)
	}

	return nil
}
