package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `SET application_name = 'elda-admin'`)
		return err
	}

	cfg.MaxConns = 5
	cfg.MinConns = 0
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS user_preferences (
	user_id    TEXT PRIMARY KEY,
	font_size  TEXT NOT NULL DEFAULT 'medium',
	theme      TEXT NOT NULL DEFAULT 'light',
	language   TEXT NOT NULL DEFAULT 'en',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS console_audit_logs (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	resource   TEXT NOT NULL,
	record_id  TEXT NOT NULL,
	action     TEXT NOT NULL,
	status     INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS console_audit_logs_created_at_idx ON console_audit_logs (created_at DESC);
`

// Migrate creates the console's own tables. Entity data lives in the API.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
