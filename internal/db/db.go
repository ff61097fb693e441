// Package db opens the database connections and owns the schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// DB wraps the pgx pool used for health checks and schema management.
type DB struct {
	Pool *pgxpool.Pool
}

// Open connects the pool and fails fast when the database is unreachable.
func Open(ctx context.Context, dsn string, maxConns, minConns int) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	// Fail fast
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

// OpenSQL opens the database/sql handle the repositories use.
func OpenSQL(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	handle, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	handle.SetMaxOpenConns(maxConns)
	handle.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return handle, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_projects (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		requirements TEXT NOT NULL,
		refined_requirements TEXT,
		user_stories TEXT,
		system_architecture TEXT,
		ux_design TEXT,
		tech_stack TEXT,
		generated_project_ref TEXT,
		stage TEXT NOT NULL DEFAULT 'draft',
		archived BOOLEAN NOT NULL DEFAULT false,
		ai_provider TEXT NOT NULL DEFAULT 'anthropic',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_projects_stage ON pipeline_projects (stage) WHERE NOT archived;`,
	`CREATE TABLE IF NOT EXISTS pipeline_ai_providers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		api_key TEXT,
		model_name TEXT NOT NULL,
		max_tokens INT NOT NULL DEFAULT 4000,
		is_active BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
}

// seedProviders inserts the built-in provider rows once. API keys and the
// active flag are operator-managed, so existing rows are never overwritten.
const seedProviders = `
INSERT INTO pipeline_ai_providers (name, display_name, model_name, max_tokens, is_active)
VALUES
	('anthropic', 'Anthropic Claude', 'claude-sonnet-4-20250514', 4000, false),
	('openai', 'OpenAI GPT', 'gpt-4o', 4000, false)
ON CONFLICT (name) DO NOTHING;`

// InitSchema creates the tables and seeds the provider rows.
func (d *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if _, err := d.Pool.Exec(ctx, seedProviders); err != nil {
		return fmt.Errorf("seed providers: %w", err)
	}
	return nil
}
