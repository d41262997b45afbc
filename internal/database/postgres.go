package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"arts/api/internal/config"
)

func NewPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpen)
	poolConfig.MinConns = int32(cfg.MaxIdle)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the tables the service owns if they do not exist.
// The statements are idempotent so repeated startups are safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			full_name     TEXT NOT NULL,
			role          TEXT NOT NULL,
			email         TEXT NOT NULL,
			password_hash BYTEA NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS patients (
			id                   TEXT PRIMARY KEY,
			uid                  TEXT NOT NULL UNIQUE,
			name                 TEXT NOT NULL,
			age                  INT NOT NULL,
			gender               TEXT NOT NULL,
			phone                TEXT NOT NULL,
			department           TEXT NOT NULL,
			visit_date           TIMESTAMPTZ NOT NULL,
			status               TEXT NOT NULL,
			left_eye_image_url   TEXT,
			left_eye_format      TEXT,
			left_eye_resolution  TEXT,
			right_eye_image_url  TEXT,
			right_eye_format     TEXT,
			right_eye_resolution TEXT,
			image_signature      BYTEA,
			condition            TEXT NOT NULL DEFAULT '',
			ai_score             INT,
			decision             TEXT,
			findings             TEXT,
			reviewed_at          TIMESTAMPTZ,
			reviewed_by          TEXT,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_patients_status ON patients (status);
		CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients (created_at DESC);
	`

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
