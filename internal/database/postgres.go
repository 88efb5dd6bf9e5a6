package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JAYDIPSINH27/BiasBreaker/internal/retry"
)

var connectPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Database not reachable yet, retrying",
			"attempt", attempt, "backoff", backoff, "error", err)
	},
}

// Connect opens a pgx connection pool and verifies connectivity. The initial
// ping is retried with backoff so the service survives starting before its
// database does.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	transient := func(error) bool { return true }
	if err := retry.DoVoid(ctx, connectPolicy, transient, func() error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected", "min_conns", poolCfg.MinConns, "max_conns", poolCfg.MaxConns)
	return pool, nil
}

// RunMigrations applies the schema. Statements are idempotent so running them
// on every startup is safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS eye_tracking_sessions (
			session_id TEXT PRIMARY KEY,
			user_id UUID NOT NULL,
			start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			end_time TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_active
			ON eye_tracking_sessions (start_time DESC)
			WHERE end_time IS NULL`,
		`CREATE TABLE IF NOT EXISTS gaze_data (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES eye_tracking_sessions(session_id) ON DELETE CASCADE,
			gaze_x DOUBLE PRECISION NOT NULL,
			gaze_y DOUBLE PRECISION NOT NULL,
			pupil_diameter DOUBLE PRECISION NOT NULL DEFAULT 0,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gaze_data_session
			ON gaze_data (session_id, timestamp DESC)`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
