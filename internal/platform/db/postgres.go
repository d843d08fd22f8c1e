package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The registries behind the engine are small and read-heavy; a handful of
// connections covers them, and idle ones are released quickly so sidecar
// poolers see honest numbers.
const (
	maxConns        = 16
	minConns        = 2
	maxConnIdleTime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// New opens the pgx pool shared by every repository and fails fast when the
// database is unreachable, so a misconfigured DSN surfaces at startup rather
// than on the first grant check.
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	config.MaxConns = maxConns
	config.MinConns = minConns
	config.MaxConnIdleTime = maxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}
