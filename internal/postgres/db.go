package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/logx"
)

// Connect opens the pool and waits for the first successful ping, retrying
// while the database is still starting.
func Connect(ctx context.Context, dsn string, log *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second

	log = logx.OrNop(log)
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			log.Warn("postgres not ready", zap.String("host", cfg.ConnConfig.Host), zap.Error(err))
			return nil, err
		}
		return pool, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(30*time.Second))
}
