package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig описывает подключение к PostgreSQL.
type PoolConfig struct {
	DSN         string
	MaxConns    int32
	IdleTimeout time.Duration
	Attempts    int
	RetryDelay  time.Duration
}

// Connect создает пул соединений и пингует базу, повторяя попытки при неудаче.
func Connect(ctx context.Context, cfg PoolConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}

	attempts := max(cfg.Attempts, 1)
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()
		if err != nil {
			lastErr = fmt.Errorf("unable to create postgres connection pool (attempt %d/%d): %w", attempt, attempts, err)
		} else {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			err = pool.Ping(pingCtx)
			pingCancel()
			if err == nil {
				logger.Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
				return pool, nil
			}
			pool.Close()
			lastErr = fmt.Errorf("unable to ping postgres database (attempt %d/%d): %w", attempt, attempts, err)
		}

		logger.Warn("Postgres connection failed, retrying...", zap.Int("attempt", attempt), zap.Int("max_attempts", attempts), zap.Error(lastErr))
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("postgres connection aborted: %w", ctx.Err())
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", attempts, lastErr)
}
