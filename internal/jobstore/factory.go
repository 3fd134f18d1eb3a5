package jobstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/unihub/dispatch/internal/config"
)

// New creates a Store based on the configured backend. The Postgres
// backend reuses the shared connection pool; the Redis backend owns its
// own client and closes it on Close.
func New(ctx context.Context, cfg config.JobsConfig, pool *pgxpool.Pool, log zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case "postgres", "":
		if pool == nil {
			return nil, fmt.Errorf("postgres job store requires a database pool")
		}
		log.Info().Str("backend", "postgres").Msg("job store initialized")
		return NewPostgresStore(pool), nil

	case "redis":
		store, err := NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("create redis job store: %w", err)
		}
		log.Info().Str("backend", "redis").Str("addr", cfg.RedisAddr).Msg("job store initialized")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown job store backend: %s", cfg.Backend)
	}
}
