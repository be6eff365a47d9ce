// Package app assembles stores and the event processor from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pool-analytics-lab/internal/config"
	"pool-analytics-lab/internal/storage"
	chstore "pool-analytics-lab/internal/storage/clickhouse"
	"pool-analytics-lab/internal/storage/memory"
	"pool-analytics-lab/internal/storage/migrations"
	pgstore "pool-analytics-lab/internal/storage/postgres"
	redisstore "pool-analytics-lab/internal/storage/redis"
)

// Stores holds the entity and event stores for one backend.
type Stores struct {
	Backend  string
	Entities storage.EntityStore
	Events   storage.EventStore
	closers  []func()
}

// Close releases backend connections in reverse open order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores connects the configured backend. Postgres migrations run before
// the stores are returned. The redis backend keeps only entities, so events
// go to Postgres when a DSN is configured and to memory otherwise.
func OpenStores(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stores{Backend: cfg.Backend}

	switch cfg.Backend {
	case "", "memory":
		s.Backend = "memory"
		s.Entities = memory.NewEntityStore()
		s.Events = memory.NewEventStore()
		return s, nil

	case "postgres":
		pool, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.Entities = pgstore.NewEntityStore(pool)
		s.Events = pgstore.NewEventStore(pool)
		return s, nil

	case "redis":
		client, err := redisstore.NewClient(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.Entities = redisstore.NewEntityStore(client, cfg.RedisPrefix)

		if cfg.PostgresDSN == "" {
			logger.Warn("redis backend without postgres dsn, event log kept in memory")
			s.Events = memory.NewEventStore()
			return s, nil
		}
		pool, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.Events = pgstore.NewEventStore(pool)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func openPostgres(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*pgstore.Pool, error) {
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("applied postgres migrations", zap.Strings("files", applied))
	}
	return pool, nil
}

// OpenHistory migrates the ClickHouse database named in dsn and returns a
// history store on it. The returned func closes the connection.
func OpenHistory(ctx context.Context, dsn string) (*chstore.HistoryStore, func(), error) {
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	return chstore.NewHistoryStore(conn), func() { _ = conn.Close() }, nil
}
