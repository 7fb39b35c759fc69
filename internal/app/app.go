// Package app assembles stores, feed, engine and cache from process
// configuration for the command-line binaries.
package app

import (
	"context"
	"fmt"

	"whale-index-lab/internal/cache"
	"whale-index-lab/internal/config"
	"whale-index-lab/internal/feed"
	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/pipeline"
	"whale-index-lab/internal/storage"
	chstore "whale-index-lab/internal/storage/clickhouse"
	"whale-index-lab/internal/storage/memory"
	"whale-index-lab/internal/storage/migrations"
	pgstore "whale-index-lab/internal/storage/postgres"
)

// FixtureSeed seeds the synthetic feed so every process sees the same data.
const FixtureSeed = 42

// Stores holds all storage implementations.
type Stores struct {
	Metrics  storage.DailyMetricStore
	Points   storage.IndexPointStore
	Progress storage.IngestProgressStore
}

// OpenStores creates in-memory stores, or connects to PostgreSQL and
// ClickHouse and applies the embedded migrations. The returned cleanup
// closes every connection.
func OpenStores(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*Stores, func(), error) {
	log = logger.OrNop(log)
	if cfg.UseMemory {
		log.Infow("using in-memory storage")
		return &Stores{
			Metrics:  memory.NewDailyMetricStore(),
			Points:   memory.NewIndexPointStore(),
			Progress: memory.NewIngestProgressStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	log.Infow("connected to databases")

	cleanup := func() {
		pool.Close()
		if err := chConn.Close(); err != nil {
			log.Warnw("close clickhouse", "error", err)
		}
	}
	return &Stores{
		Metrics:  pgstore.NewDailyMetricStore(pool),
		Points:   chstore.NewIndexPointStore(chConn),
		Progress: pgstore.NewIngestProgressStore(pool),
	}, cleanup, nil
}

// NewSource returns the configured feed source.
func NewSource(cfg config.FeedConfig, log *logger.Logger) feed.Source {
	if cfg.UseFixtures {
		return feed.Fixtures{Days: cfg.FixtureDays, Seed: FixtureSeed}
	}
	opts := []feed.ClientOption{
		feed.WithTimeout(cfg.Timeout),
		feed.WithMaxRetries(cfg.MaxRetries),
		feed.WithRetryDelay(cfg.RetryBackoff),
		feed.WithLogger(log),
	}
	if cfg.PriceURL != "" {
		opts = append(opts, feed.WithPriceURL(cfg.PriceURL))
	}
	return feed.NewHTTPClient(cfg.MetricsURL, opts...)
}

// NewEngine builds the pipeline from an optional YAML file.
func NewEngine(path string, log *logger.Logger) (*pipeline.Pipeline, error) {
	cfg, err := pipeline.LoadYAML(path)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, pipeline.Options{Logger: log})
}

// NewCache returns a Redis-backed cache when an address is configured and
// an in-memory one otherwise.
func NewCache(ctx context.Context, redisCfg config.RedisConfig, cacheCfg config.CacheConfig, log *logger.Logger) (*cache.Cache, func(), error) {
	opts := cache.Options{TTL: cacheCfg.TTL, Prefix: cacheCfg.KeyPrefix, Logger: log}
	if redisCfg.Addr == "" {
		return cache.New(cache.NewMemoryStore(), opts), func() {}, nil
	}

	store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.OrNop(log).Warnw("close redis", "error", err)
		}
	}
	return cache.New(store, opts), cleanup, nil
}
