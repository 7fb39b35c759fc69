// Package main runs the whale index server:
// - Refresh (scheduled): ingest new days, recompute the indices over the full history
// - HTTP API with cached JSON responses and Prometheus metrics
// - WebSocket push of the latest index point
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"whale-index-lab/internal/api"
	"whale-index-lab/internal/app"
	"whale-index-lab/internal/broadcast"
	"whale-index-lab/internal/cache"
	"whale-index-lab/internal/config"
	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/ingestion"
	"whale-index-lab/internal/logger"
	"whale-index-lab/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get().Named("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Errorw("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Infow("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	stores, closeStores, err := app.OpenStores(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeStores()

	engine, err := app.NewEngine(cfg.Engine.ConfigPath, log)
	if err != nil {
		return err
	}

	respCache, closeCache, err := app.NewCache(ctx, cfg.Redis, cfg.Cache, log)
	if err != nil {
		return err
	}
	defer closeCache()

	manager := ingestion.NewManager(ingestion.ManagerOptions{
		Source:   app.NewSource(cfg.Feed, log),
		Store:    stores.Metrics,
		Progress: stores.Progress,
		Logger:   log,
	})

	hub := broadcast.NewHub(log)
	svc, err := service.New(service.Options{
		Engine:    engine,
		Metrics:   stores.Metrics,
		Points:    stores.Points,
		Ingest:    manager,
		Publisher: &refreshHook{hub: hub, cache: respCache, log: log},
		Logger:    log,
	})
	if err != nil {
		return err
	}

	server, err := api.NewServer(api.Options{
		Service: svc,
		Cache:   respCache,
		Stream:  hub,
		HTTP:    cfg.HTTP,
		Name:    cfg.App.Name,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	// A failed first refresh is retried on the schedule; /health reports it meanwhile.
	if _, err := svc.Refresh(ctx); err != nil {
		log.Warnw("initial refresh failed", "error", err)
	}

	g.Go(func() error {
		err := svc.Run(gctx, cfg.Feed.RefreshInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return server.Start(gctx)
	})

	log.Infow("server started",
		"addr", cfg.HTTP.Addr,
		"refresh_interval", cfg.Feed.RefreshInterval.String(),
		"fixtures", cfg.Feed.UseFixtures,
		"memory_storage", cfg.Storage.UseMemory,
		"redis", cfg.Redis.Addr != "",
	)
	return g.Wait()
}

// refreshHook drops stale cached responses and pushes the new point to
// WebSocket clients after every refresh.
type refreshHook struct {
	hub   *broadcast.Hub
	cache *cache.Cache
	log   *logger.Logger
}

func (h *refreshHook) Publish(p domain.IndexPoint) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.cache.Invalidate(ctx); err != nil {
		h.log.Warnw("cache invalidation failed", "error", err)
	}
	h.hub.Publish(p)
}
