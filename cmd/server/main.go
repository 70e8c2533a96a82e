// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

// Package main is the entry point for the Vitrine recommendation server.
//
// Vitrine serves personalized product recommendations for a multi-shop
// marketplace. It trains a two-tower embedding model on implicit feedback
// (views, wishlist adds, cart adds, purchases) read from the marketplace
// database, persists the model artifacts to disk, and answers ranked
// product lists over a REST API with caching and popularity fallbacks.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Data sources: Connect to the marketplace Postgres, or run on in-memory demo data
//  3. Cache: Redis-backed recommendation cache, or an in-process TTL cache
//  4. Artifact store: Versioned model snapshots under the data directory
//  5. Recommendation service: Restore the newest persisted model into memory
//  6. HTTP API: Chi router with rate limiting, CORS, and Prometheus metrics
//  7. Supervisor tree: HTTP server and training scheduler under suture supervision
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (VITRINE_ prefix, double underscore nests sections)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Demo Mode
//
// Vitrine can run WITHOUT a marketplace database, serving from seeded
// in-memory data. This is the default and is intended for development:
//
//	VITRINE_DATABASE__ENABLED=false (default)
//
// Production deployments point it at the marketplace read replica and a
// shared Redis:
//
//	VITRINE_DATABASE__ENABLED=true
//	VITRINE_DATABASE__DSN="host=db user=vitrine dbname=marketplace"
//	VITRINE_REDIS__ENABLED=true
//	VITRINE_REDIS__ADDR=redis:6379
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (shutdown timeout)
//   - Waits for an in-flight training run to finish or time out
//   - Closes cache and database connections
//
// # Example Usage
//
// Development with demo data:
//
//	export VITRINE_LOGGING__FORMAT=console
//	export VITRINE_RECOMMEND__DATA_DIR=./data
//	export VITRINE_RECOMMEND__TRAIN_ON_STARTUP=true
//	./vitrine
//
// Production against the marketplace database:
//
//	export VITRINE_DATABASE__ENABLED=true
//	export VITRINE_DATABASE__DSN="host=db-replica user=vitrine dbname=marketplace sslmode=require"
//	export VITRINE_REDIS__ENABLED=true
//	export VITRINE_REDIS__ADDR=redis:6379
//	export VITRINE_RECOMMEND__TRAIN_SCHEDULE="0 3 * * *"
//	./vitrine
//
// Docker:
//
//	docker run -d \
//	  -e VITRINE_DATABASE__ENABLED=true \
//	  -e VITRINE_DATABASE__DSN="host=db user=vitrine dbname=marketplace" \
//	  -v vitrine-data:/data/vitrine \
//	  -p 8080:8080 \
//	  ghcr.io/vitrinehq/vitrine
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitrinehq/vitrine/internal/api"
	"github.com/vitrinehq/vitrine/internal/config"
	"github.com/vitrinehq/vitrine/internal/logging"
	"github.com/vitrinehq/vitrine/internal/recommend"
	"github.com/vitrinehq/vitrine/internal/recommend/storage"
	"github.com/vitrinehq/vitrine/internal/store"
	"github.com/vitrinehq/vitrine/internal/supervisor"
	"github.com/vitrinehq/vitrine/internal/supervisor/services"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Vitrine with supervisor tree")

	// Log configuration status - show data source based on Enabled flag
	if cfg.Database.Enabled {
		logging.Info().
			Bool("redis_enabled", cfg.Redis.Enabled).
			Str("data_dir", cfg.Recommend.DataDir).
			Str("train_schedule", cfg.Recommend.TrainSchedule).
			Msg("Configuration loaded")
	} else {
		logging.Info().
			Bool("database_enabled", false).
			Bool("redis_enabled", cfg.Redis.Enabled).
			Str("data_dir", cfg.Recommend.DataDir).
			Msg("Configuration loaded (demo mode, in-memory marketplace data)")
	}

	// Marketplace data sources: Postgres in production, seeded memory
	// stores in demo mode. Both feed training and the popularity fallback.
	var (
		interactions recommend.InteractionSource
		stats        recommend.ProductStatsSource
		dbPinger     api.Pinger
	)
	if cfg.Database.Enabled {
		db, err := store.Open(cfg.Database, logging.Logger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to marketplace database")
		}
		sqlDB, err := db.DB()
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to access database connection pool")
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing database")
			}
		}()

		pg := store.NewPostgresStore(db)
		interactions = pg
		stats = pg
		dbPinger = api.PingerFunc(sqlDB.PingContext)
		logging.Info().Msg("Marketplace database connected")
	} else {
		mem := store.NewMemoryStore()
		mem.SeedDemoData()
		interactions = mem
		stats = mem
		logging.Info().Msg("Demo data seeded")
	}

	// Recommendation cache: Redis when configured, otherwise in-process.
	var (
		cache       recommend.Cache
		cachePinger api.Pinger
	)
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := client.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing Redis client")
			}
		}()

		// An unreachable Redis is not fatal: the circuit breaker degrades
		// cache operations to misses until it comes back.
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).
				Msg("Redis unreachable, cache will degrade to misses until it recovers")
		} else {
			logging.Info().Str("addr", cfg.Redis.Addr).Msg("Redis cache connected")
		}
		pingCancel()

		cache = recommend.NewRedisCache(client, cfg.Recommend.CacheTTL, logging.Logger())
		cachePinger = api.PingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	} else {
		cache = recommend.NewMemoryCache(cfg.Recommend.CacheTTL, logging.Logger())
		logging.Info().Dur("ttl", cfg.Recommend.CacheTTL).Msg("In-process recommendation cache enabled")
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing recommendation cache")
		}
	}()

	// Versioned model artifacts live under the data directory so a restart
	// resumes serving the last trained model.
	artifacts, err := storage.NewStore(cfg.Recommend.DataDir)
	if err != nil {
		logging.Fatal().Err(err).Str("data_dir", cfg.Recommend.DataDir).
			Msg("Failed to open artifact store")
	}

	embeddingCfg := recommend.DefaultEmbeddingConfig()
	embeddingCfg.Seed = cfg.Recommend.Seed

	svc := recommend.NewService(recommend.ServiceConfig{
		DefaultLimit: cfg.Recommend.DefaultLimit,
		MaxLimit:     cfg.Recommend.MaxLimit,
		KeepVersions: cfg.Recommend.KeepVersions,
		TrainTimeout: cfg.Recommend.TrainTimeout,
		Embedding:    embeddingCfg,
	}, interactions, stats, cache, artifacts, logging.Logger())

	// Restore the newest persisted model. A store with no artifacts is a
	// normal first boot; a corrupt store is reported but the service keeps
	// serving popularity fallbacks until the next training run.
	if err := svc.LoadArtifacts(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Failed to load model artifacts, serving fallbacks until next training run")
	} else if status := svc.Status(); status.ModelVersion > 0 {
		logging.Info().Int("version", status.ModelVersion).Msg("Model artifacts restored")
	} else {
		logging.Info().Msg("No model artifacts yet, serving fallbacks until first training run")
	}

	handler := api.NewHandler(svc, cfg, dbPinger, cachePinger)

	chiMw := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins:   cfg.API.CORSOrigins,
		CORSAllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		CORSAllowCredentials: false,
		CORSMaxAge:           86400,
		RateLimitRequests:    cfg.API.RateLimitRequests,
		RateLimitWindow:      cfg.API.RateLimitWindow,
	})

	router := api.NewRouter(handler, chiMw)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Create cancellable context for coordinating shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === SUPERVISOR TREE SETUP ===

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	if cfg.Recommend.TrainSchedule == "" && !cfg.Recommend.TrainOnStartup {
		logging.Info().Msg("Scheduled training disabled (recommend.train_schedule is empty)")
	} else {
		tree.AddTrainingService(services.NewTrainingSchedulerService(svc, services.TrainingSchedulerConfig{
			Schedule:       cfg.Recommend.TrainSchedule,
			TrainOnStartup: cfg.Recommend.TrainOnStartup,
			TrainTimeout:   cfg.Recommend.TrainTimeout,
		}, logging.Logger()))
		logging.Info().
			Str("schedule", cfg.Recommend.TrainSchedule).
			Bool("train_on_startup", cfg.Recommend.TrainOnStartup).
			Msg("Training scheduler service added")
	}

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Vitrine stopped gracefully")
}
