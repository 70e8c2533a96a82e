// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

/*
Package supervisor provides process supervision for Vitrine using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of all long-running services in the application. It provides
Erlang/OTP-style supervision with automatic restart, failure isolation,
and graceful shutdown.

# Overview

The supervisor tree organizes services into two layers for failure isolation:

	RootSupervisor ("vitrine")
	├── APISupervisor ("api-layer")
	│   └── HTTPServerService
	└── TrainingSupervisor ("training-layer")
	    └── TrainingSchedulerService

This hierarchy ensures that:
  - A crash in the training scheduler doesn't take down the HTTP server
  - Cached and fallback recommendations stay available while training recovers
  - Each layer restarts independently with its own failure counting

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via the sutureslog adapter, bridged into zerolog through
    internal/logging.NewSlogHandler

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/vitrinehq/vitrine/internal/logging"
	    "github.com/vitrinehq/vitrine/internal/supervisor"
	    "github.com/vitrinehq/vitrine/internal/supervisor/services"
	)

	func main() {
	    logger := logging.NewSlogLogger()
	    config := supervisor.DefaultTreeConfig()

	    tree, err := supervisor.NewSupervisorTree(logger, config)
	    if err != nil {
	        logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	    }

	    tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))
	    tree.AddTrainingService(services.NewTrainingSchedulerService(svc, schedCfg, logging.Logger()))

	    // Start the tree (blocks until context canceled)
	    if err := tree.Serve(ctx); err != nil {
	        logging.Error().Err(err).Msg("Supervisor stopped")
	    }
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,              // Failures before backoff
	    FailureDecay:     30.0,             // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Default values match suture's production-ready defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: Service stopped cleanly, will not be restarted
  - Return error: Service crashed, will be restarted
  - Context canceled: Shutdown requested, return promptly

# What Is NOT Supervised

The stores are intentionally not supervised:
  - Postgres connections are pooled and retried by database/sql
  - The Redis cache degrades through its circuit breaker instead of
    restarting; a restart would not fix a downed Redis
  - The artifact store is plain filesystem I/O with no long-running state

# Debugging Shutdown Issues

If services don't stop within the timeout:

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", fmt.Sprint(svc)).Msg("Service didn't stop")
	}

Common causes:
  - Goroutines not respecting context cancellation
  - Blocked network I/O without deadlines
  - A training run ignoring its context

# Thread Safety

The SupervisorTree is safe for concurrent use:
  - Services can be added from any goroutine
  - Multiple services can crash simultaneously

# See Also

  - internal/supervisor/services: Service wrappers
  - github.com/thejerf/suture/v4: Underlying library
*/
package supervisor
