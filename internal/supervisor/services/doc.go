// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

/*
Package services provides suture.Service wrappers for Vitrine components.

This package adapts application components to the suture v4 supervision
model, translating their native lifecycle patterns (ListenAndServe, cron
Start/Stop) into suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation into the Serve pattern
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the blocking ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining requests

Training Scheduler (TrainingSchedulerService):
  - Retrains the recommendation model on a cron schedule
  - Optional training pass on startup
  - Skips firings that overlap an in-progress run
  - Training failures are logged, never fatal to the service

# Usage Example

Creating and registering services:

	import (
	    "net/http"
	    "time"

	    "github.com/vitrinehq/vitrine/internal/supervisor"
	    "github.com/vitrinehq/vitrine/internal/supervisor/services"
	)

	func setupSupervisor(server *http.Server, svc *recommend.Service) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    // HTTP server with 15s shutdown timeout
	    httpSvc := services.NewHTTPServerService(server, 15*time.Second)
	    tree.AddAPIService(httpSvc)

	    // Nightly training
	    trainSvc := services.NewTrainingSchedulerService(svc, services.TrainingSchedulerConfig{
	        Schedule:     "0 3 * * *",
	        TrainTimeout: 30 * time.Minute,
	    }, logging.Logger())
	    tree.AddTrainingService(trainSvc)

	    // Start supervision
	    tree.Serve(ctx)
	}

# Error Semantics

Wrappers return ctx.Err() on graceful shutdown so suture records a normal
stop. A startup failure (port already bound, invalid schedule) returns an
error; permanent configuration errors wrap suture.ErrDoNotRestart because
restarting cannot fix them.

# See Also

  - internal/supervisor: The supervisor tree these services run under
  - internal/recommend: The service the training scheduler drives
*/
package services
