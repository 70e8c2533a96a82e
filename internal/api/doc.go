// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

/*
Package api provides the HTTP REST API layer for Vitrine.

This package exposes the recommendation service over JSON endpoints and
serves as the interface between storefront backends and the recommendation
engine. Widgets never call it directly; the marketplace backend fetches
recommendation lists and renders them itself.

Key Components:

  - Router: HTTP route configuration and middleware stack integration
  - Handler: Request handlers for recommendation, training, and health routes
  - Response formatting: Standardized JSON envelopes with request metadata
  - Error handling: Stable error codes with appropriate HTTP status codes
  - Rate limiting: Per-IP limits via httprate, with a separate probe budget
  - CORS: Cross-Origin Resource Sharing for marketplace frontends

Endpoints:

1. Recommendation Endpoints (/api/v1/recommendations/):
  - GET /{userID}: personalized product recommendations, falls back to
    popularity when the user or model is unknown
  - GET /popular: global popularity ranking
  - GET /similar/{productID}: nearest products by embedding similarity
  - GET /status: model version, dimensions, and training state
  - POST /train: triggers a background training run (202 Accepted)

2. Operational Endpoints:
  - GET /health: liveness, always 200 while the process runs
  - GET /ready: readiness, checks configured database and cache backends
  - GET /metrics: Prometheus exposition

Usage Example:

	import (
	    "github.com/vitrinehq/vitrine/internal/api"
	    "github.com/vitrinehq/vitrine/internal/recommend"
	)

	// Create dependencies
	svc := recommend.NewService(store, cache, artifacts, cfg.Recommend)

	// Create handler and router
	handler := api.NewHandler(svc, cfg, dbPinger, cachePinger)
	router := api.NewRouter(handler, api.NewChiMiddleware(mwConfig))

	// Setup routes and start server
	http.ListenAndServe(":8080", router.Setup())

Performance Characteristics:

  - Recommendation reads answer from cache or the in-memory model
  - Responses are gzip compressed when the client accepts it
  - Route patterns, not raw URLs, label Prometheus metrics to keep
    cardinality bounded

Thread Safety:

All handlers are safe for concurrent requests. The recommendation service
guards model swaps internally, and training runs are serialized with a
single in-progress slot.

See Also:

  - internal/recommend: Model, trainer, and serving logic
  - internal/store: Interaction and product data access
  - internal/middleware: Compression, metrics, and performance monitoring
*/
package api
