// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

/*
Package middleware provides HTTP middleware components for the recommendation API.

This package implements infrastructure middleware for response compression,
performance monitoring, and Prometheus metrics integration. Request ID
handling, CORS, and rate limiting live in the api package next to the router
that wires them; the components here are the ones that wrap individual
endpoint groups.

Key Components:

  - Compression: Gzip compression for responses when the client accepts it
  - Performance Monitor: Request latency tracking with percentile calculations
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

The recommendation routes are mounted behind the full stack in the api
package's router:

	r.Route("/api/v1/recommendations", func(r chi.Router) {
	    r.Use(rateLimit)                              // Per-IP rate limiting
	    r.Use(middleware.PrometheusMetrics)           // Metrics
	    r.Use(middleware.Compression)                 // Gzip
	    r.Use(perfMon.Middleware)                     // Latency window
	    ...
	})

Usage Example - Performance Monitoring:

	// Keep the last 1000 requests
	perfMon := middleware.NewPerformanceMonitor(1000)

	// Wrap a handler
	handler := perfMon.Middleware(mux)

	// Get per-endpoint statistics
	for _, stat := range perfMon.GetStats() {
	    fmt.Printf("%s p50=%dms p95=%dms p99=%dms\n",
	        stat.Path, stat.P50Duration, stat.P95Duration, stat.P99Duration)
	}

Endpoint Labels:

Both the Prometheus middleware and the performance monitor label requests by
chi route pattern, so /api/v1/recommendations/user-42 and
/api/v1/recommendations/user-7 both count toward
/api/v1/recommendations/{userID}. Outside a chi router the raw URL path is
used instead.

Thread Safety:

All middleware components are thread-safe:
  - Compression pools gzip writers with sync.Pool
  - Performance monitor guards its window with sync.RWMutex
  - Prometheus metrics use the client library's atomic collectors

See Also:

  - internal/api: Router and handlers wrapped by this middleware
  - internal/metrics: Prometheus metric definitions
*/
package middleware
