// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

// Package metrics provides Prometheus instrumentation for the Vitrine server:
// API latency and throughput, recommendation serving, cache efficiency,
// training runs, and model state.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Recommendation serving metrics
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Recommendation lists served, by source",
		},
		[]string{"source"}, // "model", "fallback", "cache", "popular", "similar"
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "Duration of a full-catalog scoring pass",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Recommendation cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_hits_total",
			Help: "Total recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_misses_total",
			Help: "Total recommendation cache misses",
		},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_cache_errors_total",
			Help: "Cache backend errors, swallowed and degraded to miss",
		},
		[]string{"operation"}, // "get", "set", "invalidate"
	)

	CacheBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommendation_cache_breaker_state",
			Help: "Cache circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Training metrics
	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total training runs, by outcome",
		},
		[]string{"status"}, // "success", "empty", "error", "rejected"
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of completed training runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	TrainingLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_last_success_timestamp_seconds",
			Help: "Unix time of the last successful training run",
		},
	)

	// Model state metrics
	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Version of the model currently serving",
		},
	)

	ModelUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_users",
			Help: "Number of users known to the serving model",
		},
	)

	ModelProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_products",
			Help: "Number of products known to the serving model",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordServed counts one served recommendation list. Source is "model",
// "fallback" or "cache" for personalized lists, "popular" or "similar"
// for the aggregate endpoints.
func RecordServed(source string) {
	RecommendationsServed.WithLabelValues(source).Inc()
}

// RecordPrediction records the duration of one scoring pass.
func RecordPrediction(duration time.Duration) {
	PredictionDuration.Observe(duration.Seconds())
}

// RecordCacheHit counts a recommendation cache hit.
func RecordCacheHit() { CacheHits.Inc() }

// RecordCacheMiss counts a recommendation cache miss.
func RecordCacheMiss() { CacheMisses.Inc() }

// RecordCacheError counts a swallowed cache backend error.
func RecordCacheError(operation string) {
	CacheErrors.WithLabelValues(operation).Inc()
}

// RecordTrainingRun records the outcome of a training run. Duration is
// observed only for runs that actually trained a model.
func RecordTrainingRun(status string, duration time.Duration) {
	TrainingRunsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		TrainingDuration.Observe(duration.Seconds())
		TrainingLastSuccess.SetToCurrentTime()
	}
}

// SetModelState publishes the serving model's version and dimensions.
func SetModelState(version, users, products int) {
	ModelVersion.Set(float64(version))
	ModelUsers.Set(float64(users))
	ModelProducts.Set(float64(products))
}
