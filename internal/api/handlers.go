// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package api

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/vitrinehq/vitrine/internal/config"
	"github.com/vitrinehq/vitrine/internal/middleware"
	"github.com/vitrinehq/vitrine/internal/recommend"
)

// RecommendationService is the recommendation core consumed by the API.
type RecommendationService interface {
	GetRecommendations(ctx context.Context, userID string, limit int) []recommend.RecommendationResult
	GetPopular(ctx context.Context, limit int) ([]recommend.RecommendationResult, error)
	GetSimilar(ctx context.Context, productID string, limit int) ([]recommend.RecommendationResult, error)
	Train(ctx context.Context) (*recommend.TrainStats, error)
	Status() recommend.ServiceStatus
}

// Ensure the concrete service satisfies the interface.
var _ RecommendationService = (*recommend.Service)(nil)

// Pinger reports whether a backing dependency is reachable. Used by the
// readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Handler contains dependencies for API handlers.
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_recommend.go: Recommendation list endpoints
//   - handlers_train.go: Training trigger and status endpoints
//   - handlers_health.go: Health and readiness probes
type Handler struct {
	svc    RecommendationService
	config *config.Config

	// db and cacheConn are nil when the corresponding backend is not
	// configured; the readiness probe skips nil dependencies.
	db        Pinger
	cacheConn Pinger

	startTime    time.Time
	perfMon      *middleware.PerformanceMonitor
	trainLimiter *rate.Limiter
}

// NewHandler creates a new API handler.
//
// The manual training trigger is throttled independently of the per-IP
// request limit, so a burst of authorized callers cannot queue up training
// runs back to back.
func NewHandler(svc RecommendationService, cfg *config.Config, db, cacheConn Pinger) *Handler {
	trainEvery := cfg.API.TrainTriggerEvery
	if trainEvery <= 0 {
		trainEvery = time.Minute
	}

	return &Handler{
		svc:          svc,
		config:       cfg,
		db:           db,
		cacheConn:    cacheConn,
		startTime:    time.Now(),
		perfMon:      middleware.NewPerformanceMonitor(1000), // Keep last 1000 requests
		trainLimiter: rate.NewLimiter(rate.Every(trainEvery), 1),
	}
}

// PerformanceStats returns rolling latency statistics per endpoint.
func (h *Handler) PerformanceStats() []middleware.EndpointStats {
	if h.perfMon != nil {
		return h.perfMon.GetStats()
	}
	return nil
}
