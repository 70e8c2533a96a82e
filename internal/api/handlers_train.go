// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/vitrinehq/vitrine/internal/logging"
	"github.com/vitrinehq/vitrine/internal/recommend"
)

// TriggerTraining handles POST /api/v1/recommendations/train.
// Starts a training run in the background and returns 202 immediately.
// Returns 409 when a run is already in progress and 429 when triggers
// arrive faster than the configured spacing.
func (h *Handler) TriggerTraining(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.trainLimiter.Allow() {
		rw.TooManyRequests("Training was triggered recently, try again later")
		return
	}

	// Fast-path rejection. The service's own lock still decides races
	// between this check and the goroutine below.
	if h.svc.Status().Training {
		rw.Conflict(ErrCodeTrainingInProgress, "Training is already in progress")
		return
	}

	requestID := logging.RequestIDFromContext(r.Context())

	// The run outlives this request; the service applies its own timeout.
	go func() {
		ctx := logging.ContextWithRequestID(context.Background(), requestID)

		stats, err := h.svc.Train(ctx)
		switch {
		case errors.Is(err, recommend.ErrTrainingInProgress):
			logging.Ctx(ctx).Info().Msg("manual training trigger lost the race to another run")
		case err != nil:
			logging.Ctx(ctx).Error().Err(err).Msg("manual training run failed")
		default:
			logging.Ctx(ctx).Info().
				Int("interactions", stats.Interactions).
				Int("users", stats.Users).
				Int("products", stats.Products).
				Msg("manual training run completed")
		}
	}()

	rw.Accepted(map[string]string{
		"message": "Training started",
	})
}

// GetStatus handles GET /api/v1/recommendations/status.
// Returns the serving state: model version, training flag, last run.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.svc.Status())
}
