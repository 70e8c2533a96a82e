// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vitrinehq/vitrine/internal/logging"
	"github.com/vitrinehq/vitrine/internal/recommend"
)

// requestTimeout bounds a single read request against the cache and the
// stats store.
const requestTimeout = 10 * time.Second

// RecommendationList is the payload of all list endpoints.
type RecommendationList struct {
	UserID    string                           `json:"user_id,omitempty"`
	ProductID string                           `json:"product_id,omitempty"`
	Items     []recommend.RecommendationResult `json:"items"`
	Count     int                              `json:"count"`
}

// GetRecommendations handles GET /api/v1/recommendations/{userID}.
// Returns personalized recommendations for a user. The response always
// carries a list: users without a usable model ranking get popularity
// fallbacks, and total data loss degrades to an empty list rather than
// an error.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := RecommendationsRequest{
		UserID: chi.URLParam(r, "userID"),
		Limit:  getIntParam(r, "limit", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items := h.svc.GetRecommendations(ctx, req.UserID, req.Limit)

	rw.Success(RecommendationList{
		UserID: req.UserID,
		Items:  items,
		Count:  len(items),
	})
}

// GetPopular handles GET /api/v1/recommendations/popular.
// Returns globally popular products ranked by view count.
func (h *Handler) GetPopular(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := PopularRequest{Limit: getIntParam(r, "limit", 0)}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.svc.GetPopular(ctx, req.Limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("popular products lookup failed")
		rw.InternalError("Failed to load popular products")
		return
	}

	rw.Success(RecommendationList{
		Items: items,
		Count: len(items),
	})
}

// GetSimilar handles GET /api/v1/recommendations/similar/{productID}.
// Returns products from the same shop as the given product, falling back
// to globally popular products when the shop is unknown or empty.
func (h *Handler) GetSimilar(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := SimilarRequest{
		ProductID: chi.URLParam(r, "productID"),
		Limit:     getIntParam(r, "limit", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.svc.GetSimilar(ctx, req.ProductID, req.Limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("product_id", sanitizeLogValue(req.ProductID)).
			Msg("similar products lookup failed")
		rw.InternalError("Failed to load similar products")
		return
	}

	rw.Success(RecommendationList{
		ProductID: req.ProductID,
		Items:     items,
		Count:     len(items),
	})
}
