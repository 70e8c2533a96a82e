// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

// Package recommend implements the Vitrine recommendation core: implicit
// feedback scoring, a two-tower embedding model, training orchestration,
// ranked serving with caching, and popularity fallbacks.
//
// The package consumes interaction histories and aggregate product counters
// through the InteractionSource and ProductStatsSource interfaces; the
// internal/store package provides database-backed and in-memory
// implementations.
package recommend

import (
	"context"
	"time"
)

// ActionType identifies a user interaction with a product.
type ActionType string

// Interaction actions produced by the marketplace.
const (
	ActionView           ActionType = "view"
	ActionWishlistAdd    ActionType = "wishlist_add"
	ActionWishlistRemove ActionType = "wishlist_remove"
	ActionCartAdd        ActionType = "cart_add"
	ActionCartRemove     ActionType = "cart_remove"
	ActionPurchase       ActionType = "purchase"
)

// actionScores maps each action to its implicit preference score. Negative
// scores encode withdrawal signals. The table is fixed; events with actions
// outside it are skipped during dataset building.
var actionScores = map[ActionType]float64{
	ActionView:           1,
	ActionWishlistAdd:    2,
	ActionCartAdd:        3,
	ActionPurchase:       5,
	ActionWishlistRemove: -1,
	ActionCartRemove:     -1,
}

// ScoreFor returns the implicit score for an action and whether the action
// is known.
func ScoreFor(action ActionType) (float64, bool) {
	s, ok := actionScores[action]
	return s, ok
}

// InteractionEvent is a single user action on a product, as recorded by the
// marketplace. Consumed read-only by this package.
type InteractionEvent struct {
	UserID    string     `json:"user_id"`
	ProductID string     `json:"product_id"`
	ShopID    string     `json:"shop_id,omitempty"`
	Action    ActionType `json:"action"`
	Timestamp time.Time  `json:"timestamp"`
}

// RecommendationResult is one ranked product.
type RecommendationResult struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
}

// ProductStat is the externally maintained aggregate counter row for one
// product. Read-only input to the fallback ranker.
type ProductStat struct {
	ProductID     string `json:"product_id"`
	ShopID        string `json:"shop_id"`
	ViewCount     int64  `json:"view_count"`
	CartCount     int64  `json:"cart_count"`
	WishlistCount int64  `json:"wishlist_count"`
	PurchaseCount int64  `json:"purchase_count"`
}

// TrainStats summarizes a completed training run.
type TrainStats struct {
	Interactions int `json:"interactions"`
	Users        int `json:"users"`
	Products     int `json:"products"`
}

// Snapshot is an immutable (model, mapping) pair published atomically to the
// serving path. Inference either sees a complete snapshot or none.
type Snapshot struct {
	Model     *EmbeddingModel
	IDs       *IDMap
	Version   int
	TrainedAt time.Time
}

// ServiceStatus describes the serving state for operators.
type ServiceStatus struct {
	ModelLoaded   bool        `json:"model_loaded"`
	Training      bool        `json:"training"`
	ModelVersion  int         `json:"model_version"`
	Users         int         `json:"users"`
	Products      int         `json:"products"`
	LastTrainedAt time.Time   `json:"last_trained_at,omitempty"`
	LastStats     *TrainStats `json:"last_stats,omitempty"`
	LastError     string      `json:"last_error,omitempty"`
}

// InteractionSource supplies the full interaction history, grouped per user,
// for a training run.
type InteractionSource interface {
	InteractionsByUser(ctx context.Context) (map[string][]InteractionEvent, error)
}

// ProductStatsSource supplies aggregate product counters for fallback
// ranking.
type ProductStatsSource interface {
	// TopByViews returns up to limit stats ordered by view count descending,
	// ties broken by product ID ascending.
	TopByViews(ctx context.Context, limit int) ([]ProductStat, error)

	// ProductStat returns the stat row for one product, or nil when the
	// product has no aggregate record.
	ProductStat(ctx context.Context, productID string) (*ProductStat, error)

	// StatsByShop returns all stat rows belonging to a shop.
	StatsByShop(ctx context.Context, shopID string) ([]ProductStat, error)
}
