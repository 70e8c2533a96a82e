// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import (
	"context"
	"time"
)

// recommendationKeyPrefix namespaces recommendation entries so bulk
// invalidation never touches unrelated keys in a shared Redis.
const recommendationKeyPrefix = "vitrine:rec:"

// recommendationKey returns the cache key for a user's recommendations.
func recommendationKey(userID string) string {
	return recommendationKeyPrefix + userID
}

// CachedRecommendations is one cache entry. Limit records the limit the
// entry was computed for: a request for more items than Limit must treat
// the entry as a miss instead of silently under-serving.
type CachedRecommendations struct {
	Limit    int                    `json:"limit"`
	Items    []RecommendationResult `json:"items"`
	CachedAt time.Time              `json:"cached_at"`
}

// Cache memoizes per-user recommendation lists. Implementations absorb
// their own failures: a broken backend degrades reads to misses and
// drops writes, logging and counting errors instead of returning them.
// All methods are safe for concurrent use.
type Cache interface {
	// Get returns the entry cached for userID, or ok=false on miss.
	Get(ctx context.Context, userID string) (*CachedRecommendations, bool)

	// Set stores an entry for userID with the backend's TTL.
	Set(ctx context.Context, userID string, entry *CachedRecommendations)

	// InvalidateAll removes every recommendation entry. Called after a
	// successful training run so stale rankings never outlive the model
	// that produced them.
	InvalidateAll(ctx context.Context)

	// Close releases backend resources owned by the cache.
	Close() error
}
