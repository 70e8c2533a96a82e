// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitrinehq/vitrine/internal/cache"
)

// MemoryCache is the in-process cache backend, used when no Redis
// instance is configured. Entries do not survive restarts, which is
// acceptable for a one-hour memoization layer.
type MemoryCache struct {
	store  *cache.Cache
	logger zerolog.Logger
}

// NewMemoryCache creates an in-memory cache whose entries expire after
// ttl.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func NewMemoryCache(ttl time.Duration, logger zerolog.Logger) *MemoryCache {
	return &MemoryCache{
		store:  cache.New(ttl),
		logger: logger.With().Str("component", "cache").Str("backend", "memory").Logger(),
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, userID string) (*CachedRecommendations, bool) {
	v, ok := c.store.Get(recommendationKey(userID))
	if !ok {
		return nil, false
	}
	entry, ok := v.(*CachedRecommendations)
	if !ok {
		// Foreign value under our key; drop it and report a miss.
		c.store.Delete(recommendationKey(userID))
		return nil, false
	}
	return entry, true
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, userID string, entry *CachedRecommendations) {
	if entry == nil {
		return
	}
	c.store.Set(recommendationKey(userID), entry)
}

// InvalidateAll implements Cache.
func (c *MemoryCache) InvalidateAll(_ context.Context) {
	removed := c.store.DeletePrefix(recommendationKeyPrefix)
	c.logger.Debug().Int("removed", removed).Msg("recommendation cache invalidated")
}

// Close implements Cache. It stops the expiry janitor.
func (c *MemoryCache) Close() error {
	stats := c.store.GetStats()
	c.logger.Debug().
		Int64("hits", stats.Hits).
		Int64("misses", stats.Misses).
		Float64("hit_rate_pct", c.store.HitRate()).
		Msg("closing recommendation cache")
	c.store.Close()
	return nil
}

// Ensure interface compliance.
var _ Cache = (*MemoryCache)(nil)
