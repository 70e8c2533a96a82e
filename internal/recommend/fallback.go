// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import (
	"context"
	"fmt"
	"sort"
)

// FallbackRanker serves popularity and shop-affinity rankings from
// aggregate view counters when personalized predictions are unavailable
// (unknown user, no trained model, empty catalog overlap).
//
// Scores in fallback results are raw view counts, so they are not
// comparable with embedding dot products; callers only rely on order.
type FallbackRanker struct {
	stats ProductStatsSource
}

// NewFallbackRanker creates a ranker over the given counters source.
func NewFallbackRanker(stats ProductStatsSource) *FallbackRanker {
	return &FallbackRanker{stats: stats}
}

// Popular returns up to limit products ranked by view count descending.
// Equal counts are broken by product ID ascending for determinism.
func (f *FallbackRanker) Popular(ctx context.Context, limit int) ([]RecommendationResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	stats, err := f.stats.TopByViews(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load top products: %w", err)
	}
	return rankByViews(stats, "", limit), nil
}

// Similar returns up to limit products from the same shop as productID,
// ranked like Popular and excluding productID itself. When the product
// has no aggregate record, no shop, or no shop siblings, it degrades to
// Popular.
func (f *FallbackRanker) Similar(ctx context.Context, productID string, limit int) ([]RecommendationResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	stat, err := f.stats.ProductStat(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product stat: %w", err)
	}
	if stat == nil || stat.ShopID == "" {
		return f.Popular(ctx, limit)
	}

	shopStats, err := f.stats.StatsByShop(ctx, stat.ShopID)
	if err != nil {
		return nil, fmt.Errorf("load shop stats: %w", err)
	}

	results := rankByViews(shopStats, productID, limit)
	if len(results) == 0 {
		return f.Popular(ctx, limit)
	}
	return results, nil
}

// rankByViews orders stats by view count descending with product ID
// ascending as tie-break, drops the excluded product, and truncates to
// limit. The sort is applied here rather than trusted from the source so
// the ordering contract holds for every backend.
func rankByViews(stats []ProductStat, exclude string, limit int) []RecommendationResult {
	ranked := make([]ProductStat, 0, len(stats))
	for _, s := range stats {
		if s.ProductID == "" || s.ProductID == exclude {
			continue
		}
		ranked = append(ranked, s)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ViewCount != ranked[j].ViewCount {
			return ranked[i].ViewCount > ranked[j].ViewCount
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})

	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	results := make([]RecommendationResult, 0, len(ranked))
	for _, s := range ranked {
		results = append(results, RecommendationResult{
			ProductID: s.ProductID,
			Score:     float64(s.ViewCount),
		})
	}
	return results
}
