// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import "sort"

// Predictor ranks products for a user from a model snapshot.
type Predictor interface {
	// Recommend returns up to limit products ranked by predicted
	// affinity, highest first. Unknown users and missing models yield
	// no results rather than an error; the caller decides how to fall
	// back.
	Recommend(snap *Snapshot, userID string, limit int) []RecommendationResult
}

// DotProductPredictor scores every product for the user with the
// embedding model and keeps the highest scoring ones. Equal scores are
// broken by ascending product index so rankings are stable across runs.
type DotProductPredictor struct{}

// NewDotProductPredictor creates a predictor backed by embedding dot
// products.
func NewDotProductPredictor() *DotProductPredictor {
	return &DotProductPredictor{}
}

// Recommend implements Predictor.
func (dp *DotProductPredictor) Recommend(snap *Snapshot, userID string, limit int) []RecommendationResult {
	if snap == nil || snap.Model == nil || snap.IDs == nil || limit <= 0 {
		return nil
	}

	userIdx, ok := snap.IDs.UserIndex(userID)
	if !ok {
		return nil
	}

	scores := snap.Model.ScoreAll(userIdx)
	if len(scores) == 0 {
		return nil
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})

	if limit > len(order) {
		limit = len(order)
	}
	results := make([]RecommendationResult, 0, limit)
	for _, p := range order[:limit] {
		id, ok := snap.IDs.ProductID(p)
		if !ok {
			// Mapping and model disagree on product count; skip the
			// orphan row rather than emit an empty ID.
			continue
		}
		results = append(results, RecommendationResult{ProductID: id, Score: scores[p]})
	}
	return results
}

// Ensure interface compliance.
var _ Predictor = (*DotProductPredictor)(nil)
