// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import "sort"

// Dataset holds training rows as parallel slices. One row per raw
// interaction occurrence: repeated actions by the same user on the same
// product contribute multiple rows with equal weight, deliberately
// preserving frequency as signal.
type Dataset struct {
	UserIndices    []int
	ProductIndices []int
	Ratings        []float64
	NumUsers       int
	NumProducts    int
}

// Len returns the number of training rows.
func (d *Dataset) Len() int { return len(d.Ratings) }

// Empty reports whether the dataset has no usable rows.
func (d *Dataset) Empty() bool { return len(d.Ratings) == 0 }

// BuildDataset converts per-user interaction histories into training rows,
// assigning user and product indices through the given mapping as it scans.
// Events with an empty product ID or an unrecognized action are skipped
// silently; a malformed event never fails the run.
//
// Users are scanned in sorted ID order so index assignment and row order
// are deterministic for a given input, which a fixed training seed needs
// to reproduce a run exactly.
func BuildDataset(byUser map[string][]InteractionEvent, ids *IDMap) *Dataset {
	ds := &Dataset{}

	userIDs := make([]string, 0, len(byUser))
	for userID := range byUser {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	for _, userID := range userIDs {
		events := byUser[userID]
		if len(events) == 0 {
			continue
		}
		for _, ev := range events {
			if ev.ProductID == "" {
				continue
			}
			score, ok := ScoreFor(ev.Action)
			if !ok {
				continue
			}

			uIdx := ids.AssignUser(userID)
			pIdx := ids.AssignProduct(ev.ProductID)
			ds.UserIndices = append(ds.UserIndices, uIdx)
			ds.ProductIndices = append(ds.ProductIndices, pIdx)
			ds.Ratings = append(ds.Ratings, score)
		}
	}

	ds.NumUsers = ids.NumUsers()
	ds.NumProducts = ids.NumProducts()
	return ds
}
