// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vitrinehq/vitrine/internal/recommend"
)

// MemoryStore is an in-memory marketplace data source for development
// and tests. Recorded events also maintain the aggregate counters, so a
// memory-backed server behaves like one reading marketplace tables;
// SetStat seeds or overrides counter rows directly.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]recommend.InteractionEvent
	stats  map[string]recommend.ProductStat
}

var (
	_ recommend.InteractionSource  = (*MemoryStore)(nil)
	_ recommend.ProductStatsSource = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string][]recommend.InteractionEvent),
		stats:  make(map[string]recommend.ProductStat),
	}
}

// AddEvent records an interaction. Counters track lifetime additions:
// view, wishlist_add, cart_add and purchase increment their counter,
// removal actions are kept in the log but do not decrement.
func (m *MemoryStore) AddEvent(ev recommend.InteractionEvent) {
	if ev.UserID == "" || ev.ProductID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[ev.UserID] = append(m.events[ev.UserID], ev)

	stat := m.stats[ev.ProductID]
	stat.ProductID = ev.ProductID
	if stat.ShopID == "" {
		stat.ShopID = ev.ShopID
	}
	switch ev.Action {
	case recommend.ActionView:
		stat.ViewCount++
	case recommend.ActionWishlistAdd:
		stat.WishlistCount++
	case recommend.ActionCartAdd:
		stat.CartCount++
	case recommend.ActionPurchase:
		stat.PurchaseCount++
	case recommend.ActionWishlistRemove, recommend.ActionCartRemove:
	}
	m.stats[ev.ProductID] = stat
}

// SetStat seeds or replaces the counter row for a product.
func (m *MemoryStore) SetStat(stat recommend.ProductStat) {
	if stat.ProductID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[stat.ProductID] = stat
}

// InteractionsByUser returns a copy of the event log grouped per user.
func (m *MemoryStore) InteractionsByUser(_ context.Context) (map[string][]recommend.InteractionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byUser := make(map[string][]recommend.InteractionEvent, len(m.events))
	for userID, events := range m.events {
		cp := make([]recommend.InteractionEvent, len(events))
		copy(cp, events)
		byUser[userID] = cp
	}
	return byUser, nil
}

// TopByViews returns up to limit stats ordered by view count descending,
// ties broken by product ID ascending.
func (m *MemoryStore) TopByViews(_ context.Context, limit int) ([]recommend.ProductStat, error) {
	if limit <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	stats := make([]recommend.ProductStat, 0, len(m.stats))
	for _, stat := range m.stats {
		stats = append(stats, stat)
	}
	m.mu.RUnlock()

	sort.Slice(stats, func(a, b int) bool {
		if stats[a].ViewCount != stats[b].ViewCount {
			return stats[a].ViewCount > stats[b].ViewCount
		}
		return stats[a].ProductID < stats[b].ProductID
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

// ProductStat returns the counter row for one product, or nil when the
// product has no record.
func (m *MemoryStore) ProductStat(_ context.Context, productID string) (*recommend.ProductStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stat, ok := m.stats[productID]
	if !ok {
		return nil, nil
	}
	return &stat, nil
}

// StatsByShop returns all counter rows belonging to a shop, ordered by
// product ID.
func (m *MemoryStore) StatsByShop(_ context.Context, shopID string) ([]recommend.ProductStat, error) {
	m.mu.RLock()
	var out []recommend.ProductStat
	for _, stat := range m.stats {
		if stat.ShopID == shopID {
			out = append(out, stat)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a].ProductID < out[b].ProductID })
	return out, nil
}

// SeedDemoData fills the store with a small deterministic marketplace
// so a database-less server has something to train and serve on.
func (m *MemoryStore) SeedDemoData() {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	shops := map[string][]string{
		"shop-espresso": {"prod-grinder", "prod-kettle", "prod-scale"},
		"shop-outdoor":  {"prod-tent", "prod-stove", "prod-lantern"},
		"shop-studio":   {"prod-desk", "prod-lamp", "prod-chair", "prod-shelf"},
	}
	users := []string{"user-demo-1", "user-demo-2", "user-demo-3", "user-demo-4"}

	shopIDs := make([]string, 0, len(shops))
	for shopID := range shops {
		shopIDs = append(shopIDs, shopID)
	}
	sort.Strings(shopIDs)

	i := 0
	for _, shopID := range shopIDs {
		for _, productID := range shops[shopID] {
			for _, userID := range users {
				i++
				// Every user views every product; a rotating subset
				// escalates to wishlist, cart and purchase.
				m.AddEvent(recommend.InteractionEvent{
					UserID:    userID,
					ProductID: productID,
					ShopID:    shopID,
					Action:    recommend.ActionView,
					Timestamp: base.Add(time.Duration(i) * time.Minute),
				})
				switch i % 4 {
				case 0:
					m.AddEvent(recommend.InteractionEvent{
						UserID:    userID,
						ProductID: productID,
						ShopID:    shopID,
						Action:    recommend.ActionWishlistAdd,
						Timestamp: base.Add(time.Duration(i)*time.Minute + 10*time.Second),
					})
				case 1:
					m.AddEvent(recommend.InteractionEvent{
						UserID:    userID,
						ProductID: productID,
						ShopID:    shopID,
						Action:    recommend.ActionCartAdd,
						Timestamp: base.Add(time.Duration(i)*time.Minute + 10*time.Second),
					})
				case 2:
					m.AddEvent(recommend.InteractionEvent{
						UserID:    userID,
						ProductID: productID,
						ShopID:    shopID,
						Action:    recommend.ActionPurchase,
						Timestamp: base.Add(time.Duration(i)*time.Minute + 10*time.Second),
					})
				}
			}
		}
	}
}
