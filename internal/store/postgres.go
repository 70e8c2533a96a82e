// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vitrinehq/vitrine/internal/recommend"
)

// PostgresStore reads interaction events and product counters from the
// marketplace database.
type PostgresStore struct {
	db *gorm.DB
}

var (
	_ recommend.InteractionSource  = (*PostgresStore)(nil)
	_ recommend.ProductStatsSource = (*PostgresStore)(nil)
)

// NewPostgresStore wraps an open gorm connection. The connection is
// owned by the caller.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InteractionsByUser loads the full interaction log grouped per user.
// Events within a user keep their recorded order.
func (s *PostgresStore) InteractionsByUser(ctx context.Context) (map[string][]recommend.InteractionEvent, error) {
	var rows []InteractionEventRow
	if err := s.db.WithContext(ctx).
		Order("user_id, created_at, id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load interaction events: %w", err)
	}

	byUser := make(map[string][]recommend.InteractionEvent)
	for i := range rows {
		ev := rows[i].toEvent()
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}
	return byUser, nil
}

// TopByViews returns up to limit products ordered by view count
// descending, ties broken by product ID ascending.
func (s *PostgresStore) TopByViews(ctx context.Context, limit int) ([]recommend.ProductStat, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []ProductStatRow
	if err := s.db.WithContext(ctx).
		Order("view_count DESC, product_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load top products: %w", err)
	}
	return toStats(rows), nil
}

// ProductStat returns the counter row for one product, or nil when the
// product has no aggregate record.
func (s *PostgresStore) ProductStat(ctx context.Context, productID string) (*recommend.ProductStat, error) {
	var row ProductStatRow
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load product stat: %w", err)
	}

	stat := row.toStat()
	return &stat, nil
}

// StatsByShop returns all counter rows belonging to a shop.
func (s *PostgresStore) StatsByShop(ctx context.Context, shopID string) ([]recommend.ProductStat, error) {
	var rows []ProductStatRow
	if err := s.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("product_id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load shop stats: %w", err)
	}
	return toStats(rows), nil
}
