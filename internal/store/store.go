// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

// Package store provides read access to the marketplace data the
// recommendation core consumes: raw interaction events and per-product
// aggregate counters. Both tables are owned and written by the
// marketplace; this package only reads them.
//
// PostgresStore adapts the production database through gorm.
// MemoryStore is a self-contained implementation for development and
// tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vitrinehq/vitrine/internal/config"
	"github.com/vitrinehq/vitrine/internal/recommend"
)

// Queries slower than this are logged at warn level.
const slowQueryThreshold = 200 * time.Millisecond

// InteractionEventRow is one recorded user action in the marketplace
// interaction log.
type InteractionEventRow struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;not null;index"`
	ProductID string    `gorm:"column:product_id;not null"`
	ShopID    string    `gorm:"column:shop_id"`
	Action    string    `gorm:"column:action;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
}

// TableName implements the gorm naming override.
func (InteractionEventRow) TableName() string { return "interaction_events" }

func (r *InteractionEventRow) toEvent() recommend.InteractionEvent {
	return recommend.InteractionEvent{
		UserID:    r.UserID,
		ProductID: r.ProductID,
		ShopID:    r.ShopID,
		Action:    recommend.ActionType(r.Action),
		Timestamp: r.CreatedAt,
	}
}

// ProductStatRow is the aggregate counter row the marketplace maintains
// per product.
type ProductStatRow struct {
	ProductID     string    `gorm:"column:product_id;primaryKey"`
	ShopID        string    `gorm:"column:shop_id;index"`
	ViewCount     int64     `gorm:"column:view_count;not null;default:0"`
	CartCount     int64     `gorm:"column:cart_count;not null;default:0"`
	WishlistCount int64     `gorm:"column:wishlist_count;not null;default:0"`
	PurchaseCount int64     `gorm:"column:purchase_count;not null;default:0"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

// TableName implements the gorm naming override.
func (ProductStatRow) TableName() string { return "product_stats" }

func (r *ProductStatRow) toStat() recommend.ProductStat {
	return recommend.ProductStat{
		ProductID:     r.ProductID,
		ShopID:        r.ShopID,
		ViewCount:     r.ViewCount,
		CartCount:     r.CartCount,
		WishlistCount: r.WishlistCount,
		PurchaseCount: r.PurchaseCount,
	}
}

func toStats(rows []ProductStatRow) []recommend.ProductStat {
	stats := make([]recommend.ProductStat, len(rows))
	for i := range rows {
		stats[i] = rows[i].toStat()
	}
	return stats
}

// Open connects to the marketplace Postgres database and configures the
// connection pool from the given settings.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func Open(cfg config.DatabaseConfig, logger zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: newGormLogger(logger, slowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// AutoMigrate creates the marketplace tables this package reads. The
// production schema is owned by the marketplace; this exists for
// development databases and integration tests.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&InteractionEventRow{}, &ProductStatRow{}); err != nil {
		return fmt.Errorf("migrate marketplace tables: %w", err)
	}
	return nil
}

// gormLogger routes gorm's log output through zerolog.
type gormLogger struct {
	logger        zerolog.Logger
	slowThreshold time.Duration
}

//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func newGormLogger(logger zerolog.Logger, slowThreshold time.Duration) *gormLogger {
	return &gormLogger{
		logger:        logger.With().Str("component", "store").Logger(),
		slowThreshold: slowThreshold,
	}
}

// LogMode implements gorm's logger.Interface. Level filtering is left to
// the zerolog configuration.
func (l *gormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	l.logger.Info().Msgf(msg, args...)
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	l.logger.Warn().Msgf(msg, args...)
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	l.logger.Error().Msgf(msg, args...)
}

// Trace logs one executed statement. Failures log at error level except
// for not-found, slow queries at warn, everything else at debug.
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound):
		l.logger.Error().Err(err).Str("sql", sql).Dur("elapsed", elapsed).Msg("query failed")
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		l.logger.Warn().Str("sql", sql).Dur("elapsed", elapsed).Int64("rows", rows).Msg("slow query")
	default:
		l.logger.Debug().Str("sql", sql).Dur("elapsed", elapsed).Int64("rows", rows).Msg("query")
	}
}
