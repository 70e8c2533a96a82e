// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

//go:build integration

package recommend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vitrinehq/vitrine/internal/testinfra"
)

// TestRedisCache_Integration runs the cache against a real Redis instance.
//
// Usage:
//
//	go test -tags integration -run TestRedisCache ./internal/recommend/...
func TestRedisCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rc, err := testinfra.NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, rc.Container)

	client := redis.NewClient(&redis.Options{Addr: rc.Addr})
	defer client.Close() //nolint:errcheck

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	cache := NewRedisCache(client, time.Minute, zerolog.Nop())

	t.Run("Set then Get round trips an entry", func(t *testing.T) {
		entry := &CachedRecommendations{
			Limit: 3,
			Items: []RecommendationResult{
				{ProductID: "p1", Score: 0.9},
				{ProductID: "p2", Score: 0.5},
			},
			CachedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		}
		cache.Set(ctx, "alice", entry)

		got, ok := cache.Get(ctx, "alice")
		if !ok {
			t.Fatal("Get(alice) = miss, want hit")
		}
		if got.Limit != entry.Limit {
			t.Errorf("Limit = %d, want %d", got.Limit, entry.Limit)
		}
		if len(got.Items) != 2 || got.Items[0].ProductID != "p1" || got.Items[1].ProductID != "p2" {
			t.Errorf("Items = %v", got.Items)
		}
		if got.Items[0].Score != 0.9 {
			t.Errorf("Items[0].Score = %v, want 0.9", got.Items[0].Score)
		}
		if !got.CachedAt.Equal(entry.CachedAt) {
			t.Errorf("CachedAt = %v, want %v", got.CachedAt, entry.CachedAt)
		}
	})

	t.Run("Get on unknown user is a miss", func(t *testing.T) {
		if _, ok := cache.Get(ctx, "nobody"); ok {
			t.Error("Get(nobody) = hit, want miss")
		}
	})

	t.Run("entries carry a server-side TTL", func(t *testing.T) {
		cache.Set(ctx, "ttl-user", &CachedRecommendations{Limit: 1, CachedAt: time.Now()})

		ttl, err := client.TTL(ctx, recommendationKey("ttl-user")).Result()
		if err != nil {
			t.Fatalf("TTL() error = %v", err)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Errorf("TTL = %v, want in (0, 1m]", ttl)
		}
	})

	t.Run("undecodable entries are dropped on read", func(t *testing.T) {
		key := recommendationKey("garbled")
		if err := client.Set(ctx, key, "not json", 0).Err(); err != nil {
			t.Fatalf("seed garbage: %v", err)
		}

		if _, ok := cache.Get(ctx, "garbled"); ok {
			t.Fatal("Get(garbled) = hit, want miss")
		}
		exists, err := client.Exists(ctx, key).Result()
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if exists != 0 {
			t.Error("garbled entry still present after Get, want deleted")
		}
	})

	t.Run("InvalidateAll removes entries across scan pages", func(t *testing.T) {
		// More users than one SCAN page so invalidation has to walk the
		// cursor.
		users := scanBatchSize + 50
		for i := 0; i < users; i++ {
			cache.Set(ctx, fmt.Sprintf("user-%d", i), &CachedRecommendations{
				Limit:    5,
				Items:    []RecommendationResult{{ProductID: "p1", Score: 1}},
				CachedAt: time.Now(),
			})
		}
		if err := client.Set(ctx, "unrelated:key", "keep", 0).Err(); err != nil {
			t.Fatalf("seed unrelated key: %v", err)
		}

		if _, ok := cache.Get(ctx, "user-0"); !ok {
			t.Fatal("Get(user-0) = miss before invalidation, want hit")
		}

		cache.InvalidateAll(ctx)

		remaining, err := client.Keys(ctx, recommendationKeyPrefix+"*").Result()
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		if len(remaining) != 0 {
			t.Errorf("%d recommendation keys survived invalidation, want 0", len(remaining))
		}

		kept, err := client.Get(ctx, "unrelated:key").Result()
		if err != nil || kept != "keep" {
			t.Errorf("unrelated key = %q, %v; want keep, nil", kept, err)
		}
	})
}
