// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vitrinehq/vitrine/internal/metrics"
)

// scanBatchSize bounds how many keys one SCAN page returns during bulk
// invalidation.
const scanBatchSize = 200

// RedisCache is the shared cache backend. Entries are JSON values with a
// server-side TTL, so multiple instances see the same cache and expiry
// needs no janitor.
//
// A circuit breaker wraps every Redis call: when the backend is down the
// breaker opens and requests skip straight to recomputation instead of
// stacking up on connection timeouts.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker[interface{}]
	logger  zerolog.Logger
}

// NewRedisCache creates a Redis-backed cache. The client is owned by the
// caller and is not closed by Close.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func NewRedisCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	log := logger.With().Str("component", "cache").Str("backend", "redis").Logger()

	metrics.CacheBreakerState.Set(breakerStateValue(gobreaker.StateClosed))

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			log.Warn().
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("cache circuit breaker state change")
			metrics.CacheBreakerState.Set(breakerStateValue(to))
		},
	})

	return &RedisCache{
		client:  client,
		ttl:     ttl,
		breaker: breaker,
		logger:  log,
	}
}

// Get implements Cache. Backend failures and undecodable entries degrade
// to a miss.
func (c *RedisCache) Get(ctx context.Context, userID string) (*CachedRecommendations, bool) {
	key := recommendationKey(userID)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		data, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// A miss is an answer, not a backend failure.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		c.reportFailure("get", err)
		return nil, false
	}
	data, ok := result.([]byte)
	if !ok {
		return nil, false
	}

	var entry CachedRecommendations
	if err := json.Unmarshal(data, &entry); err != nil {
		metrics.RecordCacheError("decode")
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("dropping undecodable cache entry")
		c.client.Del(ctx, key)
		return nil, false
	}
	return &entry, true
}

// Set implements Cache. Write failures are logged and dropped.
func (c *RedisCache) Set(ctx context.Context, userID string, entry *CachedRecommendations) {
	if entry == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		metrics.RecordCacheError("encode")
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("cache entry not serializable")
		return
	}

	if _, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, recommendationKey(userID), data, c.ttl).Err()
	}); err != nil {
		c.reportFailure("set", err)
	}
}

// InvalidateAll implements Cache. Keys are discovered with SCAN rather
// than KEYS so invalidation never stalls a shared Redis.
func (c *RedisCache) InvalidateAll(ctx context.Context) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		removed := 0
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, recommendationKeyPrefix+"*", scanBatchSize).Result()
			if err != nil {
				return removed, err
			}
			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return removed, err
				}
				removed += len(keys)
			}
			cursor = next
			if cursor == 0 {
				return removed, nil
			}
		}
	})
	if err != nil {
		c.reportFailure("invalidate", err)
		return
	}
	removed, _ := result.(int)
	c.logger.Debug().Int("removed", removed).Msg("recommendation cache invalidated")
}

// Close implements Cache. The Redis client outlives the cache, so there
// is nothing to release here.
func (c *RedisCache) Close() error {
	return nil
}

func (c *RedisCache) reportFailure(operation string, err error) {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// The breaker is shedding load; the underlying failure was
		// already counted when it tripped.
		c.logger.Debug().Str("operation", operation).Msg("cache operation skipped, breaker open")
		return
	}
	metrics.RecordCacheError(operation)
	c.logger.Warn().Err(err).Str("operation", operation).Msg("cache operation failed")
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Ensure interface compliance.
var _ Cache = (*RedisCache)(nil)
