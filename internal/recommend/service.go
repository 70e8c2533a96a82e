// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vitrinehq/vitrine/internal/metrics"
	"github.com/vitrinehq/vitrine/internal/recommend/storage"
)

// Serving sources reported through the recommendations_served metric.
const (
	sourceModel    = "model"
	sourceFallback = "fallback"
	sourceCache    = "cache"
	sourcePopular  = "popular"
	sourceSimilar  = "similar"
)

// ServiceConfig holds the serving and training knobs of the Service.
type ServiceConfig struct {
	// DefaultLimit is used when a request omits the list length. Default: 10
	DefaultLimit int

	// MaxLimit caps the requested list length. Default: 100
	MaxLimit int

	// KeepVersions is how many artifact versions survive pruning after a
	// training run. Default: 3
	KeepVersions int

	// TrainTimeout bounds a single training run. Default: 30m
	TrainTimeout time.Duration

	// Embedding configures the model trained by Train.
	Embedding EmbeddingConfig
}

// DefaultServiceConfig returns the production defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DefaultLimit: 10,
		MaxLimit:     100,
		KeepVersions: 3,
		TrainTimeout: 30 * time.Minute,
		Embedding:    DefaultEmbeddingConfig(),
	}
}

// ArtifactStore is the persistence surface used by training and boot.
// Implemented by storage.Store.
type ArtifactStore interface {
	NextVersion() int
	Save(ctx context.Context, version int, weights interface{}, mappingJSON []byte, meta storage.ArtifactMetadata) error
	LoadLatest(ctx context.Context, weights interface{}) ([]byte, *storage.ArtifactMetadata, error)
	Prune(ctx context.Context, keep int) error
}

var _ ArtifactStore = (*storage.Store)(nil)

// Service is the recommendation facade: it owns the published model
// snapshot, runs training, and serves ranked lists with caching and
// popularity fallbacks. It is safe for concurrent use.
//
// Serving never fails: a request is answered from the cache, the model,
// or the fallback ranker, in that order, degrading to an empty list
// when every source is unavailable.
type Service struct {
	cfg    ServiceConfig
	logger zerolog.Logger

	interactions InteractionSource
	fallback     *FallbackRanker
	predictor    Predictor
	cache        Cache
	store        ArtifactStore

	// snapshot holds the published *Snapshot; readers load it without
	// locking and either see a complete (model, mapping) pair or none.
	snapshot atomic.Value

	// flight coalesces concurrent recomputes of the same (user, limit)
	// after a cache miss, which cluster right after each invalidation.
	flight singleflight.Group

	trainMu  sync.Mutex
	training atomic.Bool

	stateMu       sync.Mutex
	lastTrainedAt time.Time
	lastStats     *TrainStats
	lastError     string
}

// NewService creates the recommendation service. The interaction source
// may be nil for serving-only deployments; Train then reports
// ErrNoInteractionSource. The cache may be nil to disable caching.
//
//nolint:gocritic // hugeParam: logger passed by value is acceptable for zerolog
func NewService(cfg ServiceConfig, interactions InteractionSource, stats ProductStatsSource, cache Cache, store ArtifactStore, logger zerolog.Logger) *Service {
	def := DefaultServiceConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.KeepVersions < 1 {
		cfg.KeepVersions = def.KeepVersions
	}
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = def.TrainTimeout
	}

	return &Service{
		cfg:          cfg,
		logger:       logger.With().Str("component", "recommend").Logger(),
		interactions: interactions,
		fallback:     NewFallbackRanker(stats),
		predictor:    NewDotProductPredictor(),
		cache:        cache,
		store:        store,
	}
}

// Train runs one full training pass: pull interactions, build the
// dataset, fit a fresh model, persist the artifacts, then atomically
// publish the new snapshot and invalidate cached lists. Only one run
// may be active at a time; a second caller gets ErrTrainingInProgress
// immediately instead of queueing.
//
// A persistence failure fails the run and leaves the previous snapshot
// serving, so the model in memory never diverges from the artifacts a
// restart would load.
func (s *Service) Train(ctx context.Context) (*TrainStats, error) {
	if s.interactions == nil {
		return nil, ErrNoInteractionSource
	}
	if !s.trainMu.TryLock() {
		metrics.RecordTrainingRun("rejected", 0)
		return nil, ErrTrainingInProgress
	}
	defer s.trainMu.Unlock()

	s.training.Store(true)
	defer s.training.Store(false)

	start := time.Now()
	s.logger.Info().Msg("starting training run")

	trainCtx, cancel := context.WithTimeout(ctx, s.cfg.TrainTimeout)
	defer cancel()

	byUser, err := s.interactions.InteractionsByUser(trainCtx)
	if err != nil {
		return nil, s.failTraining(start, fmt.Errorf("load interactions: %w", err))
	}

	ids := NewIDMap()
	ds := BuildDataset(byUser, ids)
	if ds.Empty() {
		s.logger.Info().Msg("no usable interactions, keeping current model")
		metrics.RecordTrainingRun("empty", time.Since(start))
		return &TrainStats{}, nil
	}

	model := NewEmbeddingModel(s.cfg.Embedding, s.logger)
	if err := model.Fit(trainCtx, ds); err != nil {
		return nil, s.failTraining(start, fmt.Errorf("fit model: %w", err))
	}

	trainedAt := time.Now()
	version := s.store.NextVersion()
	if err := s.persistArtifacts(trainCtx, version, model, ids, ds, trainedAt, start); err != nil {
		return nil, s.failTraining(start, err)
	}

	snap := &Snapshot{Model: model, IDs: ids, Version: version, TrainedAt: trainedAt}
	s.snapshot.Store(snap)

	if s.cache != nil {
		s.cache.InvalidateAll(trainCtx)
	}
	if err := s.store.Prune(trainCtx, s.cfg.KeepVersions); err != nil {
		s.logger.Warn().Err(err).Msg("pruning old artifacts failed")
	}

	stats := &TrainStats{
		Interactions: ds.Len(),
		Users:        ids.NumUsers(),
		Products:     ids.NumProducts(),
	}
	s.completeTraining(snap, stats, start)
	return stats, nil
}

// persistArtifacts writes the versioned weights and mapping pair.
func (s *Service) persistArtifacts(ctx context.Context, version int, model *EmbeddingModel, ids *IDMap, ds *Dataset, trainedAt, start time.Time) error {
	mappingJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}

	meta := storage.ArtifactMetadata{
		TrainedAt:          trainedAt,
		InteractionCount:   ds.Len(),
		UserCount:          ids.NumUsers(),
		ProductCount:       ids.NumProducts(),
		TrainingDurationMS: time.Since(start).Milliseconds(),
	}
	if err := s.store.Save(ctx, version, model.Weights(), mappingJSON, meta); err != nil {
		return fmt.Errorf("persist artifacts: %w", err)
	}
	return nil
}

// failTraining records a failed run and returns the error unchanged.
func (s *Service) failTraining(start time.Time, err error) error {
	s.stateMu.Lock()
	s.lastError = err.Error()
	s.stateMu.Unlock()

	metrics.RecordTrainingRun("error", time.Since(start))
	s.logger.Error().Err(err).Msg("training run failed")
	return err
}

// completeTraining records a successful run.
func (s *Service) completeTraining(snap *Snapshot, stats *TrainStats, start time.Time) {
	s.stateMu.Lock()
	s.lastTrainedAt = snap.TrainedAt
	s.lastStats = stats
	s.lastError = ""
	s.stateMu.Unlock()

	metrics.SetModelState(snap.Version, stats.Users, stats.Products)
	metrics.RecordTrainingRun("success", time.Since(start))

	s.logger.Info().
		Int("version", snap.Version).
		Int("interactions", stats.Interactions).
		Int("users", stats.Users).
		Int("products", stats.Products).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("training run complete")
}

// GetRecommendations returns the ranked product list for a user. The
// cache is consulted first; an entry computed for a shorter list than
// requested counts as a miss, so a hit can always be truncated to the
// requested length. Misses recompute through the model, or through the
// popularity fallback when no model is loaded or the user is unknown.
func (s *Service) GetRecommendations(ctx context.Context, userID string, limit int) []RecommendationResult {
	limit = s.normalizeLimit(limit)

	if items, ok := s.cachedList(ctx, userID, limit); ok {
		metrics.RecordCacheHit()
		metrics.RecordServed(sourceCache)
		return items
	}
	metrics.RecordCacheMiss()

	key := userID + "|" + strconv.Itoa(limit)
	v, _, _ := s.flight.Do(key, func() (interface{}, error) {
		return s.computeRecommendations(ctx, userID, limit), nil
	})
	comp := v.(computedList)

	metrics.RecordServed(comp.source)
	return comp.items
}

// computedList is a freshly computed list and the source that produced it.
type computedList struct {
	items  []RecommendationResult
	source string
}

// computeRecommendations scores through the model when possible and
// falls back to popularity otherwise. Fallback failures degrade to an
// empty list; the personalized read path never surfaces an error.
func (s *Service) computeRecommendations(ctx context.Context, userID string, limit int) computedList {
	if snap := s.currentSnapshot(); snap != nil {
		start := time.Now()
		items := s.predictor.Recommend(snap, userID, limit)
		metrics.RecordPrediction(time.Since(start))

		if len(items) > 0 {
			s.cacheStore(ctx, userID, limit, items)
			return computedList{items: items, source: sourceModel}
		}
	}

	items, err := s.fallback.Popular(ctx, limit)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("fallback ranking failed")
		return computedList{items: []RecommendationResult{}, source: sourceFallback}
	}
	if items == nil {
		items = []RecommendationResult{}
	}

	s.cacheStore(ctx, userID, limit, items)
	return computedList{items: items, source: sourceFallback}
}

// GetPopular returns globally popular products ranked by view count.
func (s *Service) GetPopular(ctx context.Context, limit int) ([]RecommendationResult, error) {
	items, err := s.fallback.Popular(ctx, s.normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []RecommendationResult{}
	}

	metrics.RecordServed(sourcePopular)
	return items, nil
}

// GetSimilar returns products from the same shop as the given product,
// ranked by view count, falling back to globally popular products when
// the product is unknown or alone in its shop.
func (s *Service) GetSimilar(ctx context.Context, productID string, limit int) ([]RecommendationResult, error) {
	items, err := s.fallback.Similar(ctx, productID, s.normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []RecommendationResult{}
	}

	metrics.RecordServed(sourceSimilar)
	return items, nil
}

// LoadArtifacts restores the newest persisted model into the serving
// snapshot. A store with no artifacts is not an error; the service
// keeps serving fallbacks until the first training run. Corrupt or
// inconsistent artifacts are reported so the caller can decide whether
// to continue fallback-only.
func (s *Service) LoadArtifacts(ctx context.Context) error {
	var w EmbeddingWeights
	mappingJSON, meta, err := s.store.LoadLatest(ctx, &w)
	if errors.Is(err, storage.ErrNoArtifacts) {
		s.logger.Info().Msg("no stored artifacts, serving fallbacks until first training run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}

	ids := NewIDMap()
	if err := json.Unmarshal(mappingJSON, ids); err != nil {
		return fmt.Errorf("decode mapping: %w", err)
	}

	model, err := EmbeddingModelFromWeights(&w, s.logger)
	if err != nil {
		return fmt.Errorf("restore model: %w", err)
	}

	if model.NumUsers() != ids.NumUsers() || model.NumProducts() != ids.NumProducts() {
		return fmt.Errorf("artifact mismatch: model has %dx%d entities, mapping has %dx%d",
			model.NumUsers(), model.NumProducts(), ids.NumUsers(), ids.NumProducts())
	}

	snap := &Snapshot{Model: model, IDs: ids, Version: meta.Version, TrainedAt: meta.TrainedAt}
	s.snapshot.Store(snap)

	s.stateMu.Lock()
	s.lastTrainedAt = meta.TrainedAt
	s.lastStats = &TrainStats{
		Interactions: meta.InteractionCount,
		Users:        meta.UserCount,
		Products:     meta.ProductCount,
	}
	s.stateMu.Unlock()

	metrics.SetModelState(meta.Version, model.NumUsers(), model.NumProducts())

	s.logger.Info().
		Int("version", meta.Version).
		Int("users", model.NumUsers()).
		Int("products", model.NumProducts()).
		Time("trained_at", meta.TrainedAt).
		Msg("restored model from artifacts")
	return nil
}

// Status reports the current serving state.
func (s *Service) Status() ServiceStatus {
	st := ServiceStatus{Training: s.training.Load()}

	if snap := s.currentSnapshot(); snap != nil {
		st.ModelLoaded = true
		st.ModelVersion = snap.Version
		st.Users = snap.IDs.NumUsers()
		st.Products = snap.IDs.NumProducts()
	}

	s.stateMu.Lock()
	st.LastTrainedAt = s.lastTrainedAt
	if s.lastStats != nil {
		stats := *s.lastStats
		st.LastStats = &stats
	}
	st.LastError = s.lastError
	s.stateMu.Unlock()

	return st
}

// normalizeLimit applies the default and the cap to a requested length.
func (s *Service) normalizeLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return limit
}

// currentSnapshot returns the published snapshot, or nil before the
// first publish.
func (s *Service) currentSnapshot() *Snapshot {
	snap, _ := s.snapshot.Load().(*Snapshot)
	return snap
}

// cachedList returns the cached items for a user when the entry covers
// at least the requested length.
func (s *Service) cachedList(ctx context.Context, userID string, limit int) ([]RecommendationResult, bool) {
	if s.cache == nil {
		return nil, false
	}

	entry, ok := s.cache.Get(ctx, userID)
	if !ok || entry == nil {
		return nil, false
	}
	if entry.Limit < limit {
		// Computed for a shorter list; serving it would silently
		// under-fill the request.
		return nil, false
	}

	items := entry.Items
	if len(items) > limit {
		items = items[:limit]
	}
	return items, true
}

// cacheStore writes a computed list back to the cache. Empty lists are
// not cached so transient data gaps do not pin empty answers for a TTL.
func (s *Service) cacheStore(ctx context.Context, userID string, limit int, items []RecommendationResult) {
	if s.cache == nil || len(items) == 0 {
		return
	}
	s.cache.Set(ctx, userID, &CachedRecommendations{
		Limit:    limit,
		Items:    items,
		CachedAt: time.Now(),
	})
}
