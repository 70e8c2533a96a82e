// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package api

import (
	"context"
	"sync"
	"time"

	"github.com/vitrinehq/vitrine/internal/config"
	"github.com/vitrinehq/vitrine/internal/recommend"
)

// stubService is a controllable RecommendationService for handler tests.
type stubService struct {
	mu sync.Mutex

	recs       []recommend.RecommendationResult
	popular    []recommend.RecommendationResult
	popularErr error
	similar    []recommend.RecommendationResult
	similarErr error
	trainStats *recommend.TrainStats
	trainErr   error
	status     recommend.ServiceStatus

	lastUserID    string
	lastProductID string
	lastLimit     int
	trainCalled   chan struct{}
}

func newStubService() *stubService {
	return &stubService{
		trainStats:  &recommend.TrainStats{Interactions: 10, Users: 3, Products: 5},
		trainCalled: make(chan struct{}, 8),
	}
}

func (s *stubService) GetRecommendations(ctx context.Context, userID string, limit int) []recommend.RecommendationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUserID = userID
	s.lastLimit = limit
	return s.recs
}

func (s *stubService) GetPopular(ctx context.Context, limit int) ([]recommend.RecommendationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	return s.popular, s.popularErr
}

func (s *stubService) GetSimilar(ctx context.Context, productID string, limit int) ([]recommend.RecommendationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastProductID = productID
	s.lastLimit = limit
	return s.similar, s.similarErr
}

func (s *stubService) Train(ctx context.Context) (*recommend.TrainStats, error) {
	s.mu.Lock()
	stats, err := s.trainStats, s.trainErr
	s.mu.Unlock()
	s.trainCalled <- struct{}{}
	return stats, err
}

func (s *stubService) Status() recommend.ServiceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *stubService) setStatus(status recommend.ServiceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// waitForTrain blocks until the background training goroutine has run.
func (s *stubService) waitForTrain(timeout time.Duration) bool {
	select {
	case <-s.trainCalled:
		return true
	case <-time.After(timeout):
		return false
	}
}

// newTestHandler builds a Handler around a stub service with default config
// and no backend pingers.
func newTestHandler(svc RecommendationService) *Handler {
	return NewHandler(svc, config.Default(), nil, nil)
}
