// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestSupervisorTreeIntegration tests the complete supervisor tree behavior
// with services in both layers, simulating the real application layout.
func TestSupervisorTreeIntegration(t *testing.T) {
	t.Run("full tree with services in both layers", func(t *testing.T) {
		tree, err := NewSupervisorTree(testSlogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   50 * time.Millisecond,
			ShutdownTimeout:  500 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		httpSvc := NewMockService("http-server")
		trainSvc := NewMockService("training-scheduler")

		tree.AddAPIService(httpSvc)
		tree.AddTrainingService(trainSvc)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		// Wait for services to start with polling (more reliable in CI under load)
		var allStarted bool
		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if httpSvc.StartCount() >= 1 && trainSvc.StartCount() >= 1 {
				allStarted = true
				break
			}
		}

		if !allStarted {
			if httpSvc.StartCount() < 1 {
				t.Error("http service was not started")
			}
			if trainSvc.StartCount() < 1 {
				t.Error("training service was not started")
			}
		}

		// Wait for context timeout to trigger shutdown
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down")
		}
	})

	t.Run("training failures do not disturb the api layer", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testSlogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  500 * time.Millisecond,
		})

		failingTrainer := NewMockService("failing-trainer")
		failingTrainer.SetFailCount(3) // Fail 3 times then succeed

		stableAPI := NewMockService("stable-api")

		tree.AddTrainingService(failingTrainer)
		tree.AddAPIService(stableAPI)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		// Wait for restarts to happen
		time.Sleep(150 * time.Millisecond)

		if failingTrainer.StartCount() < 3 {
			t.Errorf("failing trainer should have been restarted at least 3 times, got %d", failingTrainer.StartCount())
		}

		// The API service should have started exactly once and kept running
		if stableAPI.StartCount() != 1 {
			t.Errorf("stable API service should have started once, got %d starts", stableAPI.StartCount())
		}

		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down")
		}
	})
}

// TestSupervisorTreeConcurrency tests concurrent operations on the supervisor tree.
func TestSupervisorTreeConcurrency(t *testing.T) {
	t.Run("concurrent service additions are safe", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testSlogger(), TreeConfig{
			ShutdownTimeout: 500 * time.Millisecond,
		})

		// Add services from multiple goroutines before starting
		for i := 0; i < 10; i++ {
			go func(idx int) {
				svc := NewMockService("concurrent-svc")
				if idx%2 == 0 {
					tree.AddAPIService(svc)
				} else {
					tree.AddTrainingService(svc)
				}
			}(i)
		}

		// Short delay to let goroutines complete (100ms for CI reliability under load)
		time.Sleep(100 * time.Millisecond)

		// Start and stop the tree to verify no data races
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down")
		}
	})
}

// TestSupervisorTreeEdgeCases tests edge cases and error conditions.
func TestSupervisorTreeEdgeCases(t *testing.T) {
	t.Run("empty tree starts and stops gracefully", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testSlogger(), TreeConfig{
			ShutdownTimeout: 500 * time.Millisecond,
		})

		// Don't add any services
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(500 * time.Millisecond):
			t.Error("tree did not shut down")
		}
	})

	t.Run("root accessor returns non-nil", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testSlogger(), TreeConfig{})

		if tree.Root() == nil {
			t.Error("Root() should return non-nil supervisor")
		}
	})
}
