// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

// Package services provides suture service wrappers for Vitrine's
// long-running components.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/vitrinehq/vitrine/internal/recommend"
)

// TrainingRunner is the slice of the recommendation service the scheduler
// needs. Satisfied by *recommend.Service.
type TrainingRunner interface {
	Train(ctx context.Context) (*recommend.TrainStats, error)
}

// TrainingSchedulerConfig holds configuration for the training scheduler.
type TrainingSchedulerConfig struct {
	// Schedule is a standard five-field cron expression ("@every 12h"
	// descriptors also work). Empty disables periodic firing; the service
	// then only runs the optional startup pass.
	Schedule string

	// TrainOnStartup runs one training pass as soon as the service starts.
	TrainOnStartup bool

	// TrainTimeout bounds a single training run. Default: 30m.
	TrainTimeout time.Duration
}

// TrainingSchedulerService retrains the model on a cron schedule.
//
// Firings that overlap an in-progress run are skipped, and training failures
// are logged rather than crashing the service: a bad nightly run must never
// cost the marketplace its serving model.
type TrainingSchedulerService struct {
	runner TrainingRunner
	config TrainingSchedulerConfig
	logger zerolog.Logger
	name   string
}

// NewTrainingSchedulerService creates a new training scheduler service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingSchedulerService(runner TrainingRunner, cfg TrainingSchedulerConfig, logger zerolog.Logger) *TrainingSchedulerService {
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = 30 * time.Minute
	}
	return &TrainingSchedulerService{
		runner: runner,
		config: cfg,
		logger: logger.With().Str("service", "training-scheduler").Logger(),
		name:   "training-scheduler",
	}
}

// Serve implements suture.Service. It runs the cron loop until the context
// is canceled, then stops the cron runner and waits for in-flight jobs.
func (s *TrainingSchedulerService) Serve(ctx context.Context) error {
	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Bool("train_on_startup", s.config.TrainOnStartup).
		Msg("training scheduler starting")

	if s.config.TrainOnStartup {
		s.runTraining(ctx)
	}

	if s.config.Schedule == "" {
		// Startup-only mode, nothing further to schedule.
		<-ctx.Done()
		s.logger.Info().Msg("training scheduler shut down")
		return ctx.Err()
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.config.Schedule, func() { s.runTraining(ctx) }); err != nil {
		// Config validation rejects malformed expressions, so reaching this
		// means a bug upstream. Restarting cannot fix a parse error.
		s.logger.Error().Err(err).Str("schedule", s.config.Schedule).
			Msg("invalid training schedule, scheduler disabled")
		return fmt.Errorf("invalid training schedule %q: %w", s.config.Schedule, suture.ErrDoNotRestart)
	}

	c.Start()
	s.logger.Info().Msg("training scheduler running")

	<-ctx.Done()

	// Stop delivers no further firings; the returned context completes when
	// in-flight jobs have drained.
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.config.TrainTimeout):
		s.logger.Warn().Msg("timed out waiting for in-flight training to finish")
	}

	s.logger.Info().Msg("training scheduler shut down")
	return ctx.Err()
}

// runTraining performs one training cycle under the configured timeout.
func (s *TrainingSchedulerService) runTraining(ctx context.Context) {
	trainCtx, cancel := context.WithTimeout(ctx, s.config.TrainTimeout)
	defer cancel()

	start := time.Now()
	stats, err := s.runner.Train(trainCtx)
	switch {
	case errors.Is(err, recommend.ErrTrainingInProgress):
		s.logger.Warn().Msg("skipping scheduled training, a run is already in progress")
	case err != nil:
		s.logger.Warn().Err(err).Dur("duration", time.Since(start)).
			Msg("scheduled training failed")
	default:
		s.logger.Info().
			Dur("duration", time.Since(start)).
			Int("interactions", stats.Interactions).
			Int("users", stats.Users).
			Int("products", stats.Products).
			Msg("scheduled training complete")
	}
}

// String returns the service name for logging.
func (s *TrainingSchedulerService) String() string {
	return s.name
}
