// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import "errors"

var (
	// ErrTrainingInProgress is returned when a training run is requested
	// while another is still running.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrNoInteractionSource is returned by Train when no interaction
	// source has been configured.
	ErrNoInteractionSource = errors.New("interaction source not configured")
)
