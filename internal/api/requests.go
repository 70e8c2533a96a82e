// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/vitrinehq/vitrine/internal/validation"
)

// maxRequestLimit is the hard ceiling on ?limit= values. The service caps
// served lists at its own configured maximum; anything beyond this bound
// is rejected as abusive rather than clamped.
const maxRequestLimit = 1000

// RecommendationsRequest carries the parameters of a personalized
// recommendations request. A limit of zero or below selects the service
// default.
type RecommendationsRequest struct {
	UserID string `validate:"required,entityid"`
	Limit  int    `validate:"max=1000"`
}

// PopularRequest carries the parameters of a popular products request.
type PopularRequest struct {
	Limit int `validate:"max=1000"`
}

// SimilarRequest carries the parameters of a similar products request.
type SimilarRequest struct {
	ProductID string `validate:"required,entityid"`
	Limit     int    `validate:"max=1000"`
}

// validateRequest validates a request struct and converts failures to the
// API error format.
func validateRequest(v interface{}) *APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// getIntParam extracts an integer query parameter with a default value.
// Unparseable values fall back to the default.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// sanitizeLogValue removes control characters from strings before they are
// logged, so request-supplied values cannot forge log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
