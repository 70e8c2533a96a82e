// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with marketplace-specific custom validators and
// user-friendly error messages. It integrates with the API's error format for
// consistent error responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Custom entityid validator for marketplace user/product/shop IDs
//   - Error translation to human-readable messages
//   - APIError conversion matching the API's error format
//   - Future v11 compatibility with WithRequiredStructEnabled
//
// # Quick Start
//
//	type RecommendationsRequest struct {
//	    UserID string `validate:"required,entityid"`
//	    Limit  int    `validate:"min=0,max=1000"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    req := RecommendationsRequest{UserID: chi.URLParam(r, "userID")}
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Validation Tags
//
// Marketplace validations:
//   - entityid: Well-formed marketplace ID (1-128 chars of letters, digits,
//     '-', '_', '.', ':'; must not start with a separator)
//
// String validations:
//   - required: Field must not be empty
//   - min=n: Minimum length n characters
//   - max=n: Maximum length n characters
//
// Numeric validations:
//   - gte=n, lte=n, gt=n, lt=n: Range comparisons
//   - min=n, max=n: Minimum and maximum value
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values
//
// # API Error Integration
//
// The ToAPIError method produces errors matching the API format:
//
//	// Single field error
//	{
//	    "code": "ERR_VALIDATION",
//	    "message": "UserID must be a valid marketplace ID",
//	    "details": {"field": "UserID", "tag": "entityid", "value": "!!"}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "ERR_VALIDATION",
//	    "message": "UserID: is required; Limit: must be at most 1000",
//	    "details": {
//	        "fields": [
//	            {"field": "UserID", "tag": "required", "message": "..."},
//	            {"field": "Limit", "tag": "max", "message": "..."}
//	        ]
//	    }
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use:
//
//	validate := validation.GetValidator()  // Thread-safe
//	err := validation.ValidateStruct(&req) // Thread-safe
//
// # See Also
//
//   - internal/api: Request handlers using validation
//   - github.com/go-playground/validator/v10: Underlying library
package validation
