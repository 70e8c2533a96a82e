// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vitrinehq/vitrine/internal/logging"
)

func TestResponseWriter_Success(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	data := map[string]string{"message": "hello"}
	NewResponseWriter(w, r).Success(data)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if !response.Success {
		t.Error("Expected Success to be true")
	}

	if response.Error != nil {
		t.Error("Expected Error to be nil")
	}

	if response.Meta == nil {
		t.Fatal("Expected Meta to not be nil")
	}

	if response.Meta.Timestamp.IsZero() {
		t.Error("Expected Timestamp to be set")
	}

	if response.Meta.Version != serverVersion {
		t.Errorf("Expected version %s, got %s", serverVersion, response.Meta.Version)
	}
}

func TestResponseWriter_Accepted(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/test", nil)

	NewResponseWriter(w, r).Accepted(map[string]string{"message": "Training started"})

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if !response.Success {
		t.Error("Expected Success to be true")
	}
}

func TestResponseWriter_NotFound(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test/123", nil)

	NewResponseWriter(w, r).NotFound("resource not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Success {
		t.Error("Expected Success to be false")
	}

	if response.Error == nil {
		t.Fatal("Expected Error to not be nil")
	}

	if response.Error.Code != ErrCodeNotFound {
		t.Errorf("Expected code %s, got %s", ErrCodeNotFound, response.Error.Code)
	}

	if response.Error.Message != "resource not found" {
		t.Errorf("Expected message 'resource not found', got '%s'", response.Error.Message)
	}
}

func TestResponseWriter_Conflict(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/test", nil)

	NewResponseWriter(w, r).Conflict(ErrCodeTrainingInProgress, "Training is already in progress")

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Error.Code != ErrCodeTrainingInProgress {
		t.Errorf("Expected code %s, got %s", ErrCodeTrainingInProgress, response.Error.Code)
	}
}

func TestResponseWriter_TooManyRequests(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	NewResponseWriter(w, r).TooManyRequests("rate limit exceeded")

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Error.Code != ErrCodeRateLimited {
		t.Errorf("Expected code %s, got %s", ErrCodeRateLimited, response.Error.Code)
	}
}

func TestResponseWriter_InternalError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	NewResponseWriter(w, r).InternalError("something went wrong")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Error.Code != ErrCodeInternal {
		t.Errorf("Expected code %s, got %s", ErrCodeInternal, response.Error.Code)
	}
}

func TestResponseWriter_ServiceUnavailable(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	checks := map[string]bool{"database": false, "cache": true}
	NewResponseWriter(w, r).ServiceUnavailable("Dependencies not ready", checks)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Error.Code != ErrCodeUnavailable {
		t.Errorf("Expected code %s, got %s", ErrCodeUnavailable, response.Error.Code)
	}

	if response.Error.Details == nil {
		t.Error("Expected per-dependency details")
	}
}

func TestResponseWriter_ValidationError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	details := map[string]interface{}{
		"field": "UserID",
		"tag":   "required",
	}

	NewResponseWriter(w, r).ValidationError("UserID is required", details)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Error.Code != ErrCodeValidation {
		t.Errorf("Expected code %s, got %s", ErrCodeValidation, response.Error.Code)
	}

	if response.Error.Details == nil {
		t.Error("Expected validation details")
	}
}

func TestResponseWriter_ErrorWithDetails(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	details := map[string]interface{}{
		"field":  "limit",
		"reason": "too large",
	}

	NewResponseWriter(w, r).ErrorWithDetails(
		http.StatusBadRequest,
		ErrCodeValidation,
		"limit out of range",
		details,
	)

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Error.Details == nil {
		t.Error("Expected error details")
	}
}

func TestResponseWriter_RequestIDPropagation(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	r = r.WithContext(logging.ContextWithRequestID(r.Context(), "req-test-123"))

	NewResponseWriter(w, r).NotFound("missing")

	var response APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Meta == nil || response.Meta.RequestID != "req-test-123" {
		t.Error("Expected request ID in meta")
	}

	if response.Error == nil || response.Error.RequestID != "req-test-123" {
		t.Error("Expected request ID in error payload")
	}
}

func TestConvenienceFunctions(t *testing.T) {
	t.Parallel()

	t.Run("WriteSuccess", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/test", nil)

		WriteSuccess(w, r, "data")

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})

	t.Run("WriteError", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/test", nil)

		WriteError(w, r, http.StatusTeapot, "CUSTOM", "I'm a teapot")

		if w.Code != http.StatusTeapot {
			t.Errorf("Expected 418, got %d", w.Code)
		}
	})
}

func TestResponseWriter_ContentType(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	NewResponseWriter(w, r).Success("test")

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json; charset=utf-8" {
		t.Errorf("Expected 'application/json; charset=utf-8', got '%s'", contentType)
	}
}
