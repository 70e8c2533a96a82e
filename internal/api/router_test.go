// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package api

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vitrinehq/vitrine/internal/recommend"
)

// setupTestRouter wires a stub service into a full router with permissive
// middleware so route tests exercise the real Chi stack.
func setupTestRouter(t *testing.T, svc RecommendationService, mwConfig *ChiMiddlewareConfig) http.Handler {
	t.Helper()

	if mwConfig == nil {
		mwConfig = &ChiMiddlewareConfig{
			CORSAllowedOrigins: []string{"*"},
			CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
			CORSAllowedHeaders: []string{"Content-Type"},
			CORSMaxAge:         86400,
			RateLimitDisabled:  true,
		}
	}

	router := NewRouter(newTestHandler(svc), NewChiMiddleware(mwConfig))
	return router.Setup()
}

func TestNewRouter(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(newStubService())
	mw := NewChiMiddleware(nil)

	router := NewRouter(handler, mw)

	if router == nil {
		t.Fatal("NewRouter returned nil")
	}
	if router.handler != handler {
		t.Error("Handler not set correctly")
	}
	if router.chiMiddleware != mw {
		t.Error("Middleware not set correctly")
	}
}

func TestNewRouter_NilMiddlewareUsesDefaults(t *testing.T) {
	t.Parallel()

	router := NewRouter(newTestHandler(newStubService()), nil)

	if router.chiMiddleware == nil {
		t.Fatal("Expected default middleware when nil is passed")
	}
	if router.chiMiddleware.config.RateLimitRequests != 300 {
		t.Errorf("RateLimitRequests = %d, want 300", router.chiMiddleware.config.RateLimitRequests)
	}
}

func TestRouterSetup_HealthEndpoints(t *testing.T) {
	t.Parallel()

	mux := setupTestRouter(t, newStubService(), nil)

	tests := []struct {
		name string
		path string
	}{
		{"health endpoint", "/health"},
		{"ready endpoint", "/ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("%s: status = %d, want %d", tt.name, w.Code, http.StatusOK)
			}
		})
	}
}

func TestRouterSetup_RecommendationEndpoints(t *testing.T) {
	t.Parallel()

	mux := setupTestRouter(t, newStubService(), nil)

	tests := []struct {
		name   string
		path   string
		method string
	}{
		{"user recommendations", "/api/v1/recommendations/user-42", http.MethodGet},
		{"popular products", "/api/v1/recommendations/popular", http.MethodGet},
		{"similar products", "/api/v1/recommendations/similar/prod-1", http.MethodGet},
		{"service status", "/api/v1/recommendations/status", http.MethodGet},
		{"trigger training", "/api/v1/recommendations/train", http.MethodPost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code == http.StatusNotFound {
				t.Errorf("%s: endpoint not found (404)", tt.name)
			}
		})
	}
}

func TestRouterSetup_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	mux := setupTestRouter(t, newStubService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	contentType := w.Header().Get("Content-Type")
	if !strings.Contains(contentType, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain exposition format", contentType)
	}
}

func TestRouterSetup_StaticRoutesWinOverUserID(t *testing.T) {
	t.Parallel()

	svc := newStubService()
	svc.popular = []recommend.RecommendationResult{{ProductID: "prod-hot", Score: 0.9}}
	svc.recs = []recommend.RecommendationResult{{ProductID: "prod-personal", Score: 0.5}}
	mux := setupTestRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/popular", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	response := decodeResponse(t, w)
	data, err := json.Marshal(response.Data)
	if err != nil {
		t.Fatalf("Failed to re-marshal data: %v", err)
	}
	var list RecommendationList
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("Failed to unmarshal list: %v", err)
	}

	if len(list.Items) != 1 || list.Items[0].ProductID != "prod-hot" {
		t.Errorf("Items = %+v, want the popular product", list.Items)
	}

	svc.mu.Lock()
	lastUserID := svc.lastUserID
	svc.mu.Unlock()
	if lastUserID != "" {
		t.Errorf("GetRecommendations was called with userID %q, expected popular handler", lastUserID)
	}
}

func TestRouterSetup_NotFound(t *testing.T) {
	t.Parallel()

	mux := setupTestRouter(t, newStubService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	response := decodeResponse(t, w)
	if response.Success {
		t.Error("Expected success=false")
	}
	if response.Error == nil || response.Error.Code != ErrCodeNotFound {
		t.Error("Expected ERR_NOT_FOUND envelope")
	}
}

func TestRouterSetup_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	mux := setupTestRouter(t, newStubService(), nil)

	tests := []struct {
		name   string
		path   string
		method string
	}{
		{"DELETE to popular", "/api/v1/recommendations/popular", http.MethodDelete},
		{"PUT to train", "/api/v1/recommendations/train", http.MethodPut},
		{"POST to status", "/api/v1/recommendations/status", http.MethodPost},
		{"DELETE to health", "/health", http.MethodDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Fatalf("%s: status = %d, want %d", tt.name, w.Code, http.StatusMethodNotAllowed)
			}

			response := decodeResponse(t, w)
			if response.Error == nil || response.Error.Code != ErrCodeMethodNotAllowed {
				t.Error("Expected ERR_METHOD_NOT_ALLOWED envelope")
			}
		})
	}
}

func TestRouterSetup_RequestIDHeader(t *testing.T) {
	t.Parallel()

	mux := setupTestRouter(t, newStubService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header on every response")
	}
}

func TestRouterSetup_CORSReflectsConfiguredOrigin(t *testing.T) {
	t.Parallel()

	mwConfig := &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"https://shop.example.com"},
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type"},
		CORSMaxAge:         86400,
		RateLimitDisabled:  true,
	}
	mux := setupTestRouter(t, newStubService(), mwConfig)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	allowOrigin := w.Header().Get("Access-Control-Allow-Origin")
	if allowOrigin != "https://shop.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the configured origin", allowOrigin)
	}
	if !strings.Contains(w.Header().Get("Vary"), "Origin") {
		t.Error("Expected Vary: Origin for cache correctness with reflected origins")
	}
}

// panicService triggers the Recoverer middleware.
type panicService struct {
	*stubService
}

func (p *panicService) GetPopular(ctx context.Context, limit int) ([]recommend.RecommendationResult, error) {
	panic("store exploded")
}

func TestRouterSetup_RecovererTurnsPanicInto500(t *testing.T) {
	t.Parallel()

	svc := &panicService{stubService: newStubService()}
	mux := setupTestRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/popular", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestRouterSetup_GzipOnRecommendationRoutes(t *testing.T) {
	t.Parallel()

	svc := newStubService()
	svc.popular = []recommend.RecommendationResult{
		{ProductID: "prod-1", Score: 0.91},
		{ProductID: "prod-2", Score: 0.84},
	}
	mux := setupTestRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/popular", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", w.Header().Get("Content-Encoding"))
	}

	gz, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	defer gz.Close()

	body, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("Failed to decompress body: %v", err)
	}

	var response APIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		t.Fatalf("Failed to unmarshal decompressed body: %v", err)
	}
	if !response.Success {
		t.Error("Expected success=true")
	}
}

func TestRouterSetup_RateLimitSeparateFromHealth(t *testing.T) {
	t.Parallel()

	mwConfig := &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type"},
		CORSMaxAge:         86400,
		RateLimitRequests:  2,
		RateLimitWindow:    time.Minute,
	}
	mux := setupTestRouter(t, newStubService(), mwConfig)

	// Exhaust the API budget for one client
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/popular", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/popular", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	response := decodeResponse(t, w)
	if response.Error == nil || response.Error.Code != ErrCodeRateLimited {
		t.Error("Expected ERR_RATE_LIMITED envelope")
	}

	// Health probes run on their own budget and must still answer
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
}

func BenchmarkRouterSetup(b *testing.B) {
	handler := newTestHandler(newStubService())
	mw := NewChiMiddleware(nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router := NewRouter(handler, mw)
		_ = router.Setup()
	}
}

func BenchmarkRouterHandleRequest(b *testing.B) {
	svc := newStubService()
	svc.popular = []recommend.RecommendationResult{
		{ProductID: "prod-1", Score: 0.91},
		{ProductID: "prod-2", Score: 0.84},
	}
	router := NewRouter(newTestHandler(svc), NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitDisabled: true,
	}))
	mux := router.Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/popular", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
	}
}
