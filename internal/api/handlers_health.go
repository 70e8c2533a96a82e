// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the payload of the liveness endpoint.
type HealthStatus struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	ModelLoaded   bool    `json:"model_loaded"`
	ModelVersion  int     `json:"model_version"`
	Training      bool    `json:"training"`
}

// Health handles GET /health (liveness probe).
// Returns 200 whenever the process is alive, regardless of dependencies.
// Serving without a model is normal operation (fallback mode), not a
// health problem.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.svc.Status()

	NewResponseWriter(w, r).Success(HealthStatus{
		Status:        "ok",
		Version:       serverVersion,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		ModelLoaded:   status.ModelLoaded,
		ModelVersion:  status.ModelVersion,
		Training:      status.Training,
	})
}

// Ready handles GET /ready (readiness probe).
// Returns 200 only when every configured backend is reachable; backends
// that are not configured (dev mode without Postgres or Redis) are not
// checked. Returns 503 otherwise so load balancers stop routing here.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	checks := map[string]bool{}
	ready := true

	if h.db != nil {
		ok := h.db.Ping(r.Context()) == nil
		checks["database"] = ok
		ready = ready && ok
	}
	if h.cacheConn != nil {
		ok := h.cacheConn.Ping(r.Context()) == nil
		checks["cache"] = ok
		ready = ready && ok
	}

	if !ready {
		rw.ServiceUnavailable("Dependencies not ready", checks)
		return
	}

	rw.Success(map[string]interface{}{
		"ready":  true,
		"checks": checks,
	})
}
