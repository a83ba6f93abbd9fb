// Package healthprobe exposes liveness and readiness handlers.
// Liveness is unconditional; readiness tracks named components so
// /ready flips to 200 only once everything on the critical path has
// come up, and flips back if a component degrades.
package healthprobe

import (
	"net/http"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker provides health and readiness checks.
type HealthChecker struct {
	startTime time.Time

	mu         sync.RWMutex
	components map[string]bool
}

// New creates a HealthChecker tracking the named components. Each
// starts not ready; with no components the checker reports ready
// immediately.
func New(components ...string) *HealthChecker {
	tracked := make(map[string]bool, len(components))
	for _, name := range components {
		tracked[name] = false
	}

	return &HealthChecker{
		startTime:  time.Now(),
		components: tracked,
	}
}

// SetReady marks one component up or down. Components not named at
// construction are registered on first use.
func (h *HealthChecker) SetReady(component string, ready bool) {
	h.mu.Lock()
	h.components[component] = ready
	h.mu.Unlock()
}

// IsReady reports whether every tracked component is up.
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ready := range h.components {
		if !ready {
			return false
		}
	}

	return true
}

// waiting returns the names of components that are not up yet.
func (h *HealthChecker) waiting() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var names []string
	for name, ready := range h.components {
		if !ready {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Waiting []string `json:"waiting,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "healthy",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK when every component is up, 503 Service Unavailable
// with the waiting list otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.IsReady() {
			resp := HealthResponse{
				Status:  "not_ready",
				Waiting: h.waiting(),
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "ready",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
