package healthprobe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	hc := New()

	if hc == nil {
		t.Fatal("New() returned nil")
	}

	// Verify start time is recent
	if time.Since(hc.startTime) > 1*time.Second {
		t.Errorf("Start time is too old: %v", hc.startTime)
	}

	// With no components tracked there is nothing to wait for
	if !hc.IsReady() {
		t.Error("HealthChecker with no components should be ready")
	}
}

func TestNew_WithComponents(t *testing.T) {
	hc := New("discovery", "venues", "agent")

	if hc.IsReady() {
		t.Error("HealthChecker should not be ready while components are down")
	}

	want := []string{"agent", "discovery", "venues"}
	if got := hc.waiting(); !reflect.DeepEqual(got, want) {
		t.Errorf("waiting() = %v, want %v", got, want)
	}
}

func TestSetReady(t *testing.T) {
	hc := New("discovery", "agent")

	hc.SetReady("discovery", true)
	if hc.IsReady() {
		t.Error("Should not be ready with one component still down")
	}

	hc.SetReady("agent", true)
	if !hc.IsReady() {
		t.Error("Should be ready with all components up")
	}

	// A degrading component takes readiness back down
	hc.SetReady("discovery", false)
	if hc.IsReady() {
		t.Error("Should not be ready after a component degraded")
	}

	if got := hc.waiting(); !reflect.DeepEqual(got, []string{"discovery"}) {
		t.Errorf("waiting() = %v, want [discovery]", got)
	}
}

func TestSetReady_ImplicitRegistration(t *testing.T) {
	hc := New()

	// Components not named at construction join on first use
	hc.SetReady("tracker", false)
	if hc.IsReady() {
		t.Error("Implicitly registered down component should block readiness")
	}

	hc.SetReady("tracker", true)
	if !hc.IsReady() {
		t.Error("Should be ready once the implicit component is up")
	}
}

func TestHealth_Handler(t *testing.T) {
	hc := New("agent")

	handler := hc.Health()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	// Liveness never depends on component state
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health handler status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", contentType)
	}

	var healthResp HealthResponse
	err := json.NewDecoder(resp.Body).Decode(&healthResp)
	if err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}

	if healthResp.Status != "healthy" {
		t.Errorf("Status = %s, want healthy", healthResp.Status)
	}
	if healthResp.Uptime == "" {
		t.Error("Uptime should not be empty")
	}
}

func TestReady_Handler(t *testing.T) {
	tests := []struct {
		name           string
		ready          map[string]bool
		expectedStatus int
		expectedState  string
		expectWaiting  []string
	}{
		{
			name:           "not_ready_initially",
			ready:          map[string]bool{},
			expectedStatus: http.StatusServiceUnavailable,
			expectedState:  "not_ready",
			expectWaiting:  []string{"agent", "discovery"},
		},
		{
			name:           "partial_components",
			ready:          map[string]bool{"discovery": true},
			expectedStatus: http.StatusServiceUnavailable,
			expectedState:  "not_ready",
			expectWaiting:  []string{"agent"},
		},
		{
			name:           "all_components_up",
			ready:          map[string]bool{"discovery": true, "agent": true},
			expectedStatus: http.StatusOK,
			expectedState:  "ready",
			expectWaiting:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("discovery", "agent")
			for name, ready := range tt.ready {
				hc.SetReady(name, ready)
			}

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()

			hc.Ready()(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Ready handler status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}

			var readyResp HealthResponse
			err := json.NewDecoder(resp.Body).Decode(&readyResp)
			if err != nil {
				t.Fatalf("Failed to decode ready response: %v", err)
			}

			if readyResp.Status != tt.expectedState {
				t.Errorf("Status = %s, want %s", readyResp.Status, tt.expectedState)
			}
			if !reflect.DeepEqual(readyResp.Waiting, tt.expectWaiting) {
				t.Errorf("Waiting = %v, want %v", readyResp.Waiting, tt.expectWaiting)
			}
		})
	}
}

func TestSetReady_Concurrent(t *testing.T) {
	hc := New("a", "b", "c")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			names := []string{"a", "b", "c"}
			hc.SetReady(names[n%3], n%2 == 0)
			hc.IsReady()
			hc.waiting()
		}(i)
	}
	wg.Wait()
}
