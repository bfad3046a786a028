package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/leadflow/pkg/logging"
)

func TestLive(t *testing.T) {
	h := NewHandler(logging.Discard())
	h.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

	rr := httptest.NewRecorder()
	h.Live(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp Liveness
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if !resp.Success || resp.Message != "Server is running" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !resp.Timestamp.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", resp.Timestamp)
	}
}

func TestLive_IgnoresDependencies(t *testing.T) {
	h := NewHandler(logging.Discard()).
		Register("store", PingFunc(func(context.Context) error { return errors.New("down") }))

	rr := httptest.NewRecorder()
	h.Live(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("liveness must not depend on the store, got %d", rr.Code)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		store      Pinger
		redis      Pinger
		wantStatus int
		wantDeps   map[string]string
	}{
		{
			name:       "all healthy",
			store:      PingFunc(func(context.Context) error { return nil }),
			redis:      PingFunc(func(context.Context) error { return nil }),
			wantStatus: http.StatusOK,
			wantDeps:   map[string]string{"store": "healthy", "redis": "healthy"},
		},
		{
			name:       "redis not configured",
			store:      PingFunc(func(context.Context) error { return nil }),
			wantStatus: http.StatusOK,
			wantDeps:   map[string]string{"store": "healthy", "redis": "not configured"},
		},
		{
			name:       "store down",
			store:      PingFunc(func(context.Context) error { return errors.New("connection refused") }),
			wantStatus: http.StatusServiceUnavailable,
			wantDeps:   map[string]string{"store": "unhealthy", "redis": "not configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(logging.Discard()).Register("store", tt.store).Register("redis", tt.redis)

			rr := httptest.NewRecorder()
			h.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			var resp struct {
				Success bool      `json:"success"`
				Data    Readiness `json:"data"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode readiness response: %v", err)
			}
			if resp.Success != (tt.wantStatus == http.StatusOK) {
				t.Errorf("unexpected success flag %v", resp.Success)
			}
			for name, want := range tt.wantDeps {
				if got := resp.Data.Dependencies[name]; got != want {
					t.Errorf("dependency %s = %q, want %q", name, got, want)
				}
			}
		})
	}
}
