package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, leadMetrics, httpMetrics := setupMetrics()
	if handler == nil || leadMetrics == nil || httpMetrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	leadMetrics.ObserveOperation("create", "ok", 0.01)
	httpMetrics.ObserveRequest(http.MethodPost, "/api/leads/", "201", 0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"leadflow_leads_operations_total", "leadflow_http_requests_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s to be exported", name)
		}
	}
}

func TestSetupMetricsUsesFreshRegistry(t *testing.T) {
	// a second call must not panic on duplicate registration
	setupMetrics()
	setupMetrics()
}
