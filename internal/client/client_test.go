package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/wolfman30/leadflow/internal/api/router"
	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/pkg/logging"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	logger := logging.Discard()
	svc := leads.NewService(leads.NewInMemoryRepository(), logger)
	srv := httptest.NewServer(router.New(&router.Config{
		Logger:       logger,
		LeadsHandler: leads.NewHandler(svc, logger),
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", WithLogger(logger), WithHTTPClient(srv.Client()))
}

func TestClient_CreateGetAndList(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateLead(ctx, leads.CreateLeadRequest{Name: "Ann Lee", Email: "Ann@Example.com"})
	if err != nil {
		t.Fatalf("CreateLead failed: %v", err)
	}
	if created.Email != "ann@example.com" || created.Status != leads.StatusNew {
		t.Errorf("unexpected lead: %+v", created)
	}

	got, err := c.GetLead(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetLead failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected id %s, got %s", created.ID, got.ID)
	}

	query := url.Values{}
	query.Set("search", "ann")
	query.Set("status", "")
	result, err := c.ListLeads(ctx, query)
	if err != nil {
		t.Fatalf("ListLeads failed: %v", err)
	}
	if result.Total != 1 || len(result.Leads) != 1 || result.Page != 1 || result.Limit != 10 {
		t.Errorf("unexpected list result: %+v", result)
	}
}

func TestClient_UpdateDeleteAndStats(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateLead(ctx, leads.CreateLeadRequest{Name: "Ann Lee", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("CreateLead failed: %v", err)
	}
	won := leads.StatusClosedWon
	if _, err := c.UpdateLead(ctx, created.ID, leads.UpdateLeadRequest{Status: &won}); err != nil {
		t.Fatalf("UpdateLead failed: %v", err)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 1 || stats.ConversionRate != 100 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := c.DeleteLead(ctx, created.ID); err != nil {
		t.Fatalf("DeleteLead failed: %v", err)
	}
	_, err = c.GetLead(ctx, created.ID)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Lead not found" {
		t.Fatalf("expected not found api error, got %v", err)
	}
}

func TestClient_ServerErrorTextIsSurfaced(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if _, err := c.CreateLead(ctx, leads.CreateLeadRequest{Name: "Ann Lee", Email: "ann@example.com"}); err != nil {
		t.Fatalf("CreateLead failed: %v", err)
	}
	_, err := c.CreateLead(ctx, leads.CreateLeadRequest{Name: "Ann Lee", Email: "ann@example.com"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "A lead with this email already exists" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestClient_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithLogger(logging.Discard())).Stats(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "HTTP 502" {
		t.Fatalf("expected HTTP 502 api error, got %v", err)
	}
}
