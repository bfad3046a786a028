// Package client talks to the lead API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/leadflow/internal/http/envelope"
	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/pkg/logging"
)

// APIError is a non-success envelope returned by the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: api returned %d: %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for the lead API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client. baseURL includes the /api prefix, for example
// "http://localhost:5000/api".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logging.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListLeads fetches one page of leads. Empty values are not sent.
func (c *Client) ListLeads(ctx context.Context, query url.Values) (*leads.ListResult, error) {
	params := url.Values{}
	for key, values := range query {
		for _, v := range values {
			if v != "" {
				params.Add(key, v)
			}
		}
	}
	endpoint := "/leads"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var result leads.ListResult
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	if result.Leads == nil {
		result.Leads = []*leads.Lead{}
	}
	return &result, nil
}

// GetLead fetches a single lead.
func (c *Client) GetLead(ctx context.Context, id string) (*leads.Lead, error) {
	var lead leads.Lead
	if err := c.do(ctx, http.MethodGet, "/leads/"+url.PathEscape(id), nil, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// CreateLead submits a new lead.
func (c *Client) CreateLead(ctx context.Context, req leads.CreateLeadRequest) (*leads.Lead, error) {
	var lead leads.Lead
	if err := c.do(ctx, http.MethodPost, "/leads", req, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// UpdateLead applies a partial update.
func (c *Client) UpdateLead(ctx context.Context, id string, req leads.UpdateLeadRequest) (*leads.Lead, error) {
	var lead leads.Lead
	if err := c.do(ctx, http.MethodPut, "/leads/"+url.PathEscape(id), req, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// DeleteLead removes a lead.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/leads/"+url.PathEscape(id), nil, nil)
}

// Stats fetches the pipeline statistics.
func (c *Client) Stats(ctx context.Context) (*leads.Stats, error) {
	var stats leads.Stats
	if err := c.do(ctx, http.MethodGet, "/leads/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope.Envelope[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		c.logger.Debug("lead api request failed", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "error", msg)
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
