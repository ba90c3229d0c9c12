package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goliatone/go-reports/components/reports"
)

// HTTPConfig configures the HTTP analytics client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPClient talks to the analytics backend via REST endpoints.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient builds a client capable of hitting the live analytics API.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analytics: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

// FetchMetrics posts the validated query with its resolved bounds.
func (c *HTTPClient) FetchMetrics(ctx context.Context, query reports.MetricsQuery, bounds reports.Bounds) ([]reports.Row, error) {
	req := metricsRequest{
		BrandID:    query.BrandID,
		Range:      bounds,
		Dimensions: query.Dimensions,
		Metrics:    query.Metrics,
		Filters:    query.Filters,
		Pagination: query.Pagination,
		Sort:       query.Sort,
	}
	var resp metricsResponse
	if err := c.do(ctx, http.MethodPost, "/metrics/query", req, &resp); err != nil {
		return nil, err
	}
	return resp.toRows(), nil
}

// FetchConnections lists the platform connections of tenantID.
func (c *HTTPClient) FetchConnections(ctx context.Context, tenantID string) ([]reports.Connection, error) {
	var resp connectionsResponse
	path := "/tenants/" + url.PathEscape(tenantID) + "/connections"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Connections, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, target any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("analytics: encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("analytics: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("analytics: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("analytics: remote error %d: %s", resp.StatusCode, buf.String())
	}
	if target == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("analytics: decode response: %w", err)
	}
	return nil
}

type metricsRequest struct {
	BrandID    string              `json:"brandId"`
	Range      reports.Bounds      `json:"range"`
	Dimensions []reports.Dimension `json:"dimensions"`
	Metrics    []string            `json:"metrics"`
	Filters    []reports.Filter    `json:"filters"`
	Pagination *reports.Pagination `json:"pagination,omitempty"`
	Sort       *reports.Sort       `json:"sort,omitempty"`
}

type metricsResponse struct {
	Rows []map[string]any `json:"rows"`
}

func (r metricsResponse) toRows() []reports.Row {
	rows := make([]reports.Row, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = reports.Row(row)
	}
	return rows
}

type connectionsResponse struct {
	Connections []reports.Connection `json:"connections"`
}
