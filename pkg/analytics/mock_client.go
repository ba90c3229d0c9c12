package analytics

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-reports/components/reports"
)

// MockData seeds deterministic analytics responses for tests or local demos.
type MockData struct {
	Rows        []reports.Row
	Connections map[string][]reports.Connection
}

// MockClient implements Client using in-memory fixtures.
type MockClient struct {
	data MockData
	mu   sync.RWMutex
}

// NewMockClient builds a mock analytics client from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	return &MockClient{data: data}
}

// FetchMetrics returns fixture rows that match the query's eq/in filters.
// Filters on columns absent from a row are ignored.
func (c *MockClient) FetchMetrics(_ context.Context, query reports.MetricsQuery, _ reports.Bounds) ([]reports.Row, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]reports.Row, 0, len(c.data.Rows))
	for _, row := range c.data.Rows {
		if matchesFilters(row, query.Filters) {
			out = append(out, cloneRow(row))
		}
	}
	return out, nil
}

// FetchConnections returns the configured connections for tenantID.
func (c *MockClient) FetchConnections(_ context.Context, tenantID string) ([]reports.Connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]reports.Connection(nil), c.data.Connections[tenantID]...), nil
}

// SetRows swaps the fixture rows.
func (c *MockClient) SetRows(rows []reports.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Rows = rows
}

func matchesFilters(row reports.Row, filters []reports.Filter) bool {
	for _, f := range filters {
		raw, ok := row[string(f.Field)]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}
		if !containsFold(f.Value.Values(), value) {
			return false
		}
	}
	return true
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

func cloneRow(row reports.Row) reports.Row {
	out := make(reports.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
