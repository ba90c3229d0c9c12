package analytics

import (
	"context"

	"github.com/goliatone/go-reports/components/reports"
)

// NewRowsRepository adapts an analytics client into the report rows repository.
func NewRowsRepository(client MetricsClient) reports.RowsRepository {
	return &rowsRepository{client: client}
}

type rowsRepository struct {
	client MetricsClient
}

func (r *rowsRepository) FetchRows(ctx context.Context, query reports.MetricsQuery, bounds reports.Bounds) ([]reports.Row, error) {
	return r.client.FetchMetrics(ctx, query, bounds)
}

// NewConnectionStore exposes tenant connections from the analytics backend.
func NewConnectionStore(client ConnectionClient) reports.ConnectionStore {
	return &connectionStore{client: client}
}

type connectionStore struct {
	client ConnectionClient
}

func (s *connectionStore) Connections(ctx context.Context, tenantID string) ([]reports.Connection, error) {
	return s.client.FetchConnections(ctx, tenantID)
}
