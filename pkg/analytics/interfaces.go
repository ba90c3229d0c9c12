package analytics

import (
	"context"

	"github.com/goliatone/go-reports/components/reports"
)

// MetricsClient fetches aggregated metric rows from the upstream analytics backend.
type MetricsClient interface {
	FetchMetrics(ctx context.Context, query reports.MetricsQuery, bounds reports.Bounds) ([]reports.Row, error)
}

// ConnectionClient lists the ad platform connections of a tenant.
type ConnectionClient interface {
	FetchConnections(ctx context.Context, tenantID string) ([]reports.Connection, error)
}

// Client is a convenience union for backends that implement every analytics call.
type Client interface {
	MetricsClient
	ConnectionClient
}
