// Package reports re-exports the report service for hosts embedding it.
package reports

import (
	core "github.com/goliatone/go-reports/components/reports"
)

// Service exposes the underlying components/reports.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// NewInMemoryService builds a Service over in-memory stores seeded with
// dashboards, for demos and host tests.
func NewInMemoryService(rows core.RowsRepository, seed ...core.Dashboard) (*Service, *core.InMemoryConnectionStore) {
	conns := core.NewInMemoryConnectionStore()
	return core.NewService(Options{
		Dashboards:  core.NewInMemoryDashboardStore(seed...),
		Connections: conns,
		Rows:        rows,
	}), conns
}
