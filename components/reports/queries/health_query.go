package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	reports "github.com/goliatone/go-reports/components/reports"
)

// DashboardHealthInput identifies a tenant dashboard.
type DashboardHealthInput struct {
	TenantID    string `json:"tenantId"`
	DashboardID string `json:"dashboardId"`
}

type healthService interface {
	DashboardHealth(ctx context.Context, tenantID, dashboardID string) (reports.HealthResult, error)
}

// DashboardHealthQuery evaluates the published version of a dashboard.
type DashboardHealthQuery struct {
	service healthService
}

// NewDashboardHealthQuery builds the query.
func NewDashboardHealthQuery(service healthService) *DashboardHealthQuery {
	return &DashboardHealthQuery{service: service}
}

var _ gocommand.Querier[DashboardHealthInput, reports.HealthResult] = (*DashboardHealthQuery)(nil)

// Query returns the BLOCKED/WARN/OK verdict.
func (q *DashboardHealthQuery) Query(ctx context.Context, input DashboardHealthInput) (reports.HealthResult, error) {
	return q.service.DashboardHealth(ctx, input.TenantID, input.DashboardID)
}
