package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	reports "github.com/goliatone/go-reports/components/reports"
)

type validateService interface {
	ValidateQuery(ctx context.Context, payload map[string]any) (reports.MetricsQuery, reports.FieldErrors)
}

// ValidateQueryQuery normalizes a raw analytics query. Violations are returned
// as reports.FieldErrors.
type ValidateQueryQuery struct {
	service validateService
}

// NewValidateQueryQuery builds the query.
func NewValidateQueryQuery(service validateService) *ValidateQueryQuery {
	return &ValidateQueryQuery{service: service}
}

var _ gocommand.Querier[map[string]any, reports.MetricsQuery] = (*ValidateQueryQuery)(nil)

func (q *ValidateQueryQuery) Query(ctx context.Context, payload map[string]any) (reports.MetricsQuery, error) {
	query, errs := q.service.ValidateQuery(ctx, payload)
	if len(errs) > 0 {
		return reports.MetricsQuery{}, errs
	}
	return query, nil
}
