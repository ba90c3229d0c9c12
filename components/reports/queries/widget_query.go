package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	reports "github.com/goliatone/go-reports/components/reports"
)

type pieService interface {
	PieSeries(ctx context.Context, req reports.PieSeriesRequest) ([]reports.PieSlice, error)
}

// PieSeriesQuery buckets fetched rows into top-N slices.
type PieSeriesQuery struct {
	service pieService
}

// NewPieSeriesQuery builds the query.
func NewPieSeriesQuery(service pieService) *PieSeriesQuery {
	return &PieSeriesQuery{service: service}
}

var _ gocommand.Querier[reports.PieSeriesRequest, []reports.PieSlice] = (*PieSeriesQuery)(nil)

func (q *PieSeriesQuery) Query(ctx context.Context, req reports.PieSeriesRequest) ([]reports.PieSlice, error) {
	return q.service.PieSeries(ctx, req)
}

type renderService interface {
	RenderWidget(ctx context.Context, req reports.RenderWidgetRequest) (reports.WidgetData, error)
}

// RenderWidgetQuery fetches and shapes the data of one widget.
type RenderWidgetQuery struct {
	service renderService
}

// NewRenderWidgetQuery builds the query.
func NewRenderWidgetQuery(service renderService) *RenderWidgetQuery {
	return &RenderWidgetQuery{service: service}
}

var _ gocommand.Querier[reports.RenderWidgetRequest, reports.WidgetData] = (*RenderWidgetQuery)(nil)

func (q *RenderWidgetQuery) Query(ctx context.Context, req reports.RenderWidgetRequest) (reports.WidgetData, error) {
	return q.service.RenderWidget(ctx, req)
}
