package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidArgument marks requests missing a required identifier.
	ErrInvalidArgument = errors.New("reports: invalid argument")

	errInvalidTenant    = fmt.Errorf("%w: tenant id is required", ErrInvalidArgument)
	errInvalidDashboard = fmt.Errorf("%w: dashboard id is required", ErrInvalidArgument)
	errInvalidVersion   = fmt.Errorf("%w: version id is required", ErrInvalidArgument)
)

// Options configures the reports Service. Collaborators are interfaces so hosts
// can swap storage and the analytics backend without touching the core.
type Options struct {
	Dashboards  DashboardStore
	Connections ConnectionStore
	Rows        RowsRepository
	Validator   *QueryValidator
	Renderer    *PieChartRenderer
	Telemetry   Telemetry
	Logger      *zap.Logger
	Clock       func() time.Time
}

// Service orchestrates query validation, health checks, drafts and widget renders.
type Service struct {
	opts     Options
	resolver DateRangeResolver
	logger   *zap.Logger
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Validator == nil {
		opts.Validator = defaultQueryValidator
	}
	if opts.Renderer == nil {
		opts.Renderer = NewPieChartRenderer(WithRenderCache(NewChartCache(5 * time.Minute)))
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Service{
		opts:     opts,
		resolver: DateRangeResolver{Now: opts.Clock},
		logger:   opts.Logger.Named("reports"),
	}
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

// ValidateQuery validates a raw analytics query.
func (s *Service) ValidateQuery(ctx context.Context, payload map[string]any) (MetricsQuery, FieldErrors) {
	query, errs := s.opts.Validator.Validate(payload)
	s.recordTelemetry(ctx, "reports.query.validate", map[string]any{
		"valid":  len(errs) == 0,
		"errors": len(errs),
	})
	return query, errs
}

// DashboardHealth evaluates the published version of a dashboard against the
// tenant connections.
func (s *Service) DashboardHealth(ctx context.Context, tenantID, dashboardID string) (HealthResult, error) {
	if tenantID == "" {
		return HealthResult{}, errInvalidTenant
	}
	if dashboardID == "" {
		return HealthResult{}, errInvalidDashboard
	}
	if s.opts.Dashboards == nil {
		return HealthResult{}, errMissingDashboardStore
	}
	if s.opts.Connections == nil {
		return HealthResult{}, errMissingConnectionStore
	}
	dashboard, err := s.opts.Dashboards.Dashboard(ctx, tenantID, dashboardID)
	if err != nil {
		return HealthResult{}, err
	}
	connections, err := s.opts.Connections.Connections(ctx, tenantID)
	if err != nil {
		return HealthResult{}, fmt.Errorf("reports: list connections: %w", err)
	}
	result := EvaluateHealth(dashboard, connections)
	if result.Status != HealthOK {
		s.logger.Info("dashboard health degraded",
			zap.String("dashboard_id", dashboardID),
			zap.String("status", string(result.Status)),
			zap.Strings("missing_platforms", result.MissingPlatforms),
		)
	}
	s.recordTelemetry(ctx, "reports.health.evaluate", map[string]any{
		"dashboard_id": dashboardID,
		"status":       string(result.Status),
	})
	return result, nil
}

// SaveDraftRequest carries an edited widget tree.
type SaveDraftRequest struct {
	TenantID    string     `json:"tenantId"`
	DashboardID string     `json:"dashboardId"`
	Tree        WidgetTree `json:"tree"`
}

// SaveDraft validates every widget query and stores the tree as a new version.
// Validation failures are returned as FieldErrors keyed widgets.<id>.
func (s *Service) SaveDraft(ctx context.Context, req SaveDraftRequest) (DashboardVersion, error) {
	if req.TenantID == "" {
		return DashboardVersion{}, errInvalidTenant
	}
	if req.DashboardID == "" {
		return DashboardVersion{}, errInvalidDashboard
	}
	if s.opts.Dashboards == nil {
		return DashboardVersion{}, errMissingDashboardStore
	}
	tree, errs := s.normalizeTree(req.Tree)
	if len(errs) > 0 {
		s.recordTelemetry(ctx, "reports.draft.rejected", map[string]any{
			"dashboard_id": req.DashboardID,
			"errors":       len(errs),
		})
		return DashboardVersion{}, errs
	}
	version, err := s.opts.Dashboards.SaveVersion(ctx, DashboardVersion{
		ID:          uuid.NewString(),
		DashboardID: req.DashboardID,
		TenantID:    req.TenantID,
		Tree:        tree,
		CreatedAt:   s.opts.Clock().UTC(),
	})
	if err != nil {
		return DashboardVersion{}, err
	}
	s.logger.Debug("draft saved",
		zap.String("dashboard_id", req.DashboardID),
		zap.String("version_id", version.ID),
		zap.Int("number", version.Number),
	)
	s.recordTelemetry(ctx, "reports.draft.save", map[string]any{
		"dashboard_id": req.DashboardID,
		"version_id":   version.ID,
	})
	return version, nil
}

func (s *Service) normalizeTree(tree WidgetTree) (WidgetTree, FieldErrors) {
	var errs FieldErrors
	seen := map[string]bool{}
	check := func(w Widget) Widget {
		prefix := "widgets." + w.ID
		switch {
		case w.ID == "":
			errs = append(errs, FieldError{Path: "widgets", Message: "widget id is required"})
			return w
		case seen[w.ID]:
			errs = append(errs, FieldError{Path: prefix, Message: "duplicate widget id"})
			return w
		}
		seen[w.ID] = true
		w = clampWidget(w)
		if w.Type == WidgetText {
			w.Query = nil
			return w
		}
		if w.Query == nil {
			errs = append(errs, FieldError{Path: prefix + ".query", Message: "query is required"})
			return w
		}
		query, qerrs := s.opts.Validator.ValidateQuery(*w.Query)
		if len(qerrs) > 0 {
			errs = append(errs, qerrs.Prefixed(prefix)...)
			return w
		}
		w.Query = &query
		return w
	}
	out := WidgetTree{}
	for _, page := range tree.Pages {
		p := Page{ID: page.ID, Title: page.Title, Widgets: make([]Widget, 0, len(page.Widgets))}
		for _, w := range page.Widgets {
			p.Widgets = append(p.Widgets, check(w))
		}
		out.Pages = append(out.Pages, p)
	}
	for _, w := range tree.Widgets {
		out.Widgets = append(out.Widgets, check(w))
	}
	return out, errs
}

// Publish makes versionID the served version of a dashboard.
func (s *Service) Publish(ctx context.Context, tenantID, dashboardID, versionID string) error {
	if tenantID == "" {
		return errInvalidTenant
	}
	if dashboardID == "" {
		return errInvalidDashboard
	}
	if versionID == "" {
		return errInvalidVersion
	}
	if s.opts.Dashboards == nil {
		return errMissingDashboardStore
	}
	if err := s.opts.Dashboards.Publish(ctx, tenantID, dashboardID, versionID); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "reports.dashboard.publish", map[string]any{
		"dashboard_id": dashboardID,
		"version_id":   versionID,
	})
	return nil
}

// RenderWidgetRequest identifies the widget to render. Widget, when set, is
// rendered as given; otherwise it is looked up in the published version.
type RenderWidgetRequest struct {
	TenantID    string     `json:"tenantId"`
	DashboardID string     `json:"dashboardId"`
	WidgetID    string     `json:"widgetId"`
	Widget      *Widget    `json:"widget,omitempty"`
	DateRange   *DateRange `json:"dateRange,omitempty"`
}

// RenderWidget resolves dates, validates the widget query, fetches rows and
// shapes them for display. Pie and donut widgets are aggregated into slices
// and rendered to chart HTML.
func (s *Service) RenderWidget(ctx context.Context, req RenderWidgetRequest) (WidgetData, error) {
	widget, err := s.lookupWidget(ctx, req)
	if err != nil {
		return nil, err
	}
	data := WidgetData{
		"widgetId": widget.ID,
		"type":     string(widget.Type),
		"title":    widget.Title,
	}
	if widget.Query == nil {
		return data, nil
	}
	if s.opts.Rows == nil {
		return nil, errMissingRowsRepository
	}

	raw := *widget.Query
	if req.DateRange != nil {
		raw.DateRange = *req.DateRange
	}
	query, errs := s.opts.Validator.ValidateQuery(raw)
	if len(errs) > 0 {
		return nil, errs
	}
	bounds, err := s.resolver.Resolve(query.DateRange)
	if err != nil {
		return nil, err
	}
	rows, err := s.opts.Rows.FetchRows(ctx, query, bounds)
	if err != nil {
		s.logger.Warn("fetch rows failed", zap.String("widget_id", widget.ID), zap.Error(err))
		return nil, fmt.Errorf("reports: fetch rows for widget %s: %w", widget.ID, err)
	}
	data["range"] = bounds

	if query.CompareTo != nil {
		cmp, err := ComparisonRange(bounds, query.CompareTo.Mode)
		if err != nil {
			return nil, err
		}
		cmpRows, err := s.opts.Rows.FetchRows(ctx, query, cmp)
		if err != nil {
			return nil, fmt.Errorf("reports: fetch comparison rows for widget %s: %w", widget.ID, err)
		}
		data["comparisonRange"] = cmp
		data["comparisonRows"] = cmpRows
	}

	switch widget.Type {
	case WidgetPie, WidgetDonut:
		if err := s.renderPie(widget, query, rows, data); err != nil {
			return nil, err
		}
	default:
		data["rows"] = rows
	}

	s.recordTelemetry(ctx, "reports.widget.render", map[string]any{
		"widget_id": widget.ID,
		"type":      string(widget.Type),
		"rows":      len(rows),
	})
	return data, nil
}

func (s *Service) renderPie(widget Widget, query MetricsQuery, rows []Row, data WidgetData) error {
	dimension := ""
	if len(query.Dimensions) > 0 {
		dimension = string(query.Dimensions[0])
	}
	slices := AggregatePieSeries(rows, dimension, query.Metrics[0], PieOptionsFromViz(widget.Viz))
	data["slices"] = slices
	if len(slices) == 0 {
		data["empty"] = true
		return nil
	}
	html, err := s.opts.Renderer.Render(widget, slices)
	if err != nil {
		return err
	}
	data["chart_html"] = html
	return nil
}

func (s *Service) lookupWidget(ctx context.Context, req RenderWidgetRequest) (Widget, error) {
	if req.Widget != nil {
		return *req.Widget, nil
	}
	if req.TenantID == "" {
		return Widget{}, errInvalidTenant
	}
	if req.DashboardID == "" {
		return Widget{}, errInvalidDashboard
	}
	if s.opts.Dashboards == nil {
		return Widget{}, errMissingDashboardStore
	}
	dashboard, err := s.opts.Dashboards.Dashboard(ctx, req.TenantID, req.DashboardID)
	if err != nil {
		return Widget{}, err
	}
	if dashboard.Published == nil {
		return Widget{}, fmt.Errorf("%w: %s", ErrVersionNotFound, req.DashboardID)
	}
	for _, w := range dashboard.Published.Tree.Flatten() {
		if w.ID == req.WidgetID {
			return w, nil
		}
	}
	return Widget{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, req.WidgetID)
}

// PieSeriesRequest aggregates already fetched rows. Nil Options means defaults.
type PieSeriesRequest struct {
	Rows      []Row             `json:"rows"`
	Dimension string            `json:"dimension"`
	Metric    string            `json:"metric"`
	Options   *PieSeriesOptions `json:"options,omitempty"`
}

// PieSeries buckets rows into top-N slices.
func (s *Service) PieSeries(ctx context.Context, req PieSeriesRequest) ([]PieSlice, error) {
	if req.Metric == "" {
		return nil, FieldErrors{{Path: "metric", Message: "metric is required"}}
	}
	opts := DefaultPieSeriesOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	slices := AggregatePieSeries(req.Rows, req.Dimension, req.Metric, opts)
	s.recordTelemetry(ctx, "reports.pie.aggregate", map[string]any{
		"rows":   len(req.Rows),
		"slices": len(slices),
	})
	return slices, nil
}
