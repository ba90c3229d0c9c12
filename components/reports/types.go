package reports

import (
	"context"
	"encoding/json"
	"time"
)

// DashboardStore loads and persists dashboards and their versions.
// Implementations scope every lookup by tenant.
type DashboardStore interface {
	Dashboard(ctx context.Context, tenantID, dashboardID string) (Dashboard, error)
	SaveVersion(ctx context.Context, version DashboardVersion) (DashboardVersion, error)
	Publish(ctx context.Context, tenantID, dashboardID, versionID string) error
}

// ConnectionStore lists the integration connections a tenant owns.
type ConnectionStore interface {
	Connections(ctx context.Context, tenantID string) ([]Connection, error)
}

// RowsRepository fetches metric rows for a validated query from the analytics backend.
type RowsRepository interface {
	FetchRows(ctx context.Context, query MetricsQuery, bounds Bounds) ([]Row, error)
}

// WidgetType enumerates the supported widget visualizations.
type WidgetType string

const (
	WidgetKPI        WidgetType = "kpi"
	WidgetTimeseries WidgetType = "timeseries"
	WidgetBar        WidgetType = "bar"
	WidgetTable      WidgetType = "table"
	WidgetPie        WidgetType = "pie"
	WidgetDonut      WidgetType = "donut"
	WidgetText       WidgetType = "text"
)

// RequiresDimension reports whether the widget type groups by at least one dimension.
func (t WidgetType) RequiresDimension() bool {
	switch t {
	case WidgetTimeseries, WidgetBar, WidgetTable, WidgetPie, WidgetDonut:
		return true
	}
	return false
}

// WidgetLayout is a widget rectangle on the dashboard grid.
type WidgetLayout struct {
	X    int `json:"x" yaml:"x"`
	Y    int `json:"y" yaml:"y"`
	W    int `json:"w" yaml:"w"`
	H    int `json:"h" yaml:"h"`
	MinW int `json:"minW,omitempty" yaml:"minW,omitempty"`
	MinH int `json:"minH,omitempty" yaml:"minH,omitempty"`
}

// Widget is one tile of a dashboard version.
type Widget struct {
	ID     string         `json:"id" yaml:"id"`
	Type   WidgetType     `json:"type" yaml:"type"`
	Title  string         `json:"title,omitempty" yaml:"title,omitempty"`
	Query  *MetricsQuery  `json:"query,omitempty" yaml:"query,omitempty"`
	Layout WidgetLayout   `json:"layout" yaml:"layout"`
	Viz    map[string]any `json:"viz,omitempty" yaml:"viz,omitempty"`
}

// Page groups widgets inside a multi-page dashboard version.
type Page struct {
	ID      string   `json:"id,omitempty" yaml:"id,omitempty"`
	Title   string   `json:"title,omitempty" yaml:"title,omitempty"`
	Widgets []Widget `json:"widgets" yaml:"widgets"`
}

// WidgetTree is the widget collection of a version. Older versions store a flat
// widget list, newer ones nest widgets under pages; both decode into the same tree.
type WidgetTree struct {
	Pages   []Page   `json:"pages,omitempty" yaml:"pages,omitempty"`
	Widgets []Widget `json:"widgets,omitempty" yaml:"widgets,omitempty"`
}

// Flatten returns every widget of the tree, page widgets first.
func (t WidgetTree) Flatten() []Widget {
	var out []Widget
	for _, page := range t.Pages {
		out = append(out, page.Widgets...)
	}
	out = append(out, t.Widgets...)
	return out
}

// UnmarshalJSON accepts a bare widget array as well as the object forms.
func (t *WidgetTree) UnmarshalJSON(data []byte) error {
	var list []Widget
	if err := json.Unmarshal(data, &list); err == nil {
		*t = WidgetTree{Widgets: list}
		return nil
	}
	type plain WidgetTree
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*t = WidgetTree(decoded)
	return nil
}

// DashboardVersion is an immutable snapshot of a dashboard layout.
type DashboardVersion struct {
	ID          string     `json:"id" yaml:"id"`
	DashboardID string     `json:"dashboardId" yaml:"dashboardId"`
	TenantID    string     `json:"tenantId,omitempty" yaml:"tenantId,omitempty"`
	Number      int        `json:"number" yaml:"number"`
	Tree        WidgetTree `json:"tree" yaml:"tree"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
}

// Dashboard is a tenant and brand scoped arrangement of widgets.
type Dashboard struct {
	ID                 string            `json:"id" yaml:"id"`
	TenantID           string            `json:"tenantId" yaml:"tenantId"`
	BrandID            string            `json:"brandId" yaml:"brandId"`
	Name               string            `json:"name" yaml:"name"`
	PublishedVersionID string            `json:"publishedVersionId,omitempty" yaml:"publishedVersionId,omitempty"`
	Published          *DashboardVersion `json:"published,omitempty" yaml:"published,omitempty"`
}

// ConnectionStatus is the lifecycle state of an integration connection.
type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "CONNECTED"
	ConnectionDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionError        ConnectionStatus = "ERROR"
)

// Connection links a tenant to an external ad or analytics platform.
type Connection struct {
	Platform string           `json:"platform" yaml:"platform"`
	Status   ConnectionStatus `json:"status" yaml:"status"`
}

// Row is one flat record returned by the analytics backend.
type Row map[string]any

// WidgetData is the payload handed to the UI for one widget render.
type WidgetData map[string]any
