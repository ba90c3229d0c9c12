package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-reports/components/reports"
	"github.com/goliatone/go-reports/components/reports/commands"
	"github.com/goliatone/go-reports/components/reports/queries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brandID = "3f2b8c9a-1d4e-4b7a-9c2f-5e6d7a8b9c0d"

type stubRows struct{}

func (stubRows) FetchRows(context.Context, reports.MetricsQuery, reports.Bounds) ([]reports.Row, error) {
	return []reports.Row{
		{"platform": "META_ADS", "spend": 3},
		{"platform": "GOOGLE_ADS", "spend": 1},
	}, nil
}

func newTestApp(t *testing.T) (*fiber.App, *reports.InMemoryDashboardStore) {
	t.Helper()
	store := reports.NewInMemoryDashboardStore(reports.Dashboard{
		ID:       "dash-1",
		TenantID: "tenant-1",
		BrandID:  brandID,
		Published: &reports.DashboardVersion{
			ID:     "v1",
			Number: 1,
			Tree: reports.WidgetTree{Widgets: []reports.Widget{{
				ID:   "split",
				Type: reports.WidgetPie,
				Query: &reports.MetricsQuery{
					BrandID:    brandID,
					DateRange:  reports.DateRange{Preset: reports.PresetCustom, Start: "2024-01-01", End: "2024-01-31"},
					Dimensions: []reports.Dimension{reports.DimensionPlatform},
					Metrics:    []string{"spend"},
					Filters: []reports.Filter{{
						Field: reports.FilterPlatform,
						Op:    reports.OpEq,
						Value: reports.StringValue("META_ADS"),
					}},
				},
			}}},
		},
	})
	svc := reports.NewService(reports.Options{
		Dashboards:  store,
		Connections: reports.NewInMemoryConnectionStore(),
		Rows:        stubRows{},
	})
	handlers := &Handlers{
		Validate:  queries.NewValidateQueryQuery(svc),
		Health:    queries.NewDashboardHealthQuery(svc),
		Render:    queries.NewRenderWidgetQuery(svc),
		PieSeries: queries.NewPieSeriesQuery(svc),
		SaveDraft: commands.NewSaveDraftCommand(svc, nil),
		Publish:   commands.NewPublishVersionCommand(svc, nil),
	}
	app := fiber.New()
	handlers.Register(app)
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	return doJSONAs(t, app, "tenant-1", method, path, body)
}

func doJSONAs(t *testing.T, app *fiber.App, tenant, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(TenantHeader, tenant)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestValidateEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/reports/metrics/validate", map[string]any{
		"brandId":    brandID,
		"dateRange":  map[string]any{"preset": "custom", "start": "2024-01-01", "end": "2024-01-31"},
		"metrics":    []string{"spend"},
		"pagination": map[string]any{"limit": 900},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(500), body["pagination"].(map[string]any)["limit"])

	resp, body = doJSON(t, app, http.MethodPost, "/reports/metrics/validate", map[string]any{
		"dateRange": map[string]any{"preset": "custom", "end": "2024-01-31"},
		"metrics":   []string{"spend"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errs := body["errors"].([]any)
	require.Len(t, errs, 2)
	assert.Equal(t, "brandId", errs[0].(map[string]any)["path"])
	assert.Equal(t, "dateRange.start", errs[1].(map[string]any)["path"])
}

func TestValidateEndpointRejectsNonObjects(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodPost, "/reports/metrics/validate", []string{"x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/reports/dashboards/dash-1/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "BLOCKED", body["status"])
	assert.Equal(t, []any{"META_ADS"}, body["missingPlatforms"])

	resp, _ = doJSON(t, app, http.MethodGet, "/reports/dashboards/nope/health", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenderEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/reports/widgets/render", map[string]any{
		"dashboardId": "dash-1",
		"widgetId":    "split",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slices := body["slices"].([]any)
	require.Len(t, slices, 2)
	assert.Equal(t, "META_ADS", slices[0].(map[string]any)["label"])
	assert.Contains(t, body["chart_html"], "echarts")
	assert.Equal(t, map[string]any{"start": "2024-01-01", "end": "2024-01-31"}, body["range"])

	resp, _ = doJSON(t, app, http.MethodPost, "/reports/widgets/render", map[string]any{
		"dashboardId": "dash-1",
		"widgetId":    "ghost",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPieSeriesEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	rows := make([]map[string]any, 0, 10)
	for _, label := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		rows = append(rows, map[string]any{"campaign_id": label, "clicks": 1})
	}

	resp, body := doJSON(t, app, http.MethodPost, "/reports/series/pie", map[string]any{
		"rows":      rows,
		"dimension": "campaign_id",
		"metric":    "clicks",
		"options":   map[string]any{"topN": 8, "showOthers": true},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slices := body["slices"].([]any)
	require.Len(t, slices, 9)
	others := slices[8].(map[string]any)
	assert.Equal(t, "Outros", others["label"])
	assert.Equal(t, float64(2), others["value"])
}

func TestRenderEndpointTakesTenantFromHeaderOnly(t *testing.T) {
	app, _ := newTestApp(t)
	body := map[string]any{
		"tenantId":    "tenant-1",
		"dashboardId": "dash-1",
		"widgetId":    "split",
	}

	resp, _ := doJSONAs(t, app, "", http.MethodPost, "/reports/widgets/render", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSONAs(t, app, "tenant-2", http.MethodPost, "/reports/widgets/render", body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPieSeriesEndpointPartialOptionsKeepOthers(t *testing.T) {
	app, _ := newTestApp(t)
	rows := []map[string]any{
		{"platform": "A", "spend": 5},
		{"platform": "B", "spend": 4},
		{"platform": "C", "spend": 3},
		{"platform": "D", "spend": 2},
		{"platform": "E", "spend": 1},
	}

	resp, body := doJSON(t, app, http.MethodPost, "/reports/series/pie", map[string]any{
		"rows":      rows,
		"dimension": "platform",
		"metric":    "spend",
		"options":   map[string]any{"topN": 3},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slices := body["slices"].([]any)
	require.Len(t, slices, 4)
	others := slices[3].(map[string]any)
	assert.Equal(t, "Outros", others["label"])
	assert.Equal(t, float64(3), others["value"])
	assert.Equal(t, true, others["others"])
}

func TestDraftAndPublishEndpoints(t *testing.T) {
	app, store := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/reports/dashboards/dash-1/drafts", map[string]any{
		"tree": map[string]any{"widgets": []any{
			map[string]any{"id": "kpi", "type": "kpi", "layout": map[string]any{"w": 3, "h": 2}, "query": map[string]any{
				"brandId":   brandID,
				"dateRange": map[string]any{"preset": "last_30_days"},
				"metrics":   []string{"spend"},
			}},
		}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	versionID, _ := body["id"].(string)
	require.NotEmpty(t, versionID)
	assert.Equal(t, float64(2), body["number"])

	resp, _ = doJSON(t, app, http.MethodPost, "/reports/dashboards/dash-1/publish", map[string]any{"versionId": versionID})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	dashboard, err := store.Dashboard(context.Background(), "tenant-1", "dash-1")
	require.NoError(t, err)
	assert.Equal(t, versionID, dashboard.PublishedVersionID)

	resp, _ = doJSON(t, app, http.MethodPost, "/reports/dashboards/dash-1/publish", map[string]any{"versionId": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDraftEndpointReportsWidgetErrors(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/reports/dashboards/dash-1/drafts", map[string]any{
		"tree": []any{
			map[string]any{"id": "bar", "type": "bar", "query": map[string]any{
				"brandId":   brandID,
				"dateRange": map[string]any{"preset": "custom"},
				"metrics":   []string{"spend"},
			}},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "widgets.bar.dateRange", errs[0].(map[string]any)["path"])
}
