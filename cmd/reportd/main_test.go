package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/goliatone/go-reports/components/reports"
	"github.com/goliatone/go-reports/components/reports/httpapi"
	"github.com/goliatone/go-reports/pkg/config"
)

func localConfig() *config.Config {
	return &config.Config{Port: "0", LogLevel: "info", LogFormat: "json", ChartTTL: time.Minute, HistoryLimit: 50}
}

func TestAppGraphIsValid(t *testing.T) {
	require.NoError(t, fx.ValidateApp(appOptions()))
}

func TestLocalProvidersFallBackToMemory(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := localConfig()
	log := zap.NewNop()

	out, err := newStores(lc, cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &reports.InMemoryDashboardStore{}, out.Dashboards)
	assert.IsType(t, &reports.InMemoryConnectionStore{}, out.Connections)

	cache, err := newRenderCache(lc, cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &reports.ChartCache{}, cache)

	rows, err := newRowsRepository(cfg, log)
	require.NoError(t, err)
	assert.NotNil(t, rows)
}

func TestAnalyticsBackedConnections(t *testing.T) {
	cfg := localConfig()
	cfg.AnalyticsURL = "http://analytics.invalid"

	out, err := newStores(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, out.Connections)
	assert.IsType(t, &reports.InMemoryDashboardStore{}, out.Dashboards)
}

func TestRoutesServeHealthAndReports(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := localConfig()
	log := zap.NewNop()

	out, err := newStores(lc, cfg, log)
	require.NoError(t, err)
	rows, err := newRowsRepository(cfg, log)
	require.NoError(t, err)
	cache, err := newRenderCache(lc, cfg, log)
	require.NoError(t, err)

	svc := newService(serviceParams{
		Dashboards:  out.Dashboards,
		Connections: out.Connections,
		Rows:        rows,
		Cache:       cache,
		Logger:      log,
	})
	server := newServer(log)
	require.NoError(t, registerRoutes(server, newHandlers(svc, log)))
	app := server.WrappedRouter()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	req := httptest.NewRequest(http.MethodGet, "/reports/dashboards/missing/health", nil)
	req.Header.Set(httpapi.TenantHeader, "acme")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
