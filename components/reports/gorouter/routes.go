package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-reports/components/reports"
	"github.com/goliatone/go-reports/components/reports/commands"
	"github.com/goliatone/go-reports/components/reports/httpapi"
	"github.com/goliatone/go-reports/components/reports/queries"
)

// TenantResolver extracts the tenant scope of a request.
type TenantResolver func(router.Context) string

// Config wires go-router with the report commands and queries.
type Config[T any] struct {
	Router         router.Router[T]
	Handlers       *httpapi.Handlers
	TenantResolver TenantResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for report endpoints.
type RouteConfig struct {
	Validate  string
	PieSeries string
	Render    string
	Health    string
	Drafts    string
	Publish   string
}

// Register mounts the report endpoints on a go-router router. Routes whose
// command or query is nil are skipped.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Handlers == nil {
		return errors.New("gorouter: handlers are required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/reports"
	}
	tenant := cfg.TenantResolver
	if tenant == nil {
		tenant = defaultTenantResolver
	}
	h := cfg.Handlers
	group := cfg.Router.Group(base)

	if h.Validate != nil {
		group.Post(routes.Validate, router.WrapHandler(func(ctx router.Context) error {
			var payload map[string]any
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil || payload == nil {
				return respondError(ctx, http.StatusBadRequest, errors.New("body must be a JSON object"))
			}
			query, err := h.Validate.Query(ctx.Context(), payload)
			if err != nil {
				return fail(ctx, h, err)
			}
			return ctx.JSON(http.StatusOK, query)
		}))
	}

	if h.PieSeries != nil {
		group.Post(routes.PieSeries, router.WrapHandler(func(ctx router.Context) error {
			var req reports.PieSeriesRequest
			if err := json.Unmarshal(ctx.Body(), &req); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			slices, err := h.PieSeries.Query(ctx.Context(), req)
			if err != nil {
				return fail(ctx, h, err)
			}
			return ctx.JSON(http.StatusOK, map[string]any{"slices": slices})
		}))
	}

	if h.Render != nil {
		group.Post(routes.Render, router.WrapHandler(func(ctx router.Context) error {
			var req reports.RenderWidgetRequest
			if err := json.Unmarshal(ctx.Body(), &req); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			req.TenantID = tenant(ctx)
			data, err := h.Render.Query(ctx.Context(), req)
			if err != nil {
				return fail(ctx, h, err)
			}
			return ctx.JSON(http.StatusOK, data)
		}))
	}

	if h.Health != nil {
		group.Get(routes.Health, router.WrapHandler(func(ctx router.Context) error {
			result, err := h.Health.Query(ctx.Context(), queries.DashboardHealthInput{
				TenantID:    tenant(ctx),
				DashboardID: ctx.Param("id"),
			})
			if err != nil {
				return fail(ctx, h, err)
			}
			return ctx.JSON(http.StatusOK, result)
		}))
	}

	if h.SaveDraft != nil {
		group.Post(routes.Drafts, router.WrapHandler(func(ctx router.Context) error {
			var body struct {
				Tree reports.WidgetTree `json:"tree"`
			}
			if err := json.Unmarshal(ctx.Body(), &body); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			var version reports.DashboardVersion
			err := h.SaveDraft.Execute(ctx.Context(), commands.SaveDraftInput{
				SaveDraftRequest: reports.SaveDraftRequest{
					TenantID:    tenant(ctx),
					DashboardID: ctx.Param("id"),
					Tree:        body.Tree,
				},
				Version: &version,
			})
			if err != nil {
				return fail(ctx, h, err)
			}
			return ctx.JSON(http.StatusCreated, version)
		}))
	}

	if h.Publish != nil {
		group.Post(routes.Publish, router.WrapHandler(func(ctx router.Context) error {
			var body struct {
				VersionID string `json:"versionId"`
			}
			if err := json.Unmarshal(ctx.Body(), &body); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			err := h.Publish.Execute(ctx.Context(), commands.PublishVersionInput{
				TenantID:    tenant(ctx),
				DashboardID: ctx.Param("id"),
				VersionID:   body.VersionID,
			})
			if err != nil {
				return fail(ctx, h, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "published", "versionId": body.VersionID})
		}))
	}

	return nil
}

// defaultTenantResolver prefers a tenant set by upstream middleware and falls
// back to the tenant header. The request body is never consulted.
func defaultTenantResolver(ctx router.Context) string {
	if tenant, ok := ctx.Locals("tenant_id").(string); ok && tenant != "" {
		return tenant
	}
	return strings.TrimSpace(ctx.Header(httpapi.TenantHeader))
}

func fail(ctx router.Context, h *httpapi.Handlers, err error) error {
	status, body := httpapi.ErrorResponse(err)
	h.LogFailure(ctx.Path(), status, err)
	return ctx.JSON(status, body)
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Validate == "" {
		routes.Validate = "/metrics/validate"
	}
	if routes.PieSeries == "" {
		routes.PieSeries = "/series/pie"
	}
	if routes.Render == "" {
		routes.Render = "/widgets/render"
	}
	if routes.Health == "" {
		routes.Health = "/dashboards/:id/health"
	}
	if routes.Drafts == "" {
		routes.Drafts = "/dashboards/:id/drafts"
	}
	if routes.Publish == "" {
		routes.Publish = "/dashboards/:id/publish"
	}
	return routes
}
