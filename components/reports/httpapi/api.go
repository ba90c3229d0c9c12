package httpapi

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-reports/components/reports"
	"github.com/goliatone/go-reports/components/reports/commands"
	"github.com/goliatone/go-reports/components/reports/queries"
	"go.uber.org/zap"
)

// TenantHeader carries the tenant scope of every request.
const TenantHeader = "X-Tenant-ID"

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Validate  gocommand.Querier[map[string]any, reports.MetricsQuery]
	Health    gocommand.Querier[queries.DashboardHealthInput, reports.HealthResult]
	Render    gocommand.Querier[reports.RenderWidgetRequest, reports.WidgetData]
	PieSeries gocommand.Querier[reports.PieSeriesRequest, []reports.PieSlice]
	SaveDraft gocommand.Commander[commands.SaveDraftInput]
	Publish   gocommand.Commander[commands.PublishVersionInput]
	Logger    *zap.Logger
}

// Register mounts the report routes on router.
func (h *Handlers) Register(router fiber.Router) {
	group := router.Group("/reports")
	group.Post("/metrics/validate", h.HandleValidateQuery)
	group.Post("/series/pie", h.HandlePieSeries)
	group.Post("/widgets/render", h.HandleRenderWidget)
	group.Get("/dashboards/:id/health", h.HandleDashboardHealth)
	group.Post("/dashboards/:id/drafts", h.HandleSaveDraft)
	group.Post("/dashboards/:id/publish", h.HandlePublish)
}

// HandleValidateQuery answers 200 with the normalized query or 422 with every violation.
func (h *Handlers) HandleValidateQuery(c *fiber.Ctx) error {
	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil || payload == nil {
		return h.badRequest(c, "body must be a JSON object")
	}
	query, err := h.Validate.Query(c.UserContext(), payload)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(query)
}

func (h *Handlers) HandlePieSeries(c *fiber.Ctx) error {
	var req reports.PieSeriesRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, err.Error())
	}
	slices, err := h.PieSeries.Query(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"slices": slices})
}

func (h *Handlers) HandleRenderWidget(c *fiber.Ctx) error {
	var req reports.RenderWidgetRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badRequest(c, err.Error())
	}
	req.TenantID = c.Get(TenantHeader)
	data, err := h.Render.Query(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(data)
}

func (h *Handlers) HandleDashboardHealth(c *fiber.Ctx) error {
	result, err := h.Health.Query(c.UserContext(), queries.DashboardHealthInput{
		TenantID:    c.Get(TenantHeader),
		DashboardID: c.Params("id"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

func (h *Handlers) HandleSaveDraft(c *fiber.Ctx) error {
	var body struct {
		Tree reports.WidgetTree `json:"tree"`
	}
	if err := c.BodyParser(&body); err != nil {
		return h.badRequest(c, err.Error())
	}
	var version reports.DashboardVersion
	err := h.SaveDraft.Execute(c.UserContext(), commands.SaveDraftInput{
		SaveDraftRequest: reports.SaveDraftRequest{
			TenantID:    c.Get(TenantHeader),
			DashboardID: c.Params("id"),
			Tree:        body.Tree,
		},
		Version: &version,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(version)
}

func (h *Handlers) HandlePublish(c *fiber.Ctx) error {
	var body struct {
		VersionID string `json:"versionId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return h.badRequest(c, err.Error())
	}
	err := h.Publish.Execute(c.UserContext(), commands.PublishVersionInput{
		TenantID:    c.Get(TenantHeader),
		DashboardID: c.Params("id"),
		VersionID:   body.VersionID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// ErrorResponse maps a service error onto a status code and JSON body.
func ErrorResponse(err error) (int, map[string]any) {
	if fieldErrs, ok := reports.AsFieldErrors(err); ok {
		return fiber.StatusUnprocessableEntity, map[string]any{"errors": fieldErrs}
	}
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, reports.ErrDashboardNotFound),
		errors.Is(err, reports.ErrVersionNotFound),
		errors.Is(err, reports.ErrWidgetNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, reports.ErrInvalidArgument):
		status = fiber.StatusBadRequest
	}
	return status, map[string]any{"error": err.Error()}
}

// LogFailure records errors that map onto a server error.
func (h *Handlers) LogFailure(path string, status int, err error) {
	if status >= fiber.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error("report request failed",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	status, body := ErrorResponse(err)
	h.LogFailure(c.Path(), status, err)
	return c.Status(status).JSON(body)
}
