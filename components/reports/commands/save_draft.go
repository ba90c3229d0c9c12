package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	reports "github.com/goliatone/go-reports/components/reports"
)

// SaveDraftInput carries an edited widget tree. Version, when non-nil, receives
// the stored version.
type SaveDraftInput struct {
	reports.SaveDraftRequest
	Version *reports.DashboardVersion `json:"-"`
}

type draftService interface {
	SaveDraft(ctx context.Context, req reports.SaveDraftRequest) (reports.DashboardVersion, error)
}

// SaveDraftCommand validates and stores a draft dashboard version.
type SaveDraftCommand struct {
	service   draftService
	telemetry Telemetry
}

// NewSaveDraftCommand creates the command.
func NewSaveDraftCommand(service draftService, telemetry Telemetry) *SaveDraftCommand {
	return &SaveDraftCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveDraftInput] = (*SaveDraftCommand)(nil)

// Execute delegates to the reports service.
func (c *SaveDraftCommand) Execute(ctx context.Context, msg SaveDraftInput) error {
	if c.service == nil {
		return errors.New("save draft command requires service")
	}
	version, err := c.service.SaveDraft(ctx, msg.SaveDraftRequest)
	if err != nil {
		return err
	}
	if msg.Version != nil {
		*msg.Version = version
	}
	c.telemetry.Record(ctx, "reports.command.save_draft", map[string]any{
		"dashboard_id": msg.DashboardID,
		"version_id":   version.ID,
		"widgets":      len(version.Tree.Flatten()),
	})
	return nil
}
