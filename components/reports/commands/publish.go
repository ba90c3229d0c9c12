package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// PublishVersionInput selects the version served for a dashboard.
type PublishVersionInput struct {
	TenantID    string `json:"tenantId"`
	DashboardID string `json:"dashboardId"`
	VersionID   string `json:"versionId"`
}

type publishService interface {
	Publish(ctx context.Context, tenantID, dashboardID, versionID string) error
}

// PublishVersionCommand marks a version as published.
type PublishVersionCommand struct {
	service   publishService
	telemetry Telemetry
}

// NewPublishVersionCommand creates the command.
func NewPublishVersionCommand(service publishService, telemetry Telemetry) *PublishVersionCommand {
	return &PublishVersionCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[PublishVersionInput] = (*PublishVersionCommand)(nil)

// Execute delegates to the reports service.
func (c *PublishVersionCommand) Execute(ctx context.Context, msg PublishVersionInput) error {
	if c.service == nil {
		return errors.New("publish command requires service")
	}
	if msg.VersionID == "" {
		return errors.New("publish command requires version id")
	}
	if err := c.service.Publish(ctx, msg.TenantID, msg.DashboardID, msg.VersionID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "reports.command.publish", map[string]any{
		"dashboard_id": msg.DashboardID,
		"version_id":   msg.VersionID,
	})
	return nil
}
