package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-reports/components/reports"
	"go.uber.org/zap"
)

const selectDashboardSQL = `
SELECT d.id, d.tenant_id, d.brand_id, d.name, d.published_version_id,
       v.id, v.number, v.tree, v.created_at
FROM report_dashboards d
LEFT JOIN report_dashboard_versions v
       ON v.id = d.published_version_id AND v.tenant_id = d.tenant_id
WHERE d.tenant_id = $1 AND d.id = $2`

// insertVersionSQL assigns the next number inside the insert; concurrent drafts
// collide on the (tenant_id, dashboard_id, number) constraint.
const insertVersionSQL = `
INSERT INTO report_dashboard_versions (id, dashboard_id, tenant_id, number, tree, created_at)
SELECT $1, d.id, d.tenant_id,
       COALESCE((SELECT MAX(v.number) FROM report_dashboard_versions v
                 WHERE v.tenant_id = d.tenant_id AND v.dashboard_id = d.id), 0) + 1,
       $4, $5
FROM report_dashboards d
WHERE d.tenant_id = $3 AND d.id = $2
RETURNING number`

const publishSQL = `
UPDATE report_dashboards SET published_version_id = $3
WHERE tenant_id = $1 AND id = $2
  AND EXISTS (SELECT 1 FROM report_dashboard_versions
              WHERE id = $3 AND tenant_id = $1 AND dashboard_id = $2)`

const dashboardExistsSQL = `SELECT EXISTS (SELECT 1 FROM report_dashboards WHERE tenant_id = $1 AND id = $2)`

const upsertDashboardSQL = `
INSERT INTO report_dashboards (id, tenant_id, brand_id, name)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, id) DO UPDATE SET brand_id = EXCLUDED.brand_id, name = EXCLUDED.name`

// DashboardStore implements reports.DashboardStore over PostgreSQL.
type DashboardStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ reports.DashboardStore = (*DashboardStore)(nil)

// NewDashboardStore builds a store on db. A nil logger disables logging.
func NewDashboardStore(db *sql.DB, logger *zap.Logger) *DashboardStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardStore{db: db, logger: logger}
}

// Dashboard loads a dashboard with its published version attached.
func (s *DashboardStore) Dashboard(ctx context.Context, tenantID, dashboardID string) (reports.Dashboard, error) {
	var (
		dashboard   reports.Dashboard
		publishedID sql.NullString
		versionID   sql.NullString
		number      sql.NullInt64
		tree        []byte
		createdAt   sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, selectDashboardSQL, tenantID, dashboardID).Scan(
		&dashboard.ID, &dashboard.TenantID, &dashboard.BrandID, &dashboard.Name, &publishedID,
		&versionID, &number, &tree, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return reports.Dashboard{}, fmt.Errorf("%w: %s", reports.ErrDashboardNotFound, dashboardID)
	}
	if err != nil {
		return reports.Dashboard{}, fmt.Errorf("postgres: load dashboard %s: %w", dashboardID, err)
	}
	dashboard.PublishedVersionID = publishedID.String
	if !versionID.Valid {
		return dashboard, nil
	}

	version := reports.DashboardVersion{
		ID:          versionID.String,
		DashboardID: dashboard.ID,
		TenantID:    dashboard.TenantID,
		Number:      int(number.Int64),
		CreatedAt:   createdAt.Time,
	}
	if err := json.Unmarshal(tree, &version.Tree); err != nil {
		return reports.Dashboard{}, fmt.Errorf("postgres: decode tree of version %s: %w", version.ID, err)
	}
	dashboard.Published = &version
	return dashboard, nil
}

// SaveVersion inserts version with the next number for its dashboard.
func (s *DashboardStore) SaveVersion(ctx context.Context, version reports.DashboardVersion) (reports.DashboardVersion, error) {
	tree, err := json.Marshal(version.Tree)
	if err != nil {
		return reports.DashboardVersion{}, fmt.Errorf("postgres: encode tree: %w", err)
	}
	var number int
	err = s.db.QueryRowContext(ctx, insertVersionSQL,
		version.ID, version.DashboardID, version.TenantID, tree, version.CreatedAt,
	).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return reports.DashboardVersion{}, fmt.Errorf("%w: %s", reports.ErrDashboardNotFound, version.DashboardID)
	}
	if err != nil {
		return reports.DashboardVersion{}, fmt.Errorf("postgres: insert version: %w", err)
	}
	version.Number = number
	s.logger.Debug("dashboard version saved",
		zap.String("tenant_id", version.TenantID),
		zap.String("dashboard_id", version.DashboardID),
		zap.Int("number", number),
	)
	return version, nil
}

// Publish points the dashboard at versionID.
func (s *DashboardStore) Publish(ctx context.Context, tenantID, dashboardID, versionID string) error {
	res, err := s.db.ExecContext(ctx, publishSQL, tenantID, dashboardID, versionID)
	if err != nil {
		return fmt.Errorf("postgres: publish version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: publish version: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, dashboardExistsSQL, tenantID, dashboardID).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: check dashboard: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", reports.ErrDashboardNotFound, dashboardID)
	}
	return fmt.Errorf("%w: %s", reports.ErrVersionNotFound, versionID)
}

// UpsertDashboard creates or renames a dashboard row.
func (s *DashboardStore) UpsertDashboard(ctx context.Context, dashboard reports.Dashboard) error {
	if _, err := s.db.ExecContext(ctx, upsertDashboardSQL,
		dashboard.ID, dashboard.TenantID, dashboard.BrandID, dashboard.Name,
	); err != nil {
		return fmt.Errorf("postgres: upsert dashboard %s: %w", dashboard.ID, err)
	}
	return nil
}
