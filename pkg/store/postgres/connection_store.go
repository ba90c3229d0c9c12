package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-reports/components/reports"
	"go.uber.org/zap"
)

const selectConnectionsSQL = `SELECT platform, status FROM report_connections WHERE tenant_id = $1 ORDER BY platform`

const upsertConnectionSQL = `
INSERT INTO report_connections (tenant_id, platform, status)
VALUES ($1, $2, $3)
ON CONFLICT (tenant_id, platform) DO UPDATE SET status = EXCLUDED.status`

// ConnectionStore implements reports.ConnectionStore over PostgreSQL.
type ConnectionStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ reports.ConnectionStore = (*ConnectionStore)(nil)

// NewConnectionStore builds a store on db. A nil logger disables logging.
func NewConnectionStore(db *sql.DB, logger *zap.Logger) *ConnectionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionStore{db: db, logger: logger}
}

// Connections lists the tenant's connections ordered by platform.
func (s *ConnectionStore) Connections(ctx context.Context, tenantID string) ([]reports.Connection, error) {
	rows, err := s.db.QueryContext(ctx, selectConnectionsSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list connections: %w", err)
	}
	defer rows.Close()

	out := []reports.Connection{}
	for rows.Next() {
		var conn reports.Connection
		if err := rows.Scan(&conn.Platform, &conn.Status); err != nil {
			return nil, fmt.Errorf("postgres: scan connection: %w", err)
		}
		out = append(out, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate connections: %w", err)
	}
	return out, nil
}

// SetStatus records the status of a platform connection. Platforms are stored upper-case.
func (s *ConnectionStore) SetStatus(ctx context.Context, tenantID, platform string, status reports.ConnectionStatus) error {
	platform = strings.ToUpper(strings.TrimSpace(platform))
	if _, err := s.db.ExecContext(ctx, upsertConnectionSQL, tenantID, platform, string(status)); err != nil {
		return fmt.Errorf("postgres: set connection %s: %w", platform, err)
	}
	s.logger.Info("connection status updated",
		zap.String("tenant_id", tenantID),
		zap.String("platform", platform),
		zap.String("status", string(status)),
	)
	return nil
}
