// Package postgres persists dashboards, versions and connections in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Schema creates the tables used by the stores. Version trees are JSONB.
const Schema = `
CREATE TABLE IF NOT EXISTS report_dashboards (
	id                   TEXT NOT NULL,
	tenant_id            TEXT NOT NULL,
	brand_id             TEXT NOT NULL,
	name                 TEXT NOT NULL DEFAULT '',
	published_version_id TEXT,
	PRIMARY KEY (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS report_dashboard_versions (
	id           TEXT PRIMARY KEY,
	dashboard_id TEXT NOT NULL,
	tenant_id    TEXT NOT NULL,
	number       INTEGER NOT NULL,
	tree         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (tenant_id, dashboard_id, number)
);

CREATE TABLE IF NOT EXISTS report_connections (
	tenant_id TEXT NOT NULL,
	platform  TEXT NOT NULL,
	status    TEXT NOT NULL,
	PRIMARY KEY (tenant_id, platform)
);
`

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open database: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}
	return db, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}
