package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Schema creates the run history tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id UUID PRIMARY KEY,
	target TEXT NOT NULL,
	driver VARCHAR(32) NOT NULL,
	keyword TEXT NOT NULL,
	status VARCHAR(16) NOT NULL,
	state VARCHAR(32) NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

CREATE TABLE IF NOT EXISTS run_steps (
	run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	name VARCHAR(64) NOT NULL,
	status VARCHAR(16) NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);
`

// RunMigrations creates the run history tables
func RunMigrations(ctx context.Context, db *sql.DB, logger logrus.FieldLogger) error {
	if db == nil {
		return fmt.Errorf("database connection not initialized")
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create run tables: %w", err)
	}

	logger.Debug("Database migrations completed successfully")
	return nil
}
