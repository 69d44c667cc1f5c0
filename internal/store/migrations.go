package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all wfkit tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		workflow_name TEXT NOT NULL,
		document_path TEXT NOT NULL,
		submit_dir    TEXT NOT NULL,
		root_wf_uuid  TEXT NOT NULL DEFAULT '',
		wf_uuid       TEXT NOT NULL DEFAULT '',
		user          TEXT NOT NULL DEFAULT '',
		state         TEXT NOT NULL DEFAULT 'PLANNED',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_workflow_name ON runs(workflow_name)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_submit_dir ON runs(submit_dir)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // optional index to create after the column is added
}{
	{
		table:    "runs",
		column:   "percent_done",
		alterSQL: "ALTER TABLE runs ADD COLUMN percent_done REAL NOT NULL DEFAULT 0",
	},
	{
		table:    "runs",
		column:   "planner_version",
		alterSQL: "ALTER TABLE runs ADD COLUMN planner_version TEXT NOT NULL DEFAULT ''",
	},
}

// migrate executes all schema DDL statements, alter migrations and
// post-migration indexes.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}
	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
