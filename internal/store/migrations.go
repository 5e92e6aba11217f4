package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schema contains the DDL for the audit log.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS outcomes (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id     INTEGER NOT NULL,
		user_id      INTEGER NOT NULL,
		challenge_id TEXT NOT NULL,
		outcome      TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		resolved_at  TEXT NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_outcomes_challenge_id ON outcomes(challenge_id)`,
	`CREATE INDEX IF NOT EXISTS idx_outcomes_group_id ON outcomes(group_id)`,
	`CREATE INDEX IF NOT EXISTS idx_outcomes_outcome ON outcomes(outcome)`,
	`CREATE INDEX IF NOT EXISTS idx_outcomes_group_user ON outcomes(group_id, user_id)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	{
		table:    "outcomes",
		column:   "user_name",
		alterSQL: "ALTER TABLE outcomes ADD COLUMN user_name TEXT NOT NULL DEFAULT ''",
	},
}

// migrate executes all schema DDL statements, then the column additions.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return fmt.Errorf("migrate %s.%s: %w", alter.table, alter.column, err)
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return fmt.Errorf("migrate index on %s.%s: %w", alter.table, alter.column, err)
			}
		}
	}
	return nil
}

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

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
