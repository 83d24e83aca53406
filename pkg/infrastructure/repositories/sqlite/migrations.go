package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the planned order schema
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		// Dates are stored as YYYY-MM-DD so range predicates compare lexically.
		// Quantities are decimal strings.
		`CREATE TABLE IF NOT EXISTS planned_orders (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			root_product_id TEXT NOT NULL,
			parent_product_id TEXT NOT NULL DEFAULT '',
			quantity TEXT NOT NULL,
			start_date TEXT NOT NULL,
			due_date TEXT NOT NULL,
			replenishment_type TEXT NOT NULL,
			past_due INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_planned_orders_root ON planned_orders(root_product_id, start_date, due_date)`,

		`CREATE INDEX IF NOT EXISTS idx_planned_orders_start ON planned_orders(start_date)`,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
