package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order on every start; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		stock       INTEGER NOT NULL CHECK (stock >= 0),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id          UUID PRIMARY KEY,
		user_id     TEXT NOT NULL,
		total_cents BIGINT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_created_idx ON orders (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id    UUID NOT NULL REFERENCES orders(id),
		line_no     INTEGER NOT NULL,
		product_id  TEXT NOT NULL,
		name        TEXT NOT NULL,
		qty         INTEGER NOT NULL CHECK (qty > 0),
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		PRIMARY KEY (order_id, line_no)
	)`,
}

// Migrate creates the tables used by the catalog and the ledger.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate step %d: %w", i, err)
			}
		}
		return nil
	})
}
