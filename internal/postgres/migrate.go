package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate bootstraps the schema at startup. Statements are idempotent so
// every binary can run them unconditionally.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS product_variations (
			id         TEXT PRIMARY KEY,
			sku        TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id               TEXT PRIMARY KEY,
			customer_id      TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'pending',
			payment_status   TEXT NOT NULL DEFAULT 'pending',
			shipping_status  TEXT NOT NULL DEFAULT 'pending',
			total_cents      BIGINT NOT NULL DEFAULT 0,
			currency         TEXT NOT NULL DEFAULT 'USD',
			consolidation_id TEXT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_consolidation ON orders (consolidation_id)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id                   TEXT PRIMARY KEY,
			order_id             TEXT NOT NULL REFERENCES orders(id),
			product_variation_id TEXT NOT NULL REFERENCES product_variations(id),
			qty                  INT NOT NULL CHECK (qty > 0),
			unit_price_cents     BIGINT NOT NULL,
			line_total_cents     BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
		`CREATE TABLE IF NOT EXISTS inventory_ledger (
			seq                  BIGSERIAL UNIQUE,
			id                   TEXT PRIMARY KEY,
			product_variation_id TEXT NOT NULL REFERENCES product_variations(id),
			change_type          TEXT NOT NULL CHECK (change_type IN ('increase','decrease')),
			quantity             BIGINT NOT NULL CHECK (quantity > 0),
			reason               TEXT NOT NULL,
			reference_id         TEXT NOT NULL DEFAULT '',
			resulting_balance    BIGINT NOT NULL CHECK (resulting_balance >= 0),
			created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_variant_seq
			ON inventory_ledger (product_variation_id, seq DESC)`,
		`CREATE TABLE IF NOT EXISTS shipping_status_log (
			id          BIGSERIAL PRIMARY KEY,
			order_id    TEXT NOT NULL REFERENCES orders(id),
			from_status TEXT NOT NULL,
			to_status   TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_status_log_created ON shipping_status_log (created_at)`,
		`CREATE TABLE IF NOT EXISTS consolidated_orders (
			id               TEXT PRIMARY KEY,
			customer_id      TEXT NOT NULL,
			member_order_ids TEXT[] NOT NULL,
			combined_cents   BIGINT NOT NULL CHECK (combined_cents >= 0),
			status           TEXT NOT NULL DEFAULT 'active',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_consolidated_customer ON consolidated_orders (customer_id)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
