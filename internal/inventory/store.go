package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ordercraft/fulfillment-core/internal/orders"
)

// PGStore persists the ledger in postgres. Balances are never stored as a
// mutable column; the latest entry's resulting_balance is the balance.
type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) CurrentBalances(ctx context.Context, variantIDs []string) (map[string]int64, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT DISTINCT ON (product_variation_id) product_variation_id, resulting_balance
		FROM inventory_ledger
		WHERE product_variation_id = ANY($1)
		ORDER BY product_variation_id, seq DESC`, variantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64, len(variantIDs))
	for rows.Next() {
		var id string
		var bal int64
		if err := rows.Scan(&id, &bal); err != nil {
			return nil, err
		}
		out[id] = bal
	}
	return out, rows.Err()
}

// AppendAdjustment locks the variant row, re-reads the latest balance and
// appends the entry inside one transaction. Two concurrent decrements that
// would jointly oversell serialize on the row lock; the loser fails with
// INSUFFICIENT_STOCK and writes nothing.
func (s *PGStore) AppendAdjustment(ctx context.Context, entry LedgerEntry) (LedgerEntry, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return LedgerEntry{}, err
	}
	defer tx.Rollback(ctx)

	var variantID string
	err = tx.QueryRow(ctx, `SELECT id FROM product_variations WHERE id=$1 FOR UPDATE`,
		entry.ProductVariationID).Scan(&variantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return LedgerEntry{}, orders.E(orders.KindNotFound, "product variation %s not found", entry.ProductVariationID)
	}
	if err != nil {
		return LedgerEntry{}, err
	}

	// latest by seq, not created_at: now() is frozen at transaction start, so
	// the transaction that acquires the variant lock second can still carry
	// the older timestamp. seq is assigned under the lock and follows commit
	// order per variant.
	var balance int64
	err = tx.QueryRow(ctx, `
		SELECT resulting_balance FROM inventory_ledger
		WHERE product_variation_id=$1
		ORDER BY seq DESC LIMIT 1`, entry.ProductVariationID).Scan(&balance)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return LedgerEntry{}, err
	}

	if entry.ChangeType == ChangeIncrease {
		balance += entry.Quantity
	} else {
		balance -= entry.Quantity
	}
	if balance < 0 {
		return LedgerEntry{}, orders.E(orders.KindInsufficientStock,
			"insufficient stock for variation %s: balance %d, requested -%d",
			entry.ProductVariationID, balance+entry.Quantity, entry.Quantity)
	}
	entry.ResultingBalance = balance

	err = tx.QueryRow(ctx, `
		INSERT INTO inventory_ledger
			(id, product_variation_id, change_type, quantity, reason, reference_id, resulting_balance)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING seq, created_at`,
		entry.ID, entry.ProductVariationID, entry.ChangeType, entry.Quantity,
		entry.Reason, entry.ReferenceID, entry.ResultingBalance,
	).Scan(&entry.Seq, &entry.CreatedAt)
	if err != nil {
		return LedgerEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

func (s *PGStore) StockLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT v.id, v.sku, v.name,
		       COALESCE(l.resulting_balance, 0),
		       COALESCE(l.created_at, v.created_at)
		FROM product_variations v
		LEFT JOIN LATERAL (
			SELECT resulting_balance, created_at FROM inventory_ledger
			WHERE product_variation_id = v.id
			ORDER BY seq DESC LIMIT 1
		) l ON true
		ORDER BY v.sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StockLevel
	for rows.Next() {
		var lv StockLevel
		if err := rows.Scan(&lv.ProductVariationID, &lv.SKU, &lv.Name, &lv.Balance, &lv.LastChangeAt); err != nil {
			return nil, err
		}
		out = append(out, lv)
	}
	return out, rows.Err()
}

func (s *PGStore) History(ctx context.Context, variantID string, limit int) ([]LedgerEntry, error) {
	var exists bool
	if err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM product_variations WHERE id=$1)`,
		variantID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, orders.E(orders.KindNotFound, "product variation %s not found", variantID)
	}

	rows, err := s.DB.Query(ctx, `
		SELECT seq, id, product_variation_id, change_type, quantity, reason, reference_id, resulting_balance, created_at
		FROM inventory_ledger
		WHERE product_variation_id=$1
		ORDER BY seq DESC
		LIMIT $2`, variantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PGStore) EntriesBetween(ctx context.Context, from, to time.Time) ([]LedgerEntry, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT seq, id, product_variation_id, change_type, quantity, reason, reference_id, resulting_balance, created_at
		FROM inventory_ledger
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY seq`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.Seq, &e.ID, &e.ProductVariationID, &e.ChangeType, &e.Quantity,
			&e.Reason, &e.ReferenceID, &e.ResultingBalance, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
