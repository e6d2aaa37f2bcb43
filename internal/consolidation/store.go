package consolidation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ordercraft/fulfillment-core/internal/orders"
)

type PGStore struct{ DB *pgxpool.Pool }

const eligibleWhere = `
	customer_id = $1
	AND consolidation_id IS NULL
	AND shipping_status NOT IN ('shipped','delivered','cancelled')
	AND status NOT IN ('cancelled','refunded','failed')`

const orderCols = `id, customer_id, status, payment_status, shipping_status,
	total_cents, currency, consolidation_id, created_at, updated_at`

func (s *PGStore) EligibleOrders(ctx context.Context, customerID string, from, to *time.Time) ([]orders.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE ` + eligibleWhere
	args := []any{customerID}
	if from != nil {
		args = append(args, *from)
		q += ` AND created_at >= $2`
	}
	if to != nil {
		args = append(args, *to)
		if from != nil {
			q += ` AND created_at < $3`
		} else {
			q += ` AND created_at < $2`
		}
	}
	q += ` ORDER BY created_at`

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// ExecutePlan is the one multi-row transaction in the core. Member rows are
// locked in a deterministic order, the eligibility predicate is re-applied
// under those locks, and the consolidated insert plus every member update
// commit together or not at all. A concurrent overlapping plan serializes on
// the row locks and fails re-validation once the first one commits.
func (s *PGStore) ExecutePlan(ctx context.Context, customerID string, plan Plan) (orders.ConsolidatedOrder, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return orders.ConsolidatedOrder{}, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		plan.OrderIDs)
	if err != nil {
		return orders.ConsolidatedOrder{}, err
	}
	fetched, err := scanOrders(rows)
	if err != nil {
		return orders.ConsolidatedOrder{}, err
	}

	if err := ValidatePlan(customerID, plan, fetched); err != nil {
		return orders.ConsolidatedOrder{}, err
	}

	byID := make(map[string]orders.Order, len(fetched))
	for _, o := range fetched {
		byID[o.ID] = o
	}
	members := make([]orders.Order, 0, len(plan.OrderIDs))
	for _, id := range plan.OrderIDs {
		members = append(members, byID[id])
	}

	co := orders.ConsolidatedOrder{
		ID:             uuid.NewString(),
		CustomerID:     customerID,
		MemberOrderIDs: plan.OrderIDs,
		CombinedCents:  CombinedTotal(members, plan.DiscountCents),
		Status:         orders.ConsolidationActive,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO consolidated_orders (id, customer_id, member_order_ids, combined_cents, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		co.ID, co.CustomerID, co.MemberOrderIDs, co.CombinedCents, co.Status,
	).Scan(&co.CreatedAt)
	if err != nil {
		return orders.ConsolidatedOrder{}, err
	}

	// member orders keep their own total_amount and item rows; consolidation
	// only groups them behind the back-reference
	ct, err := tx.Exec(ctx,
		`UPDATE orders SET consolidation_id=$1, updated_at=now() WHERE id = ANY($2)`,
		co.ID, plan.OrderIDs)
	if err != nil {
		return orders.ConsolidatedOrder{}, err
	}
	if int(ct.RowsAffected()) != len(plan.OrderIDs) {
		return orders.ConsolidatedOrder{}, orders.E(orders.KindConsolidationConflict,
			"expected to update %d orders, updated %d", len(plan.OrderIDs), ct.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return orders.ConsolidatedOrder{}, err
	}
	return co, nil
}

func (s *PGStore) Details(ctx context.Context, consolidatedID string) (Details, error) {
	var d Details
	var memberIDs []string
	err := s.DB.QueryRow(ctx, `
		SELECT id, customer_id, member_order_ids, combined_cents, status, created_at
		FROM consolidated_orders WHERE id=$1`, consolidatedID,
	).Scan(&d.ID, &d.CustomerID, &memberIDs, &d.CombinedCents, &d.Status, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Details{}, orders.E(orders.KindNotFound, "consolidated order %s not found", consolidatedID)
	}
	if err != nil {
		return Details{}, err
	}

	rows, err := s.DB.Query(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = ANY($1)`, memberIDs)
	if err != nil {
		return Details{}, err
	}
	members, err := scanOrders(rows)
	if err != nil {
		return Details{}, err
	}

	itemRows, err := s.DB.Query(ctx, `
		SELECT id, order_id, product_variation_id, qty, unit_price_cents, line_total_cents
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, id`, memberIDs)
	if err != nil {
		return Details{}, err
	}
	defer itemRows.Close()

	itemsByOrder := map[string][]orders.OrderItem{}
	for itemRows.Next() {
		var it orders.OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductVariationID,
			&it.Qty, &it.UnitPriceCents, &it.LineTotalCents); err != nil {
			return Details{}, err
		}
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
	}
	if err := itemRows.Err(); err != nil {
		return Details{}, err
	}

	byID := make(map[string]orders.Order, len(members))
	for _, o := range members {
		byID[o.ID] = o
	}
	d.MemberOrders = make([]MemberOrder, 0, len(memberIDs))
	for _, id := range memberIDs {
		o, ok := byID[id]
		if !ok {
			continue
		}
		d.MemberOrders = append(d.MemberOrders, MemberOrder{
			OrderSummary: o.Summary(),
			Items:        itemsByOrder[id],
		})
	}
	return d, nil
}

func scanOrders(rows pgx.Rows) ([]orders.Order, error) {
	defer rows.Close()
	var out []orders.Order
	for rows.Next() {
		var o orders.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.PaymentStatus, &o.ShippingStatus,
			&o.TotalCents, &o.Currency, &o.ConsolidationID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
