package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ordercraft/fulfillment-core/internal/orders"
)

type PGStore struct{ DB *pgxpool.Pool }

// ApplyTransition validates against the transition table while holding the
// order's row lock, so concurrent moves on one order serialize.
func (s *PGStore) ApplyTransition(ctx context.Context, orderID string, target orders.ShippingStatus, reason string) (orders.ShippingStatus, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT shipping_status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", orders.E(orders.KindNotFound, "order %s not found", orderID)
	}
	if err != nil {
		return "", err
	}

	from := orders.ShippingStatus(current)
	if !orders.CanTransition(from, target) {
		return "", orders.E(orders.KindInvalidTransition,
			"cannot move order %s from %s to %s", orderID, from, target)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET shipping_status=$2, updated_at=now() WHERE id=$1`,
		orderID, target); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO shipping_status_log (order_id, from_status, to_status, reason)
		VALUES ($1,$2,$3,$4)`, orderID, from, target, reason); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return from, nil
}

func (s *PGStore) StatusCounts(ctx context.Context, from, to time.Time) (map[orders.ShippingStatus]int, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT shipping_status, COUNT(*)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY shipping_status`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[orders.ShippingStatus]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[orders.ShippingStatus(st)] = n
	}
	return out, rows.Err()
}
