package consolidation

import "github.com/ordercraft/fulfillment-core/internal/orders"

// Plan is the caller-approved merge set.
type Plan struct {
	OrderIDs      []string `json:"order_ids"`
	DiscountCents int64    `json:"discount_amount"`
}

// Eligible is the single predicate shared by candidate listing and execute:
// anything a listing returns must still pass here at execute time. An order
// qualifies only while it is unconsolidated, pre-shipment, and not in a
// terminal business status.
func Eligible(o orders.Order) bool {
	if o.ConsolidationID != nil {
		return false
	}
	// shipped is not terminal but already left the warehouse, so it is
	// excluded here on top of the terminal shipping states
	if orders.TerminalShipping(o.ShippingStatus) || o.ShippingStatus == orders.ShipShipped {
		return false
	}
	return !orders.TerminalStatus(o.Status)
}

// ValidateShape rejects malformed plans before any transaction is opened:
// fewer than two members, duplicate or empty ids, negative discount.
func ValidateShape(customerID string, plan Plan) error {
	if customerID == "" {
		return orders.E(orders.KindValidation, "customer_id is required")
	}
	if len(plan.OrderIDs) < 2 {
		return orders.E(orders.KindValidation, "consolidation requires at least 2 orders, got %d", len(plan.OrderIDs))
	}
	if plan.DiscountCents < 0 {
		return orders.E(orders.KindValidation, "discount_amount must not be negative")
	}
	seen := make(map[string]bool, len(plan.OrderIDs))
	for _, id := range plan.OrderIDs {
		if id == "" {
			return orders.E(orders.KindValidation, "order_ids must not contain empty ids")
		}
		if seen[id] {
			return orders.E(orders.KindValidation, "duplicate order id %s in plan", id)
		}
		seen[id] = true
	}
	return nil
}

// ValidatePlan re-checks every member against the eligibility predicate.
// fetched holds the orders loaded (under lock) for the plan's ids; a missing
// id means the order does not exist.
func ValidatePlan(customerID string, plan Plan, fetched []orders.Order) error {
	if err := ValidateShape(customerID, plan); err != nil {
		return err
	}

	byID := make(map[string]orders.Order, len(fetched))
	for _, o := range fetched {
		byID[o.ID] = o
	}
	for _, id := range plan.OrderIDs {
		o, ok := byID[id]
		if !ok {
			return orders.E(orders.KindNotFound, "order %s not found", id)
		}
		if o.CustomerID != customerID {
			return orders.E(orders.KindConsolidationConflict,
				"order %s belongs to another customer", id)
		}
		if !Eligible(o) {
			return orders.E(orders.KindConsolidationConflict,
				"order %s is no longer eligible for consolidation", id)
		}
	}
	return nil
}

// CombinedTotal sums the member totals minus the discount, floored at zero.
// Member orders keep their own total_amount untouched.
func CombinedTotal(members []orders.Order, discountCents int64) int64 {
	var total int64
	for _, o := range members {
		total += o.TotalCents
	}
	total -= discountCents
	if total < 0 {
		total = 0
	}
	return total
}
