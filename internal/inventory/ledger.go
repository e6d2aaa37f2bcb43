package inventory

import "time"

type ChangeType string

const (
	ChangeIncrease ChangeType = "increase"
	ChangeDecrease ChangeType = "decrease"
)

type Reason string

const (
	ReasonManualAdjustment Reason = "manual_adjustment"
	ReasonRestock          Reason = "restock"
	ReasonDamage           Reason = "damage"
	ReasonExpired          Reason = "expired"
	ReasonCorrection       Reason = "correction"
	ReasonOrderPlaced      Reason = "order_placed"
	ReasonOrderCancelled   Reason = "order_cancelled"
)

var allReasons = map[Reason]bool{
	ReasonManualAdjustment: true,
	ReasonRestock:          true,
	ReasonDamage:           true,
	ReasonExpired:          true,
	ReasonCorrection:       true,
	ReasonOrderPlaced:      true,
	ReasonOrderCancelled:   true,
}

// adjustableReasons is the subset accepted on the public adjust endpoint.
// order_placed / order_cancelled are reserved for the checkout collaborator.
var adjustableReasons = map[Reason]bool{
	ReasonManualAdjustment: true,
	ReasonRestock:          true,
	ReasonDamage:           true,
	ReasonExpired:          true,
	ReasonCorrection:       true,
}

func ParseReason(s string) (Reason, bool) {
	r := Reason(s)
	return r, allReasons[r]
}

func Adjustable(r Reason) bool { return adjustableReasons[r] }

// LedgerEntry is one immutable stock change. The current balance of a variant
// is the resulting_balance of its most recent entry; there is no separately
// mutable counter to drift from the audit trail. Seq is the append order: it
// is assigned at insert time while the variant row lock is held, so per
// variant it is monotonic in commit order, which created_at is not (Postgres
// now() is frozen at transaction start).
type LedgerEntry struct {
	Seq                int64      `json:"-"`
	ID                 string     `json:"id"`
	ProductVariationID string     `json:"product_variation_id"`
	ChangeType         ChangeType `json:"change_type"`
	Quantity           int64      `json:"quantity"` // positive magnitude
	Reason             Reason     `json:"reason"`
	ReferenceID        string     `json:"reference_id,omitempty"`
	ResultingBalance   int64      `json:"resulting_balance"`
	CreatedAt          time.Time  `json:"created_at"`
}

// StockLevel is the derived per-variant view used by low-stock and
// out-of-stock listings.
type StockLevel struct {
	ProductVariationID string    `json:"product_variation_id"`
	SKU                string    `json:"sku"`
	Name               string    `json:"name"`
	Balance            int64     `json:"balance"`
	LastChangeAt       time.Time `json:"last_change_at"`
}

type CheckItem struct {
	ProductVariationID string `json:"product_variation_id"`
	Quantity           int64  `json:"quantity"`
}

type Availability struct {
	ProductVariationID string `json:"product_variation_id"`
	Available          bool   `json:"available"`
	CurrentBalance     int64  `json:"current_balance"`
	RequestedQty       int64  `json:"requested_qty"`
}

type CheckMeta struct {
	TotalItems       int `json:"total_items"`
	AvailableItems   int `json:"available_items"`
	UnavailableItems int `json:"unavailable_items"`
}
