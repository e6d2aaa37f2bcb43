package orders

// Status is the business-level order lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusFailed     Status = "failed"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentFailed            PaymentStatus = "failed"
	PaymentPartiallyPaid     PaymentStatus = "partially_paid"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// ShippingStatus is the logistics lifecycle governed by the transition table
// below. shipped/delivered/cancelled are forward-only: there is no re-entry
// into pending once an order has left the warehouse.
type ShippingStatus string

const (
	ShipPending    ShippingStatus = "pending"
	ShipProcessing ShippingStatus = "processing"
	ShipShipped    ShippingStatus = "shipped"
	ShipDelivered  ShippingStatus = "delivered"
	ShipOnHold     ShippingStatus = "on_hold"
	ShipCancelled  ShippingStatus = "cancelled"
)

// shippingOrder fixes the vocabulary ordering exposed by the API.
var shippingOrder = []ShippingStatus{
	ShipPending, ShipProcessing, ShipShipped, ShipDelivered, ShipOnHold, ShipCancelled,
}

var shippingLabels = map[ShippingStatus]string{
	ShipPending:    "Pending",
	ShipProcessing: "Processing",
	ShipShipped:    "Shipped",
	ShipDelivered:  "Delivered",
	ShipOnHold:     "On Hold",
	ShipCancelled:  "Cancelled",
}

var validNext = map[ShippingStatus]map[ShippingStatus]bool{
	ShipPending:    {ShipProcessing: true, ShipOnHold: true, ShipCancelled: true},
	ShipProcessing: {ShipShipped: true, ShipOnHold: true, ShipCancelled: true},
	ShipOnHold:     {ShipPending: true, ShipProcessing: true, ShipCancelled: true},
	ShipShipped:    {ShipDelivered: true, ShipCancelled: true},
	ShipDelivered:  {},
	ShipCancelled:  {},
}

func CanTransition(from, to ShippingStatus) bool {
	return validNext[from][to]
}

// AvailableTransitions returns the successor set in vocabulary order; empty
// for terminal states.
func AvailableTransitions(from ShippingStatus) []ShippingStatus {
	next := validNext[from]
	out := make([]ShippingStatus, 0, len(next))
	for _, s := range shippingOrder {
		if next[s] {
			out = append(out, s)
		}
	}
	return out
}

type StatusInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func AllShippingStatuses() []StatusInfo {
	out := make([]StatusInfo, 0, len(shippingOrder))
	for _, s := range shippingOrder {
		out = append(out, StatusInfo{Key: string(s), Label: shippingLabels[s]})
	}
	return out
}

func ParseShippingStatus(s string) (ShippingStatus, bool) {
	st := ShippingStatus(s)
	_, ok := shippingLabels[st]
	return st, ok
}

// TerminalShipping reports whether the status has no outgoing transitions.
func TerminalShipping(s ShippingStatus) bool {
	return len(validNext[s]) == 0
}

// TerminalStatus reports whether the business status ends the order's life.
func TerminalStatus(s Status) bool {
	return s == StatusCancelled || s == StatusRefunded || s == StatusFailed
}
