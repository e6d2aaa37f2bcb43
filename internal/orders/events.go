package orders

import (
	"encoding/json"
	"time"
)

const (
	EventShippingStatusChanged = "ShippingStatusChanged"
	EventOrdersConsolidated    = "OrdersConsolidated"
	EventStockAdjusted         = "StockAdjusted"
)

type Envelope struct {
	EventID       string          `json:"event_id"` // uuid
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload per event ----

type ShippingStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Reason  string `json:"reason,omitempty"`
}

type OrdersConsolidatedPayload struct {
	ConsolidatedOrderID string   `json:"consolidated_order_id"`
	CustomerID          string   `json:"customer_id"`
	MemberOrderIDs      []string `json:"member_order_ids"`
	CombinedCents       int64    `json:"combined_cents"`
}

type StockAdjustedPayload struct {
	ProductVariationID string `json:"product_variation_id"`
	Delta              int64  `json:"delta"`
	Reason             string `json:"reason"`
	ReferenceID        string `json:"reference_id,omitempty"`
	NewBalance         int64  `json:"new_balance"`
}
