package orders

import "time"

type Order struct {
	ID              string
	CustomerID      string
	Status          Status
	PaymentStatus   PaymentStatus
	ShippingStatus  ShippingStatus
	TotalCents      int64
	Currency        string
	ConsolidationID *string // set once the order is absorbed into a consolidated record
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID                 string `json:"id"`
	OrderID            string `json:"order_id"`
	ProductVariationID string `json:"product_variation_id"`
	Qty                int    `json:"qty"`
	UnitPriceCents     int64  `json:"unit_price_cents"`
	LineTotalCents     int64  `json:"line_total_cents"` // unit_price * qty, captured at write time
}

type ConsolidatedOrder struct {
	ID             string
	CustomerID     string
	MemberOrderIDs []string // ordered, size >= 2
	CombinedCents  int64
	Status         ConsolidationStatus
	CreatedAt      time.Time
}

type ConsolidationStatus string

const (
	ConsolidationActive    ConsolidationStatus = "active"
	ConsolidationCancelled ConsolidationStatus = "cancelled"
)

// OrderSummary is the read shape returned by candidate/opportunity listings.
type OrderSummary struct {
	ID             string    `json:"order_id"`
	CustomerID     string    `json:"customer_id"`
	Status         string    `json:"status"`
	ShippingStatus string    `json:"shipping_status"`
	TotalCents     int64     `json:"total_cents"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
}

func (o Order) Summary() OrderSummary {
	return OrderSummary{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		Status:         string(o.Status),
		ShippingStatus: string(o.ShippingStatus),
		TotalCents:     o.TotalCents,
		Currency:       o.Currency,
		CreatedAt:      o.CreatedAt,
	}
}
