package redisx

import "time"

const (
	// Shipping status cache: ship_status:{order_id} -> {"shipping_status": "...", "updated_at": "..."}
	KeyShippingStatus = "ship_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
