package orders

const (
	TopicShippingStatusChanged = "order.shipping.status-changed"
	TopicOrdersConsolidated    = "order.consolidated"
	TopicStockAdjusted         = "inventory.stock.adjusted"
)

// Partition key = order_id so every event for one order keeps its ordering.
func PartitionKey(id string) []byte { return []byte(id) }
