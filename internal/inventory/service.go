package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ordercraft/fulfillment-core/internal/kafka"
	"github.com/ordercraft/fulfillment-core/internal/orders"
)

const (
	DefaultLowStockThreshold = 5
	MaxLowStockThreshold     = 100
	defaultHistoryLimit      = 50
	maxHistoryLimit          = 200
)

// Store is the persistence boundary for the ledger. AppendAdjustment must
// perform the balance check and the entry insert atomically with respect to
// other adjustments on the same variant.
type Store interface {
	CurrentBalances(ctx context.Context, variantIDs []string) (map[string]int64, error)
	AppendAdjustment(ctx context.Context, entry LedgerEntry) (LedgerEntry, error)
	StockLevels(ctx context.Context) ([]StockLevel, error)
	History(ctx context.Context, variantID string, limit int) ([]LedgerEntry, error)
	EntriesBetween(ctx context.Context, from, to time.Time) ([]LedgerEntry, error)
}

// Publisher is the fire-and-forget event sink (see internal/kafka.Producer).
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store    Store
	Events   Publisher
	Producer string // event producer name
	Log      zerolog.Logger
}

type AdjustRequest struct {
	ProductVariationID string
	Delta              int64 // signed; sign selects change_type
	Reason             string
	ReferenceID        string
}

type AdjustResult struct {
	ProductVariationID string `json:"product_variation_id"`
	QuantityAdjusted   int64  `json:"quantity_adjusted"`
	Reason             string `json:"reason"`
	ReferenceID        string `json:"reference_id,omitempty"`
	NewBalance         int64  `json:"new_balance"`
}

// Adjust appends one ledger entry. Validation happens before any write; the
// underflow check rides inside the store's transaction so concurrent
// decrements on one variant can never jointly oversell.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (AdjustResult, error) {
	if req.ProductVariationID == "" {
		return AdjustResult{}, orders.E(orders.KindValidation, "product_variation_id is required")
	}
	if req.Delta == 0 {
		return AdjustResult{}, orders.E(orders.KindValidation, "quantity must be non-zero")
	}
	reason, ok := ParseReason(req.Reason)
	if !ok || !Adjustable(reason) {
		return AdjustResult{}, orders.E(orders.KindValidation, "unknown adjustment reason %q", req.Reason)
	}

	entry := LedgerEntry{
		ID:                 uuid.NewString(),
		ProductVariationID: req.ProductVariationID,
		ChangeType:         ChangeIncrease,
		Quantity:           req.Delta,
		Reason:             reason,
		ReferenceID:        req.ReferenceID,
	}
	if req.Delta < 0 {
		entry.ChangeType = ChangeDecrease
		entry.Quantity = -req.Delta
	}

	written, err := s.Store.AppendAdjustment(ctx, entry)
	if err != nil {
		return AdjustResult{}, err
	}

	s.publishAdjusted(written, req.Delta)
	s.Log.Info().
		Str("variant", written.ProductVariationID).
		Int64("delta", req.Delta).
		Int64("balance", written.ResultingBalance).
		Str("reason", string(reason)).
		Msg("stock adjusted")

	return AdjustResult{
		ProductVariationID: written.ProductVariationID,
		QuantityAdjusted:   req.Delta,
		Reason:             string(reason),
		ReferenceID:        written.ReferenceID,
		NewBalance:         written.ResultingBalance,
	}, nil
}

// CheckAvailability is advisory only: it does not reserve stock. The
// authoritative check is Adjust's in-transaction balance guard.
func (s *Service) CheckAvailability(ctx context.Context, items []CheckItem) ([]Availability, CheckMeta, error) {
	if len(items) == 0 {
		return nil, CheckMeta{}, orders.E(orders.KindValidation, "items must not be empty")
	}
	ids := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, it := range items {
		if it.ProductVariationID == "" {
			return nil, CheckMeta{}, orders.E(orders.KindValidation, "product_variation_id is required")
		}
		if it.Quantity <= 0 {
			return nil, CheckMeta{}, orders.E(orders.KindValidation, "quantity must be positive for variant %s", it.ProductVariationID)
		}
		if !seen[it.ProductVariationID] {
			seen[it.ProductVariationID] = true
			ids = append(ids, it.ProductVariationID)
		}
	}

	balances, err := s.Store.CurrentBalances(ctx, ids)
	if err != nil {
		return nil, CheckMeta{}, err
	}

	out := make([]Availability, 0, len(items))
	meta := CheckMeta{TotalItems: len(items)}
	for _, it := range items {
		bal := balances[it.ProductVariationID]
		a := Availability{
			ProductVariationID: it.ProductVariationID,
			Available:          bal >= it.Quantity,
			CurrentBalance:     bal,
			RequestedQty:       it.Quantity,
		}
		if a.Available {
			meta.AvailableItems++
		} else {
			meta.UnavailableItems++
		}
		out = append(out, a)
	}
	return out, meta, nil
}

// LowStock lists variants with 0 < balance <= threshold. Defaulting an
// absent threshold is the handler's job; by the time it reaches here the
// value must be in range, so an explicit 0 fails validation.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]StockLevel, error) {
	if threshold < 1 || threshold > MaxLowStockThreshold {
		return nil, orders.E(orders.KindValidation, "threshold must be between 1 and %d", MaxLowStockThreshold)
	}
	levels, err := s.Store.StockLevels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StockLevel, 0)
	for _, lv := range levels {
		if lv.Balance > 0 && lv.Balance <= threshold {
			out = append(out, lv)
		}
	}
	return out, nil
}

func (s *Service) OutOfStock(ctx context.Context) ([]StockLevel, error) {
	levels, err := s.Store.StockLevels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StockLevel, 0)
	for _, lv := range levels {
		if lv.Balance == 0 {
			out = append(out, lv)
		}
	}
	return out, nil
}

func (s *Service) History(ctx context.Context, variantID string, limit int) ([]LedgerEntry, error) {
	if variantID == "" {
		return nil, orders.E(orders.KindValidation, "product_variation_id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.Store.History(ctx, variantID, limit)
}

func (s *Service) Report(ctx context.Context, period string) (Report, error) {
	from, to, err := ParsePeriod(period, time.Now().UTC())
	if err != nil {
		return Report{}, err
	}
	entries, err := s.Store.EntriesBetween(ctx, from, to)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(from, to, entries), nil
}

func (s *Service) publishAdjusted(e LedgerEntry, delta int64) {
	if s.Events == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockAdjusted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Producer,
		CorrelationID: e.ProductVariationID,
		Payload: kafkax.MustMarshal(orders.StockAdjustedPayload{
			ProductVariationID: e.ProductVariationID,
			Delta:              delta,
			Reason:             string(e.Reason),
			ReferenceID:        e.ReferenceID,
			NewBalance:         e.ResultingBalance,
		}),
	}
	s.Events.Publish(orders.PartitionKey(e.ProductVariationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockAdjusted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
