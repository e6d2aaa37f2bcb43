package consolidation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ordercraft/fulfillment-core/internal/kafka"
	"github.com/ordercraft/fulfillment-core/internal/orders"
)

// Store is the persistence boundary. ExecutePlan must re-validate the plan
// and apply the insert plus every member update inside one transaction.
type Store interface {
	EligibleOrders(ctx context.Context, customerID string, from, to *time.Time) ([]orders.Order, error)
	ExecutePlan(ctx context.Context, customerID string, plan Plan) (orders.ConsolidatedOrder, error)
	Details(ctx context.Context, consolidatedID string) (Details, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store    Store
	Events   Publisher
	Producer string
	Log      zerolog.Logger
}

// Candidates lists a customer's orders that would be accepted by Execute
// right now. Read-only; repeated calls with no intervening writes return the
// same result.
func (s *Service) Candidates(ctx context.Context, customerID string) ([]orders.OrderSummary, error) {
	if customerID == "" {
		return nil, orders.E(orders.KindValidation, "customer_id is required")
	}
	return s.summaries(ctx, customerID, nil, nil)
}

// Opportunities is the candidates view narrowed to an optional date window.
// It applies the exact same eligibility predicate as Candidates.
func (s *Service) Opportunities(ctx context.Context, customerID string, from, to *time.Time) ([]orders.OrderSummary, error) {
	if customerID == "" {
		return nil, orders.E(orders.KindValidation, "customer_id is required")
	}
	if from != nil && to != nil && !to.After(*from) {
		return nil, orders.E(orders.KindValidation, "date_to must be after date_from")
	}
	return s.summaries(ctx, customerID, from, to)
}

func (s *Service) summaries(ctx context.Context, customerID string, from, to *time.Time) ([]orders.OrderSummary, error) {
	eligible, err := s.Store.EligibleOrders(ctx, customerID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]orders.OrderSummary, 0, len(eligible))
	for _, o := range eligible {
		out = append(out, o.Summary())
	}
	return out, nil
}

type ExecuteResult struct {
	ConsolidatedOrderID string `json:"consolidated_order_id"`
	CustomerID          string `json:"customer_id"`
	MergedOrdersCount   int    `json:"merged_orders_count"`
	CombinedCents       int64  `json:"combined_cents"`
}

// Execute merges the planned orders into one consolidated record,
// all-or-nothing. Plan shape is rejected up front; eligibility is
// re-validated inside the store transaction so a member that shipped since
// the candidate listing aborts the whole plan with zero side effects.
func (s *Service) Execute(ctx context.Context, customerID string, plan Plan) (ExecuteResult, error) {
	if err := ValidateShape(customerID, plan); err != nil {
		return ExecuteResult{}, err
	}

	co, err := s.Store.ExecutePlan(ctx, customerID, plan)
	if err != nil {
		return ExecuteResult{}, err
	}

	s.publishConsolidated(co)
	s.Log.Info().
		Str("consolidated", co.ID).
		Str("customer", co.CustomerID).
		Int("members", len(co.MemberOrderIDs)).
		Int64("combined_cents", co.CombinedCents).
		Msg("orders consolidated")

	return ExecuteResult{
		ConsolidatedOrderID: co.ID,
		CustomerID:          co.CustomerID,
		MergedOrdersCount:   len(co.MemberOrderIDs),
		CombinedCents:       co.CombinedCents,
	}, nil
}

// MemberOrder is one constituent order expanded with its items. Items stay
// owned by the member order; the consolidated view just follows the links.
type MemberOrder struct {
	orders.OrderSummary
	Items []orders.OrderItem `json:"items"`
}

type Details struct {
	ID            string        `json:"consolidated_order_id"`
	CustomerID    string        `json:"customer_id"`
	Status        string        `json:"status"`
	CombinedCents int64         `json:"combined_cents"`
	CreatedAt     time.Time     `json:"created_at"`
	MemberOrders  []MemberOrder `json:"member_orders"`
}

func (s *Service) ConsolidatedOrderDetails(ctx context.Context, consolidatedID string) (Details, error) {
	if consolidatedID == "" {
		return Details{}, orders.E(orders.KindValidation, "consolidated order id is required")
	}
	return s.Store.Details(ctx, consolidatedID)
}

func (s *Service) publishConsolidated(co orders.ConsolidatedOrder) {
	if s.Events == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrdersConsolidated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Producer,
		CorrelationID: co.ID,
		Payload: kafkax.MustMarshal(orders.OrdersConsolidatedPayload{
			ConsolidatedOrderID: co.ID,
			CustomerID:          co.CustomerID,
			MemberOrderIDs:      co.MemberOrderIDs,
			CombinedCents:       co.CombinedCents,
		}),
	}
	s.Events.Publish(orders.PartitionKey(co.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrdersConsolidated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
