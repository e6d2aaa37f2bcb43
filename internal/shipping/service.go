package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	kafkax "github.com/ordercraft/fulfillment-core/internal/kafka"
	"github.com/ordercraft/fulfillment-core/internal/orders"
	"github.com/ordercraft/fulfillment-core/internal/redisx"
)

const batchWorkers = 8

// Store applies a validated transition to one order atomically: read current
// status under lock, validate, write, log. Transitions on different orders
// are fully independent.
type Store interface {
	ApplyTransition(ctx context.Context, orderID string, target orders.ShippingStatus, reason string) (orders.ShippingStatus, error)
	StatusCounts(ctx context.Context, from, to time.Time) (map[orders.ShippingStatus]int, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store    Store
	Events   Publisher
	Cache    *redis.Client
	Producer string
	Log      zerolog.Logger
}

func (s *Service) AllStatuses() []orders.StatusInfo {
	return orders.AllShippingStatuses()
}

func (s *Service) AvailableTransitions(current string) ([]orders.ShippingStatus, error) {
	st, ok := orders.ParseShippingStatus(current)
	if !ok {
		return nil, orders.E(orders.KindValidation, "unknown shipping status %q", current)
	}
	return orders.AvailableTransitions(st), nil
}

// Transition moves one order to target. The status-changed event is emitted
// fire-and-forget after commit; delivery failure never rolls the move back.
func (s *Service) Transition(ctx context.Context, orderID, target, reason string) error {
	if orderID == "" {
		return orders.E(orders.KindValidation, "order_id is required")
	}
	to, ok := orders.ParseShippingStatus(target)
	if !ok {
		return orders.E(orders.KindValidation, "unknown shipping status %q", target)
	}

	from, err := s.Store.ApplyTransition(ctx, orderID, to, reason)
	if err != nil {
		return err
	}

	s.publishChanged(ctx, orderID, from, to, reason)
	s.cacheStatus(ctx, orderID, to)
	s.Log.Info().
		Str("order", orderID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("shipping status changed")
	return nil
}

type BatchResult struct {
	OrderID string `json:"order_id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// BatchTransition applies Transition independently per order: one order's
// invalid transition does not abort the others, and there is no batch-level
// atomicity. Results keep the request order.
func (s *Service) BatchTransition(ctx context.Context, orderIDs []string, target, reason string) ([]BatchResult, error) {
	if len(orderIDs) == 0 {
		return nil, orders.E(orders.KindValidation, "order_ids must not be empty")
	}
	if _, ok := orders.ParseShippingStatus(target); !ok {
		return nil, orders.E(orders.KindValidation, "unknown shipping status %q", target)
	}

	results := make([]BatchResult, len(orderIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)
	for i, id := range orderIDs {
		i, id := i, id
		g.Go(func() error {
			res := BatchResult{OrderID: id, OK: true}
			if err := s.Transition(gctx, id, target, reason); err != nil {
				res.OK = false
				if kind := orders.KindOf(err); kind != "" {
					res.Error = string(kind)
				} else {
					res.Error = "INTERNAL"
				}
				res.Message = errMessage(err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; partial failure lives in results
	return results, nil
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Statistics counts orders per shipping status within [from, to).
func (s *Service) Statistics(ctx context.Context, from, to time.Time) ([]StatusCount, error) {
	if !to.After(from) {
		return nil, orders.E(orders.KindValidation, "date_to must be after date_from")
	}
	counts, err := s.Store.StatusCounts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]StatusCount, 0, len(counts))
	for _, info := range orders.AllShippingStatuses() {
		st := orders.ShippingStatus(info.Key)
		out = append(out, StatusCount{Status: info.Key, Count: counts[st]})
	}
	return out, nil
}

func (s *Service) publishChanged(ctx context.Context, orderID string, from, to orders.ShippingStatus, reason string) {
	if s.Events == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventShippingStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Producer,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.ShippingStatusChangedPayload{
			OrderID: orderID,
			From:    string(from),
			To:      string(to),
			Reason:  reason,
		}),
	}
	s.Events.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventShippingStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) cacheStatus(ctx context.Context, orderID string, to orders.ShippingStatus) {
	if s.Cache == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyShippingStatus, orderID)
	body := fmt.Sprintf(`{"shipping_status":%q,"updated_at":%q}`, to, time.Now().UTC().Format(time.RFC3339))
	if err := s.Cache.Set(ctx, key, body, redisx.TTLStatusCache).Err(); err != nil {
		s.Log.Warn().Err(err).Str("order", orderID).Msg("status cache refresh failed")
	}
}

func errMessage(err error) string {
	var e *orders.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
