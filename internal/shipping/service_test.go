package shipping

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ordercraft/fulfillment-core/internal/kafka"
	"github.com/ordercraft/fulfillment-core/internal/orders"
)

// memStore mirrors the PGStore contract: validate against the transition
// table while holding the per-order lock.
type memStore struct {
	mu     sync.Mutex
	status map[string]orders.ShippingStatus
	counts map[orders.ShippingStatus]int
}

func (m *memStore) ApplyTransition(_ context.Context, orderID string, target orders.ShippingStatus, _ string) (orders.ShippingStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, ok := m.status[orderID]
	if !ok {
		return "", orders.E(orders.KindNotFound, "order %s not found", orderID)
	}
	if !orders.CanTransition(from, target) {
		return "", orders.E(orders.KindInvalidTransition, "cannot move order %s from %s to %s", orderID, from, target)
	}
	m.status[orderID] = target
	return from, nil
}

func (m *memStore) StatusCounts(_ context.Context, _, _ time.Time) (map[orders.ShippingStatus]int, error) {
	return m.counts, nil
}

type capturedEvent struct {
	key   []byte
	value []byte
}

type memPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *memPublisher) Publish(key, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{key: key, value: value})
}

func newTestService(status map[string]orders.ShippingStatus) (*Service, *memStore, *memPublisher) {
	store := &memStore{status: status}
	pub := &memPublisher{}
	return &Service{Store: store, Events: pub, Producer: "test", Log: zerolog.Nop()}, store, pub
}

func TestTransitionSuccessEmitsEvent(t *testing.T) {
	svc, store, pub := newTestService(map[string]orders.ShippingStatus{"o1": orders.ShipPending})

	err := svc.Transition(context.Background(), "o1", "processing", "picked")
	require.NoError(t, err)
	assert.Equal(t, orders.ShipProcessing, store.status["o1"])

	require.Len(t, pub.events, 1)
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(pub.events[0].value, &env))
	assert.Equal(t, orders.EventShippingStatusChanged, env.EventType)
	assert.Equal(t, "o1", env.CorrelationID)

	p, err := kafkax.UnwrapPayload[orders.ShippingStatusChangedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, orders.ShippingStatusChangedPayload{
		OrderID: "o1", From: "pending", To: "processing", Reason: "picked",
	}, p)
}

func TestTransitionIllegal(t *testing.T) {
	svc, store, pub := newTestService(map[string]orders.ShippingStatus{"o1": orders.ShipPending})

	err := svc.Transition(context.Background(), "o1", "delivered", "")
	require.Error(t, err)
	assert.Equal(t, orders.KindInvalidTransition, orders.KindOf(err))
	assert.Equal(t, orders.ShipPending, store.status["o1"])
	assert.Empty(t, pub.events)
}

func TestTransitionValidation(t *testing.T) {
	svc, _, pub := newTestService(map[string]orders.ShippingStatus{"o1": orders.ShipPending})

	err := svc.Transition(context.Background(), "o1", "teleported", "")
	assert.Equal(t, orders.KindValidation, orders.KindOf(err))

	err = svc.Transition(context.Background(), "", "shipped", "")
	assert.Equal(t, orders.KindValidation, orders.KindOf(err))

	err = svc.Transition(context.Background(), "missing", "processing", "")
	assert.Equal(t, orders.KindNotFound, orders.KindOf(err))

	assert.Empty(t, pub.events)
}

func TestBatchTransitionPartialSuccess(t *testing.T) {
	svc, store, _ := newTestService(map[string]orders.ShippingStatus{
		"a": orders.ShipProcessing, // processing -> shipped is legal
		"b": orders.ShipPending,    // pending -> shipped is not
	})

	results, err := svc.BatchTransition(context.Background(), []string{"a", "b"}, "shipped", "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].OrderID)
	assert.True(t, results[0].OK)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, "b", results[1].OrderID)
	assert.False(t, results[1].OK)
	assert.Equal(t, "INVALID_TRANSITION", results[1].Error)

	// a moved, b did not
	assert.Equal(t, orders.ShipShipped, store.status["a"])
	assert.Equal(t, orders.ShipPending, store.status["b"])
}

func TestBatchTransitionKeepsRequestOrder(t *testing.T) {
	status := map[string]orders.ShippingStatus{}
	ids := []string{"o0", "o1", "o2", "o3", "o4", "o5", "o6", "o7", "o8", "o9"}
	for i, id := range ids {
		if i%2 == 0 {
			status[id] = orders.ShipProcessing
		} else {
			status[id] = orders.ShipDelivered // terminal, every move fails
		}
	}
	svc, _, _ := newTestService(status)

	results, err := svc.BatchTransition(context.Background(), ids, "shipped", "")
	require.NoError(t, err)
	require.Len(t, results, len(ids))
	for i, res := range results {
		assert.Equal(t, ids[i], res.OrderID)
		assert.Equal(t, i%2 == 0, res.OK)
	}
}

func TestBatchTransitionValidation(t *testing.T) {
	svc, _, _ := newTestService(map[string]orders.ShippingStatus{})

	_, err := svc.BatchTransition(context.Background(), nil, "shipped", "")
	assert.Equal(t, orders.KindValidation, orders.KindOf(err))

	_, err = svc.BatchTransition(context.Background(), []string{"a"}, "warp", "")
	assert.Equal(t, orders.KindValidation, orders.KindOf(err))
}

func TestAvailableTransitions(t *testing.T) {
	svc, _, _ := newTestService(nil)

	next, err := svc.AvailableTransitions("pending")
	require.NoError(t, err)
	assert.Equal(t, []orders.ShippingStatus{orders.ShipProcessing, orders.ShipOnHold, orders.ShipCancelled}, next)

	next, err = svc.AvailableTransitions("delivered")
	require.NoError(t, err)
	assert.Empty(t, next)

	_, err = svc.AvailableTransitions("bogus")
	assert.Equal(t, orders.KindValidation, orders.KindOf(err))
}

func TestStatistics(t *testing.T) {
	store := &memStore{counts: map[orders.ShippingStatus]int{
		orders.ShipPending: 3,
		orders.ShipShipped: 1,
	}}
	svc := &Service{Store: store, Log: zerolog.Nop()}

	from := time.Now().AddDate(0, 0, -7)
	out, err := svc.Statistics(context.Background(), from, time.Now())
	require.NoError(t, err)
	require.Len(t, out, 6) // full vocabulary, zero-filled
	assert.Equal(t, StatusCount{Status: "pending", Count: 3}, out[0])
	assert.Equal(t, StatusCount{Status: "shipped", Count: 1}, out[2])
	assert.Equal(t, StatusCount{Status: "delivered", Count: 0}, out[3])

	_, err = svc.Statistics(context.Background(), time.Now(), from)
	assert.Equal(t, orders.KindValidation, orders.KindOf(err))
}
