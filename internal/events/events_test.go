package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
	"github.com/fekuna/omnipos-checkout-service/internal/uow/memory"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	failOn   int
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn > 0 && len(p.messages)+1 == p.failOn {
		p.failOn = 0
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, message{topic: topic, key: key, value: value})
	return nil
}

func (p *fakePublisher) sent() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message(nil), p.messages...)
}

func stage(t *testing.T, store *memory.Store, records ...*model.OutboxEvent) {
	t.Helper()
	require.NoError(t, store.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		for _, rec := range records {
			if err := tx.Outbox().Insert(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestOrderCreatedRecord(t *testing.T) {
	customer := "c1"
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	rec, err := OrderCreatedRecord(&model.Order{
		BaseModel:  model.BaseModel{ID: "o1"},
		CustomerID: &customer,
		Total:      decimal.NewFromInt(60000),
	}, at)
	require.NoError(t, err)

	assert.Equal(t, TypeOrderCreated, rec.Topic)
	assert.Equal(t, "o1", rec.Key)
	assert.NotEmpty(t, rec.EventID)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Payload, &env))
	assert.Equal(t, rec.EventID, env.EventID)
	assert.Equal(t, TypeOrderCreated, env.EventType)
	assert.True(t, at.Equal(env.Timestamp))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "o1", payload["orderId"])
	assert.Equal(t, "c1", payload["customerId"])
	assert.Equal(t, "60000", payload["totalAmount"])
}

func TestGuestOrderHasNullCustomer(t *testing.T) {
	rec, err := OrderUpdatedRecord(&model.Order{
		BaseModel: model.BaseModel{ID: "o2"},
		Status:    model.OrderConfirmed,
	}, time.Now())
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Payload, &env))
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Contains(t, payload, "customerId")
	assert.Nil(t, payload["customerId"])
	assert.Equal(t, "CONFIRMED", payload["status"])
}

func TestTopicsResolve(t *testing.T) {
	topics := Topics{OrderCreated: "prod.order.created"}
	assert.Equal(t, "prod.order.created", topics.Resolve(TypeOrderCreated))
	assert.Equal(t, TypeLowStock, topics.Resolve(TypeLowStock))
	assert.Equal(t, "other", DefaultTopics().Resolve("other"))
}

func TestRelayFlush(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{}
	relay := NewRelay(store, pub, RelayConfig{BatchSize: 10}, metrics.NewCheckoutMetrics(nil), logger.NewNop())

	a, _ := NewRecord(TypeOrderCreated, "o1", OrderCreated{OrderID: "o1"}, time.Now())
	b, _ := LowStockRecord(LowStock{IngredientID: "pate", ItemName: "Pate"}, time.Now())
	stage(t, store, a, b)

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sent := pub.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, TypeOrderCreated, sent[0].topic)
	assert.Equal(t, "o1", sent[0].key)
	assert.Equal(t, TypeLowStock, sent[1].topic)

	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, pub.sent(), 2)
}

func TestRelayKeepsUnpublishedRows(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{failOn: 2}
	relay := NewRelay(store, pub, RelayConfig{BatchSize: 10}, nil, logger.NewNop())

	for i := 0; i < 3; i++ {
		rec, _ := NewRecord(TypeOrderUpdated, "o1", OrderUpdated{OrderID: "o1"}, time.Now())
		stage(t, store, rec)
	}

	n, err := relay.Flush(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, pub.sent(), 3)
}

func TestRelayWake(t *testing.T) {
	store := memory.New()
	pub := &fakePublisher{}
	relay := NewRelay(store, pub, RelayConfig{PollInterval: time.Hour}, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Start(ctx)

	rec, _ := NewRecord(TypeOrderCreated, "o1", OrderCreated{OrderID: "o1"}, time.Now())
	stage(t, store, rec)
	relay.Wake()

	assert.Eventually(t, func() bool { return len(pub.sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

// writingPublisher commits a unit of work on the same store while it
// publishes, the way a checkout may while the broker is slow.
type writingPublisher struct {
	fakePublisher
	store *memory.Store
}

func (p *writingPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	done := make(chan error, 1)
	go func() {
		rec, err := NewRecord(TypeOrderCreated, "o2", OrderCreated{OrderID: "o2"}, time.Now())
		if err != nil {
			done <- err
			return
		}
		done <- p.store.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
			return tx.Outbox().Insert(ctx, rec)
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-time.After(time.Second):
		return errors.New("store blocked during publish")
	}
	return p.fakePublisher.Publish(ctx, topic, key, value)
}

func TestRelayPublishesOutsideUnitOfWork(t *testing.T) {
	store := memory.New()
	pub := &writingPublisher{store: store}
	relay := NewRelay(store, pub, RelayConfig{BatchSize: 1}, nil, logger.NewNop())

	rec, _ := NewRecord(TypeOrderCreated, "o1", OrderCreated{OrderID: "o1"}, time.Now())
	stage(t, store, rec)

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var pending int
	for _, ev := range store.OutboxEvents() {
		if ev.SentAt == nil {
			pending++
			assert.Equal(t, "o2", ev.Key)
		}
	}
	assert.Equal(t, 1, pending)
}
