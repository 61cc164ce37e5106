// Package events defines the messages the service publishes. Each event type
// has its own topic and payload struct; records are staged in the outbox by
// the unit of work that produced them and published by Relay after commit.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types. They double as the default Kafka topic names.
const (
	TypeOrderCreated = "order.created"
	TypeOrderUpdated = "order.updated"
	TypeLowStock     = "inventory.low_stock"
)

// Topics maps event types onto the Kafka topics they are published to.
type Topics struct {
	OrderCreated string
	OrderUpdated string
	LowStock     string
}

func DefaultTopics() Topics {
	return Topics{
		OrderCreated: TypeOrderCreated,
		OrderUpdated: TypeOrderUpdated,
		LowStock:     TypeLowStock,
	}
}

// Resolve returns the topic for eventType, or eventType itself when it has no
// mapping.
func (t Topics) Resolve(eventType string) string {
	var topic string
	switch eventType {
	case TypeOrderCreated:
		topic = t.OrderCreated
	case TypeOrderUpdated:
		topic = t.OrderUpdated
	case TypeLowStock:
		topic = t.LowStock
	}
	if topic == "" {
		return eventType
	}
	return topic
}

type OrderCreated struct {
	OrderID     string          `json:"orderId"`
	CustomerID  *string         `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type OrderUpdated struct {
	OrderID    string            `json:"orderId"`
	CustomerID *string           `json:"customerId"`
	Status     model.OrderStatus `json:"status"`
}

type LowStock struct {
	IngredientID    string          `json:"ingredientId"`
	ItemName        string          `json:"itemName"`
	CurrentQuantity decimal.Decimal `json:"currentQuantity"`
	Threshold       decimal.Decimal `json:"threshold"`
}

// Envelope is the wire format of every published event. Consumers
// deduplicate on EventID, since delivery is at-least-once.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewRecord wraps payload in an envelope and returns the outbox row for it.
// The row's Topic holds the event type; Relay maps it to a Kafka topic.
func NewRecord(eventType, key string, payload interface{}, at time.Time) (*model.OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	id := uuid.New().String()
	env, err := json.Marshal(Envelope{
		EventID:   id,
		EventType: eventType,
		Payload:   body,
		Timestamp: at.UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &model.OutboxEvent{
		EventID:   id,
		Topic:     eventType,
		Key:       key,
		Payload:   env,
		CreatedAt: at,
	}, nil
}

func OrderCreatedRecord(o *model.Order, at time.Time) (*model.OutboxEvent, error) {
	return NewRecord(TypeOrderCreated, o.ID, OrderCreated{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.Total,
	}, at)
}

func OrderUpdatedRecord(o *model.Order, at time.Time) (*model.OutboxEvent, error) {
	return NewRecord(TypeOrderUpdated, o.ID, OrderUpdated{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status,
	}, at)
}

func LowStockRecord(p LowStock, at time.Time) (*model.OutboxEvent, error) {
	return NewRecord(TypeLowStock, p.IngredientID, p, at)
}
