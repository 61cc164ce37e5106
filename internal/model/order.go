package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPendingConfirmation OrderStatus = "PENDING_CONFIRMATION"
	OrderConfirmed           OrderStatus = "CONFIRMED"
	OrderPreparing           OrderStatus = "PREPARING"
	OrderReady               OrderStatus = "READY"
	OrderCompleted           OrderStatus = "COMPLETED"
	OrderCancelled           OrderStatus = "CANCELLED"
)

// next holds the forward edge of the status machine; CANCELLED is handled
// separately since it is reachable from every state before COMPLETED.
var next = map[OrderStatus]OrderStatus{
	OrderPendingConfirmation: OrderConfirmed,
	OrderConfirmed:           OrderPreparing,
	OrderPreparing:           OrderReady,
	OrderReady:               OrderCompleted,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderPendingConfirmation, OrderConfirmed, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return next[s] == to
}

type Order struct {
	BaseModel
	CustomerID    *string         `db:"customer_id" json:"customer_id"`
	GuestID       *string         `db:"guest_id" json:"guest_id"`
	TableID       *string         `db:"table_id" json:"table_id"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	Total         decimal.Decimal `db:"total" json:"total"`
	PromotionID   *string         `db:"promotion_id" json:"promotion_id"`
	PromotionCode *string         `db:"promotion_code" json:"promotion_code"`
	Status        OrderStatus     `db:"status" json:"status"`

	Items []OrderItemSnapshot `db:"-" json:"items"`
}

// OrderItemSnapshot is a frozen copy of a purchased line. It never refers
// back to the live catalog row.
type OrderItemSnapshot struct {
	ID          string          `db:"id" json:"id"`
	OrderID     string          `db:"order_id" json:"order_id"`
	Position    int             `db:"position" json:"position"`
	ItemID      string          `db:"item_id" json:"item_id"`
	Name        string          `db:"name" json:"name"`
	OptionLabel string          `db:"option_label" json:"option_label"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity    int             `db:"quantity" json:"quantity"`
	LineTotal   decimal.Decimal `db:"line_total" json:"line_total"`
}

// OutboxEvent is a domain event waiting to be relayed after its unit of work
// committed.
type OutboxEvent struct {
	ID        int64      `db:"id" json:"id"`
	EventID   string     `db:"event_id" json:"event_id"`
	Topic     string     `db:"topic" json:"topic"`
	Key       string     `db:"key" json:"key"`
	Payload   []byte     `db:"payload" json:"payload"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	SentAt    *time.Time `db:"sent_at" json:"sent_at"`
}
