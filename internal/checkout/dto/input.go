package dto

import (
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

// CheckoutInput identifies the cart owner by exactly one of CustomerID or
// GuestID.
type CheckoutInput struct {
	CustomerID     string
	GuestID        string
	TableID        string
	PromotionCode  string
	IdempotencyKey string
}

// Owner is the id the cart lines are stored under.
func (in *CheckoutInput) Owner() string {
	if in.CustomerID != "" {
		return in.CustomerID
	}
	return in.GuestID
}

type OrderSummary struct {
	OrderID       string                    `json:"order_id"`
	Status        model.OrderStatus         `json:"status"`
	Subtotal      decimal.Decimal           `json:"subtotal"`
	Discount      decimal.Decimal           `json:"discount"`
	Total         decimal.Decimal           `json:"total"`
	PromotionCode *string                   `json:"promotion_code"`
	Items         []model.OrderItemSnapshot `json:"items"`
}

func NewOrderSummary(o *model.Order) *OrderSummary {
	return &OrderSummary{
		OrderID:       o.ID,
		Status:        o.Status,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		Total:         o.Total,
		PromotionCode: o.PromotionCode,
		Items:         append([]model.OrderItemSnapshot(nil), o.Items...),
	}
}
