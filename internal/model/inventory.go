package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel is the on-hand quantity of one ingredient.
type StockLevel struct {
	IngredientID      string          `db:"ingredient_id" json:"ingredient_id"`
	Name              string          `db:"name" json:"name"`
	Unit              string          `db:"unit" json:"unit"`
	Quantity          decimal.Decimal `db:"quantity" json:"quantity"`
	LowStockThreshold decimal.Decimal `db:"low_stock_threshold" json:"low_stock_threshold"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

func (s *StockLevel) IsLow() bool {
	return s.Quantity.LessThanOrEqual(s.LowStockThreshold)
}

type StockReason string

const (
	StockReasonOrder      StockReason = "ORDER"
	StockReasonRestock    StockReason = "RESTOCK"
	StockReasonAdjustment StockReason = "ADJUSTMENT"
)

func ParseStockReason(s string) (StockReason, error) {
	switch r := StockReason(s); r {
	case StockReasonOrder, StockReasonRestock, StockReasonAdjustment:
		return r, nil
	}
	return "", fmt.Errorf("unknown stock reason %q", s)
}

// StockTransaction is an append-only audit row, one per stock mutation.
type StockTransaction struct {
	ID             string          `db:"id" json:"id"`
	IngredientID   string          `db:"ingredient_id" json:"ingredient_id"`
	Delta          decimal.Decimal `db:"delta" json:"delta"`
	QuantityBefore decimal.Decimal `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  decimal.Decimal `db:"quantity_after" json:"quantity_after"`
	Reason         StockReason     `db:"reason" json:"reason"`
	ReferenceID    *string         `db:"reference_id" json:"reference_id"`
	Notes          string          `db:"notes" json:"notes"`
	CreatedBy      *string         `db:"created_by" json:"created_by"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
