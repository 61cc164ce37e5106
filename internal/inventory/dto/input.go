package dto

import "github.com/shopspring/decimal"

type RestockInput struct {
	IngredientID string
	Quantity     decimal.Decimal
	Notes        string
	ReferenceID  string
	UserID       string
}

type AdjustStockInput struct {
	IngredientID   string
	QuantityChange decimal.Decimal // signed
	Notes          string
	UserID         string
}

type SetThresholdInput struct {
	IngredientID string
	Threshold    decimal.Decimal
}
