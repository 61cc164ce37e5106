package dto

import "time"

type StockFilters struct {
	IngredientID string
	LowStock     bool // quantity <= low_stock_threshold
	Page         int
	PageSize     int
}

type TransactionFilters struct {
	IngredientID string
	Reason       string
	ReferenceID  string
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}
