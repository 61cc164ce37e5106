package inventory

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

type UseCase interface {
	GetStockLevel(ctx context.Context, ingredientID string) (*model.StockLevel, error)
	ListLowStock(ctx context.Context, page, pageSize int) ([]model.StockLevel, int, error)
	Restock(ctx context.Context, input *dto.RestockInput) (*model.StockLevel, error)
	AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*model.StockLevel, error)
	SetThreshold(ctx context.Context, input *dto.SetThresholdInput) (*model.StockLevel, error)
	ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.StockTransaction, int, error)
}
