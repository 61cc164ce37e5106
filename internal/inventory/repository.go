package inventory

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

// Repository is bound to one unit of work. LockLevel holds the row until the
// unit commits or rolls back.
type Repository interface {
	// Stock levels
	GetLevel(ctx context.Context, ingredientID string) (*model.StockLevel, error)
	LockLevel(ctx context.Context, ingredientID string) (*model.StockLevel, error)
	UpsertLevel(ctx context.Context, level *model.StockLevel) error
	UpdateQuantity(ctx context.Context, ingredientID string, quantity decimal.Decimal, at time.Time) error
	ListLevels(ctx context.Context, filters *dto.StockFilters) ([]model.StockLevel, int, error)

	// Audit trail
	AppendTransaction(ctx context.Context, tx *model.StockTransaction) error
	ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.StockTransaction, int, error)
}
