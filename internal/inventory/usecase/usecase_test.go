package usecase

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/uow/memory"
	"github.com/fekuna/omnipos-checkout-service/pkg/cache"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newUseCase(t *testing.T) (*memory.Store, *miniredis.Miniredis, inventory.UseCase) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })

	store := memory.New()
	store.PutStockLevel(model.StockLevel{IngredientID: "pate", Name: "Pate", Unit: "kg", Quantity: d("5"), LowStockThreshold: d("2")})
	store.PutStockLevel(model.StockLevel{IngredientID: "bread", Name: "Bread", Unit: "pc", Quantity: d("40"), LowStockThreshold: d("10")})
	store.PutStockLevel(model.StockLevel{IngredientID: "herbs", Name: "Herbs", Unit: "kg", Quantity: d("0.5"), LowStockThreshold: d("1")})
	return store, mr, NewInventoryUseCase(store, client, logger.NewNop())
}

func TestRestock(t *testing.T) {
	store, _, uc := newUseCase(t)

	level, err := uc.Restock(context.Background(), &dto.RestockInput{
		IngredientID: "pate", Quantity: d("2.5"), Notes: "morning delivery", ReferenceID: "po-17", UserID: "u1",
	})
	require.NoError(t, err)
	assert.True(t, d("7.5").Equal(level.Quantity))

	txs := store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, model.StockReasonRestock, txs[0].Reason)
	assert.True(t, d("5").Equal(txs[0].QuantityBefore))
	assert.True(t, d("7.5").Equal(txs[0].QuantityAfter))
	require.NotNil(t, txs[0].ReferenceID)
	assert.Equal(t, "po-17", *txs[0].ReferenceID)

	_, err = uc.Restock(context.Background(), &dto.RestockInput{IngredientID: "pate", Quantity: d("-1")})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestAdjustStock(t *testing.T) {
	store, _, uc := newUseCase(t)

	level, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{IngredientID: "pate", QuantityChange: d("-1.25"), Notes: "spoiled"})
	require.NoError(t, err)
	assert.True(t, d("3.75").Equal(level.Quantity))

	_, err = uc.AdjustStock(context.Background(), &dto.AdjustStockInput{IngredientID: "pate", QuantityChange: d("-4")})
	var stockErr *apperror.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, d("3.75").Equal(stockErr.Available))

	current, _ := store.StockLevel("pate")
	assert.True(t, d("3.75").Equal(current.Quantity))
	assert.Len(t, store.Transactions(), 1)

	_, err = uc.AdjustStock(context.Background(), &dto.AdjustStockInput{IngredientID: "missing", QuantityChange: d("1")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAdjustStockWhileLockHeld(t *testing.T) {
	_, mr, uc := newUseCase(t)
	require.NoError(t, mr.Set("lock:inventory:pate", "someone-else"))

	_, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{IngredientID: "pate", QuantityChange: d("1")})
	assert.True(t, apperror.IsTransient(err))
}

func TestLockReleasedAfterAdjust(t *testing.T) {
	_, mr, uc := newUseCase(t)

	_, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{IngredientID: "pate", QuantityChange: d("1")})
	require.NoError(t, err)
	assert.False(t, mr.Exists("lock:inventory:pate"))
}

func TestSetThresholdAndListLowStock(t *testing.T) {
	_, _, uc := newUseCase(t)
	ctx := context.Background()

	low, total, err := uc.ListLowStock(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "herbs", low[0].IngredientID)

	_, err = uc.SetThreshold(ctx, &dto.SetThresholdInput{IngredientID: "pate", Threshold: d("5")})
	require.NoError(t, err)

	low, total, err = uc.ListLowStock(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	// Most depleted relative to threshold first.
	assert.Equal(t, "herbs", low[0].IngredientID)
	assert.Equal(t, "pate", low[1].IngredientID)

	_, err = uc.SetThreshold(ctx, &dto.SetThresholdInput{IngredientID: "pate", Threshold: d("-1")})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestListTransactions(t *testing.T) {
	_, _, uc := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Restock(ctx, &dto.RestockInput{IngredientID: "bread", Quantity: d("10")})
	require.NoError(t, err)
	_, err = uc.AdjustStock(ctx, &dto.AdjustStockInput{IngredientID: "bread", QuantityChange: d("-2")})
	require.NoError(t, err)
	_, err = uc.Restock(ctx, &dto.RestockInput{IngredientID: "pate", Quantity: d("1")})
	require.NoError(t, err)

	items, total, err := uc.ListTransactions(ctx, &dto.TransactionFilters{IngredientID: "bread"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, model.StockReasonAdjustment, items[0].Reason)

	items, total, err = uc.ListTransactions(ctx, &dto.TransactionFilters{Reason: "RESTOCK", Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 1)

	_, _, err = uc.ListTransactions(ctx, &dto.TransactionFilters{Reason: "THEFT"})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestGetStockLevel(t *testing.T) {
	_, _, uc := newUseCase(t)

	level, err := uc.GetStockLevel(context.Background(), "bread")
	require.NoError(t, err)
	assert.Equal(t, "Bread", level.Name)

	_, err = uc.GetStockLevel(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
