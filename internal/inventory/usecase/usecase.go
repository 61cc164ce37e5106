package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/ledger"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
	"github.com/fekuna/omnipos-checkout-service/pkg/cache"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockTTL      = 5 * time.Second
	lockAttempts = 3
	lockWait     = 100 * time.Millisecond
)

var errBusy = errors.New("system busy, please try again later (lock)")

type inventoryUseCase struct {
	uow    uow.Manager
	ledger *ledger.Ledger
	cache  *cache.RedisClient
	logger logger.ZapLogger
}

func NewInventoryUseCase(m uow.Manager, cache *cache.RedisClient, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		uow:    m,
		ledger: ledger.New(),
		cache:  cache,
		logger: log,
	}
}

func (uc *inventoryUseCase) GetStockLevel(ctx context.Context, ingredientID string) (*model.StockLevel, error) {
	var level *model.StockLevel
	err := uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		level, err = tx.Stock().GetLevel(ctx, ingredientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, fmt.Errorf("%w: ingredient %s", apperror.ErrNotFound, ingredientID)
	}
	return level, nil
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, page, pageSize int) ([]model.StockLevel, int, error) {
	var (
		items []model.StockLevel
		total int
	)
	err := uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		items, total, err = tx.Stock().ListLevels(ctx, &dto.StockFilters{
			LowStock: true,
			Page:     page,
			PageSize: pageSize,
		})
		return err
	})
	return items, total, err
}

func (uc *inventoryUseCase) Restock(ctx context.Context, input *dto.RestockInput) (*model.StockLevel, error) {
	if !input.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: restock quantity must be positive", apperror.ErrInvalidArgument)
	}
	return uc.apply(ctx, ledger.Mutation{
		IngredientID: input.IngredientID,
		Delta:        input.Quantity,
		Reason:       model.StockReasonRestock,
		ReferenceID:  input.ReferenceID,
		Notes:        input.Notes,
		UserID:       input.UserID,
	})
}

func (uc *inventoryUseCase) AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*model.StockLevel, error) {
	if input.QuantityChange.IsZero() {
		return nil, fmt.Errorf("%w: quantity change must not be zero", apperror.ErrInvalidArgument)
	}
	return uc.apply(ctx, ledger.Mutation{
		IngredientID: input.IngredientID,
		Delta:        input.QuantityChange,
		Reason:       model.StockReasonAdjustment,
		Notes:        input.Notes,
		UserID:       input.UserID,
	})
}

func (uc *inventoryUseCase) SetThreshold(ctx context.Context, input *dto.SetThresholdInput) (*model.StockLevel, error) {
	if input.Threshold.IsNegative() {
		return nil, fmt.Errorf("%w: threshold must not be negative", apperror.ErrInvalidArgument)
	}

	var level *model.StockLevel
	err := uc.withLock(ctx, input.IngredientID, func() error {
		return uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
			var err error
			level, err = tx.Stock().LockLevel(ctx, input.IngredientID)
			if err != nil {
				return err
			}
			if level == nil {
				return fmt.Errorf("%w: ingredient %s", apperror.ErrNotFound, input.IngredientID)
			}
			level.LowStockThreshold = input.Threshold
			level.UpdatedAt = time.Now()
			return tx.Stock().UpsertLevel(ctx, level)
		})
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

func (uc *inventoryUseCase) ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.StockTransaction, int, error) {
	if filters.Reason != "" {
		if _, err := model.ParseStockReason(filters.Reason); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", apperror.ErrInvalidArgument, err)
		}
	}

	var (
		items []model.StockTransaction
		total int
	)
	err := uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		items, total, err = tx.Stock().ListTransactions(ctx, filters)
		return err
	})
	return items, total, err
}

func (uc *inventoryUseCase) apply(ctx context.Context, m ledger.Mutation) (*model.StockLevel, error) {
	var level *model.StockLevel
	err := uc.withLock(ctx, m.IngredientID, func() error {
		return uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
			var err error
			level, err = uc.ledger.Apply(ctx, tx.Stock(), m)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Stock level changed",
		zap.String("ingredient_id", m.IngredientID),
		zap.String("reason", string(m.Reason)),
		zap.String("delta", m.Delta.String()),
		zap.String("quantity", level.Quantity.String()),
	)
	return level, nil
}

// withLock serializes admin writes to one ingredient across instances. The
// row lock taken by the ledger still guards against concurrent checkouts.
func (uc *inventoryUseCase) withLock(ctx context.Context, ingredientID string, fn func() error) error {
	if uc.cache == nil {
		return fn()
	}

	lockKey := fmt.Sprintf("lock:inventory:%s", ingredientID)
	lockValue := uuid.New().String()

	acquired := false
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.cache.AcquireLock(ctx, lockKey, lockValue, lockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire lock redis error", zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return apperror.NewTransient(ctx.Err())
		case <-time.After(lockWait):
		}
	}
	if !acquired {
		return apperror.NewTransient(errBusy)
	}
	defer uc.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey, lockValue)

	return fn()
}
