package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/cart/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/cart/snapshot"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type cartUseCase struct {
	uow    uow.Manager
	logger logger.ZapLogger
	now    func() time.Time
}

func NewCartUseCase(m uow.Manager, log logger.ZapLogger) cart.UseCase {
	return &cartUseCase{
		uow:    m,
		logger: log,
		now:    time.Now,
	}
}

// GetCart returns the priced cart. An empty cart is returned as a snapshot
// with no lines rather than an error.
func (uc *cartUseCase) GetCart(ctx context.Context, customerID string) (*model.CartSnapshot, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", apperror.ErrInvalidArgument)
	}

	var snap *model.CartSnapshot
	err := uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		snap, err = snapshot.Take(ctx, tx.Carts(), tx.Catalog(), customerID)
		return err
	})
	if errors.Is(err, apperror.ErrEmptyCart) {
		return &model.CartSnapshot{CustomerID: customerID, Lines: []model.SnapshotLine{}, Subtotal: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// AddItem puts quantity units of an item in the cart. Adding an item that is
// already there with the same option merges into the existing line.
func (uc *cartUseCase) AddItem(ctx context.Context, input *dto.AddItemInput) (*model.CartLine, error) {
	if input.CustomerID == "" || input.ItemID == "" {
		return nil, fmt.Errorf("%w: customer id and item id are required", apperror.ErrInvalidArgument)
	}
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", apperror.ErrInvalidArgument)
	}
	option := strings.TrimSpace(input.OptionLabel)

	var line *model.CartLine
	err := uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		item, err := tx.Catalog().ResolveItem(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: item %s", apperror.ErrNotFound, input.ItemID)
		}
		if !item.IsAvailable {
			return fmt.Errorf("%w: item %s is not available", apperror.ErrInvalidArgument, input.ItemID)
		}

		now := uc.now()
		existing, err := tx.Carts().FindByItem(ctx, input.CustomerID, input.ItemID, option)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Quantity += input.Quantity
			existing.UnitPrice = item.UnitPrice
			existing.UpdatedAt = now
			line = existing
			return tx.Carts().Update(ctx, existing)
		}

		line = &model.CartLine{
			ID:          uuid.New().String(),
			CustomerID:  input.CustomerID,
			ItemID:      input.ItemID,
			OptionLabel: option,
			UnitPrice:   item.UnitPrice,
			Quantity:    input.Quantity,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Carts().Insert(ctx, line)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Debug("Cart item added",
		zap.String("customer_id", input.CustomerID),
		zap.String("item_id", input.ItemID),
		zap.Int("quantity", line.Quantity),
	)
	return line, nil
}

// UpdateItem sets the quantity of a line. A quantity of zero or less removes
// the line and returns nil.
func (uc *cartUseCase) UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.CartLine, error) {
	if input.Quantity <= 0 {
		return nil, uc.RemoveItem(ctx, input.CustomerID, input.LineID)
	}

	var line *model.CartLine
	err := uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		line, err = tx.Carts().FindLine(ctx, input.CustomerID, input.LineID)
		if err != nil {
			return err
		}
		if line == nil {
			return fmt.Errorf("%w: cart line %s", apperror.ErrNotFound, input.LineID)
		}
		line.Quantity = input.Quantity
		line.UpdatedAt = uc.now()
		return tx.Carts().Update(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (uc *cartUseCase) RemoveItem(ctx context.Context, customerID, lineID string) error {
	return uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		line, err := tx.Carts().FindLine(ctx, customerID, lineID)
		if err != nil {
			return err
		}
		if line == nil {
			return fmt.Errorf("%w: cart line %s", apperror.ErrNotFound, lineID)
		}
		return tx.Carts().Delete(ctx, customerID, lineID)
	})
}
