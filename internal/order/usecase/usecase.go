package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/events"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/order"
	"github.com/fekuna/omnipos-checkout-service/internal/order/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

// Notifier is told when new outbox rows have been committed.
type Notifier interface {
	Wake()
}

type orderUseCase struct {
	uow      uow.Manager
	notifier Notifier
	logger   logger.ZapLogger
	now      func() time.Time
}

func NewOrderUseCase(m uow.Manager, notifier Notifier, log logger.ZapLogger) order.UseCase {
	return &orderUseCase{
		uow:      m,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

func (uc *orderUseCase) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var o *model.Order
	err := uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		o, err = tx.Orders().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: order %s", apperror.ErrNotFound, id)
	}
	return o, nil
}

// UpdateStatus moves an order along its status machine and stages an
// order.updated event in the same unit of work.
func (uc *orderUseCase) UpdateStatus(ctx context.Context, input *dto.UpdateStatusInput) (*model.Order, error) {
	to, err := model.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidArgument, err)
	}

	var o *model.Order
	err = uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		o, err = tx.Orders().LockByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: order %s", apperror.ErrNotFound, input.OrderID)
		}
		if !o.Status.CanTransitionTo(to) {
			return &apperror.TransitionError{From: string(o.Status), To: string(to)}
		}

		now := uc.now()
		if err := tx.Orders().UpdateStatus(ctx, o.ID, to, now); err != nil {
			return err
		}
		o.Status = to
		o.UpdatedAt = now

		rec, err := events.OrderUpdatedRecord(o, now)
		if err != nil {
			return err
		}
		return tx.Outbox().Insert(ctx, rec)
	})
	if err != nil {
		if apperror.IsBusiness(err) {
			uc.logger.Warn("Order status change rejected",
				zap.String("order_id", input.OrderID),
				zap.String("status", input.Status),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if uc.notifier != nil {
		uc.notifier.Wake()
	}
	uc.logger.Info("Order status updated",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.String("actor", input.Actor),
		zap.String("reason", input.Reason),
	)
	return o, nil
}
