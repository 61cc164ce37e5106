package order

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/order/dto"
)

type UseCase interface {
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	UpdateStatus(ctx context.Context, input *dto.UpdateStatusInput) (*model.Order, error)
}
