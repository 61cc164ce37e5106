package cart

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/cart/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

type UseCase interface {
	GetCart(ctx context.Context, customerID string) (*model.CartSnapshot, error)
	AddItem(ctx context.Context, input *dto.AddItemInput) (*model.CartLine, error)
	UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.CartLine, error)
	RemoveItem(ctx context.Context, customerID, lineID string) error
}
