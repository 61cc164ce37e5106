package checkout

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/checkout/dto"
)

type UseCase interface {
	Checkout(ctx context.Context, input *dto.CheckoutInput) (*dto.OrderSummary, error)
}
