package cart

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

type Repository interface {
	ListByCustomer(ctx context.Context, customerID string) ([]model.CartLine, error)
	FindLine(ctx context.Context, customerID, lineID string) (*model.CartLine, error)
	FindByItem(ctx context.Context, customerID, itemID, optionLabel string) (*model.CartLine, error)
	Insert(ctx context.Context, line *model.CartLine) error
	Update(ctx context.Context, line *model.CartLine) error
	Delete(ctx context.Context, customerID, lineID string) error
	// LockByCustomer is ListByCustomer holding row locks until the unit ends.
	LockByCustomer(ctx context.Context, customerID string) ([]model.CartLine, error)
	// DeleteLines removes only the named lines; lines added since they were
	// read stay in the cart.
	DeleteLines(ctx context.Context, customerID string, lineIDs []string) error
}
