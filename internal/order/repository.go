package order

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

type Repository interface {
	// Create stores the order together with its item snapshots.
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	LockByID(ctx context.Context, id string) (*model.Order, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) error
}
