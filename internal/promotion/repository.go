package promotion

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

type Repository interface {
	// LockByCode returns nil, nil when no promotion has the code.
	LockByCode(ctx context.Context, code string) (*model.Promotion, error)
	// IncrementUsage adds one use and reports false when the usage limit was
	// already reached.
	IncrementUsage(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, p *model.Promotion) error
}
