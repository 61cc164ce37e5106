// Package uow defines the unit of work that checkout and the other write
// paths run inside. Every repository handed out by a Tx reads and writes
// within the same transaction; nothing it does is visible to other units
// until Do returns nil.
package uow

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/catalog"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/order"
	"github.com/fekuna/omnipos-checkout-service/internal/outbox"
	"github.com/fekuna/omnipos-checkout-service/internal/promotion"
)

type Tx interface {
	Catalog() catalog.Reader
	Carts() cart.Repository
	Stock() inventory.Repository
	Promotions() promotion.Repository
	Orders() order.Repository
	Outbox() outbox.Repository
}

// Manager runs fn in a fresh unit of work. If fn returns an error, or the
// context ends before commit, every write fn made is discarded. Failures the
// caller may retry are wrapped as apperror.TransientError.
type Manager interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
