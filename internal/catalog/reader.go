// Package catalog is the read-only view of the menu that cart and checkout
// depend on. Dish management itself lives in the catalog service.
package catalog

import (
	"context"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

type Reader interface {
	// ResolveItem returns nil, nil when the item does not exist.
	ResolveItem(ctx context.Context, itemID string) (*model.CatalogItem, error)
}
