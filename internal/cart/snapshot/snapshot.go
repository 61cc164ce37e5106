// Package snapshot resolves a customer's cart against the live catalog. The
// result is a value copy: later catalog or cart edits never reach it.
package snapshot

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/catalog"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

// Take reads every cart line of customerID and prices it at the catalog's
// current unit price. A line whose item has vanished or is no longer
// available fails the snapshot.
func Take(ctx context.Context, carts cart.Repository, items catalog.Reader, customerID string) (*model.CartSnapshot, error) {
	lines, err := carts.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return resolve(ctx, items, customerID, lines)
}

// TakeLocked is Take for checkout: the captured lines stay locked until the
// unit of work ends, so no concurrent cart edit can change them before they
// are deleted.
func TakeLocked(ctx context.Context, carts cart.Repository, items catalog.Reader, customerID string) (*model.CartSnapshot, error) {
	lines, err := carts.LockByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("lock cart lines: %w", err)
	}
	return resolve(ctx, items, customerID, lines)
}

func resolve(ctx context.Context, items catalog.Reader, customerID string, lines []model.CartLine) (*model.CartSnapshot, error) {
	if len(lines) == 0 {
		return nil, apperror.ErrEmptyCart
	}

	snap := &model.CartSnapshot{
		CustomerID: customerID,
		Lines:      make([]model.SnapshotLine, 0, len(lines)),
		Subtotal:   decimal.Zero,
	}
	for _, l := range lines {
		item, err := items.ResolveItem(ctx, l.ItemID)
		if err != nil {
			return nil, fmt.Errorf("resolve item %s: %w", l.ItemID, err)
		}
		if item == nil || !item.IsAvailable {
			return nil, fmt.Errorf("%w: %s", apperror.ErrItemUnavailable, l.ItemID)
		}

		total := item.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		snap.Lines = append(snap.Lines, model.SnapshotLine{
			CartLineID:  l.ID,
			ItemID:      l.ItemID,
			Name:        item.Name,
			OptionLabel: l.OptionLabel,
			UnitPrice:   item.UnitPrice,
			Quantity:    l.Quantity,
			LineTotal:   total,
			Recipe:      append([]model.RecipeLine(nil), item.Recipe...),
		})
		snap.Subtotal = snap.Subtotal.Add(total)
	}
	return snap, nil
}
