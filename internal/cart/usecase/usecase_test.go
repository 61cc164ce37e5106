package usecase

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/cart/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/uow/memory"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUseCase() (*memory.Store, cart.UseCase) {
	store := memory.New()
	store.PutItem(model.CatalogItem{ID: "pho", Name: "Pho Bo", UnitPrice: decimal.NewFromInt(65000), IsAvailable: true})
	store.PutItem(model.CatalogItem{ID: "sold-out", Name: "Bun Cha", UnitPrice: decimal.NewFromInt(55000)})
	return store, NewCartUseCase(store, logger.NewNop())
}

func TestAddItemMergesSameOption(t *testing.T) {
	store, uc := newUseCase()
	ctx := context.Background()

	first, err := uc.AddItem(ctx, &dto.AddItemInput{CustomerID: "c1", ItemID: "pho", Quantity: 1, OptionLabel: "no onion"})
	require.NoError(t, err)
	second, err := uc.AddItem(ctx, &dto.AddItemInput{CustomerID: "c1", ItemID: "pho", Quantity: 2, OptionLabel: " no onion "})
	require.NoError(t, err)
	_, err = uc.AddItem(ctx, &dto.AddItemInput{CustomerID: "c1", ItemID: "pho", Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Quantity)
	assert.Len(t, store.CartLines("c1"), 2)
}

func TestAddItemValidation(t *testing.T) {
	_, uc := newUseCase()
	ctx := context.Background()

	_, err := uc.AddItem(ctx, &dto.AddItemInput{CustomerID: "c1", ItemID: "pho", Quantity: 0})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = uc.AddItem(ctx, &dto.AddItemInput{CustomerID: "c1", ItemID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = uc.AddItem(ctx, &dto.AddItemInput{CustomerID: "c1", ItemID: "sold-out", Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = uc.AddItem(ctx, &dto.AddItemInput{ItemID: "pho", Quantity: 1})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	store, uc := newUseCase()
	ctx := context.Background()

	line, err := uc.AddItem(ctx, &dto.AddItemInput{CustomerID: "c1", ItemID: "pho", Quantity: 1})
	require.NoError(t, err)

	updated, err := uc.UpdateItem(ctx, &dto.UpdateItemInput{CustomerID: "c1", LineID: line.ID, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	_, err = uc.UpdateItem(ctx, &dto.UpdateItemInput{CustomerID: "c2", LineID: line.ID, Quantity: 2})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	removed, err := uc.UpdateItem(ctx, &dto.UpdateItemInput{CustomerID: "c1", LineID: line.ID, Quantity: 0})
	require.NoError(t, err)
	assert.Nil(t, removed)
	assert.Empty(t, store.CartLines("c1"))

	assert.ErrorIs(t, uc.RemoveItem(ctx, "c1", line.ID), apperror.ErrNotFound)
}

func TestGetCart(t *testing.T) {
	_, uc := newUseCase()
	ctx := context.Background()

	empty, err := uc.GetCart(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, empty.Lines)
	assert.True(t, empty.Subtotal.IsZero())

	_, err = uc.AddItem(ctx, &dto.AddItemInput{CustomerID: "c1", ItemID: "pho", Quantity: 2})
	require.NoError(t, err)

	snap, err := uc.GetCart(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.True(t, decimal.NewFromInt(130000).Equal(snap.Subtotal))
}
