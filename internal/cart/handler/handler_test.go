package handler

import (
	"context"
	"testing"

	cartuc "github.com/fekuna/omnipos-checkout-service/internal/cart/usecase"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/transport/rpc"
	"github.com/fekuna/omnipos-checkout-service/internal/uow/memory"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func newHandler() (*CartHandler, *memory.Store) {
	store := memory.New()
	store.PutItem(model.CatalogItem{ID: "pho", Name: "Pho Bo", UnitPrice: decimal.NewFromInt(65000), IsAvailable: true})
	store.PutItem(model.CatalogItem{ID: "tra-da", Name: "Tra Da", UnitPrice: decimal.NewFromInt(5000), IsAvailable: true})
	log := logger.NewNop()
	return NewCartHandler(cartuc.NewCartUseCase(store, log), rpc.NewErrorMapper(nil), log), store
}

func customer(id string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-customer-id", id))
}

func req(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func lines(out *structpb.Struct) []*structpb.Value {
	return out.Fields["lines"].GetListValue().GetValues()
}

func TestCartLifecycle(t *testing.T) {
	h, store := newHandler()
	ctx := customer("c1")

	out, err := h.GetCart(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, lines(out))
	assert.Equal(t, "0", out.Fields["subtotal"].GetStringValue())

	_, err = h.AddItem(ctx, req(t, map[string]interface{}{"item_id": "pho", "quantity": 1}))
	require.NoError(t, err)
	_, err = h.AddItem(ctx, req(t, map[string]interface{}{"item_id": "pho", "quantity": 1}))
	require.NoError(t, err)
	out, err = h.AddItem(ctx, req(t, map[string]interface{}{"item_id": "tra-da", "quantity": 2}))
	require.NoError(t, err)

	require.Len(t, lines(out), 2)
	assert.Equal(t, "140000", out.Fields["subtotal"].GetStringValue())

	stored := store.CartLines("c1")
	require.Len(t, stored, 2)
	var phoLine string
	for _, l := range stored {
		if l.ItemID == "pho" {
			phoLine = l.ID
			assert.Equal(t, 2, l.Quantity)
		}
	}

	out, err = h.UpdateItem(ctx, req(t, map[string]interface{}{"line_id": phoLine, "quantity": 3}))
	require.NoError(t, err)
	assert.Equal(t, "205000", out.Fields["subtotal"].GetStringValue())

	out, err = h.RemoveItem(ctx, req(t, map[string]interface{}{"line_id": phoLine}))
	require.NoError(t, err)
	assert.Len(t, lines(out), 1)
	assert.Equal(t, "10000", out.Fields["subtotal"].GetStringValue())
}

func TestCartIsPerOwner(t *testing.T) {
	h, store := newHandler()

	_, err := h.AddItem(customer("c1"), req(t, map[string]interface{}{"item_id": "pho", "quantity": 1}))
	require.NoError(t, err)
	lineID := store.CartLines("c1")[0].ID

	_, err = h.RemoveItem(customer("c2"), req(t, map[string]interface{}{"line_id": lineID}))
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Len(t, store.CartLines("c1"), 1)
}

func TestCartRejectsBadRequests(t *testing.T) {
	h, _ := newHandler()

	_, err := h.GetCart(context.Background(), nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.AddItem(customer("c1"), req(t, map[string]interface{}{"item_id": "pho", "quantity": 0}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.AddItem(customer("c1"), req(t, map[string]interface{}{"item_id": "bun-cha", "quantity": 1}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}
