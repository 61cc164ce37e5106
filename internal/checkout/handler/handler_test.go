package handler

import (
	"context"
	"testing"
	"time"

	checkoutuc "github.com/fekuna/omnipos-checkout-service/internal/checkout/usecase"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	orderuc "github.com/fekuna/omnipos-checkout-service/internal/order/usecase"
	"github.com/fekuna/omnipos-checkout-service/internal/transport/rpc"
	"github.com/fekuna/omnipos-checkout-service/internal/uow/memory"
	"github.com/fekuna/omnipos-checkout-service/pkg/i18n"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func newHandler(t *testing.T) (*CheckoutHandler, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.PutStockLevel(model.StockLevel{
		IngredientID:      "pate",
		Name:              "Pate",
		Quantity:          decimal.NewFromInt(5),
		LowStockThreshold: decimal.NewFromInt(1),
	})
	store.PutItem(model.CatalogItem{
		ID:          "banh-mi",
		Name:        "Banh Mi Pate",
		UnitPrice:   decimal.NewFromInt(45000),
		IsAvailable: true,
		Recipe:      []model.RecipeLine{{ItemID: "banh-mi", IngredientID: "pate", QuantityPerUnit: decimal.NewFromInt(1)}},
	})

	tr, err := i18n.New()
	require.NoError(t, err)
	log := logger.NewNop()
	cuc := checkoutuc.NewCheckoutUseCase(store, metrics.NewCheckoutMetrics(nil), log, checkoutuc.DefaultConfig())
	ouc := orderuc.NewOrderUseCase(store, nil, log)
	return NewCheckoutHandler(cuc, ouc, rpc.NewErrorMapper(tr), log), store
}

func addLine(store *memory.Store, owner string, qty int) {
	store.PutCartLine(model.CartLine{
		ID:         owner + "-line",
		CustomerID: owner,
		ItemID:     "banh-mi",
		Quantity:   qty,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	})
}

func as(kv ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(kv...))
}

func req(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func reason(t *testing.T, err error) string {
	t.Helper()
	st, ok := status.FromError(err)
	require.True(t, ok)
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.Reason
		}
	}
	return ""
}

func TestCheckoutPlacesOrder(t *testing.T) {
	h, store := newHandler(t)
	addLine(store, "c1", 2)

	out, err := h.Checkout(as("x-customer-id", "c1"), req(t, map[string]interface{}{"table_id": "T4"}))
	require.NoError(t, err)

	assert.Equal(t, string(model.OrderPendingConfirmation), out.Fields["status"].GetStringValue())
	assert.Equal(t, "90000", out.Fields["total"].GetStringValue())
	assert.Len(t, out.Fields["items"].GetListValue().GetValues(), 1)

	order, ok := store.Order(out.Fields["order_id"].GetStringValue())
	require.True(t, ok)
	require.NotNil(t, order.TableID)
	assert.Equal(t, "T4", *order.TableID)
}

func TestCheckoutAsGuest(t *testing.T) {
	h, store := newHandler(t)
	addLine(store, "guest-9", 1)

	out, err := h.Checkout(as("x-guest-id", "guest-9"), req(t, nil))
	require.NoError(t, err)

	order, _ := store.Order(out.Fields["order_id"].GetStringValue())
	assert.Nil(t, order.CustomerID)
	require.NotNil(t, order.GuestID)
	assert.Equal(t, "guest-9", *order.GuestID)
}

func TestCheckoutWithoutSession(t *testing.T) {
	h, _ := newHandler(t)

	_, err := h.Checkout(context.Background(), req(t, nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCheckoutInsufficientStock(t *testing.T) {
	h, store := newHandler(t)
	addLine(store, "c1", 6)

	_, err := h.Checkout(as("x-customer-id", "c1"), req(t, nil))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, "InsufficientStock", reason(t, err))
	assert.Equal(t, 0, store.OrderCount())
}

func TestCheckoutEmptyCart(t *testing.T) {
	h, _ := newHandler(t)

	_, err := h.Checkout(as("x-customer-id", "c1"), req(t, nil))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, "EmptyCart", reason(t, err))
}

func TestGetOrderVisibility(t *testing.T) {
	h, store := newHandler(t)
	addLine(store, "c1", 1)

	out, err := h.Checkout(as("x-customer-id", "c1"), req(t, nil))
	require.NoError(t, err)
	get := req(t, map[string]interface{}{"order_id": out.Fields["order_id"].GetStringValue()})

	got, err := h.GetOrder(as("x-customer-id", "c1"), get)
	require.NoError(t, err)
	assert.Equal(t, "45000", got.Fields["total"].GetStringValue())

	_, err = h.GetOrder(as("x-customer-id", "c2"), get)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.GetOrder(as("x-user-id", "staff-1"), get)
	assert.NoError(t, err)

	_, err = h.GetOrder(as("x-user-id", "staff-1"), req(t, nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestUpdateOrderStatus(t *testing.T) {
	h, store := newHandler(t)
	addLine(store, "c1", 1)

	out, err := h.Checkout(as("x-customer-id", "c1"), req(t, nil))
	require.NoError(t, err)
	orderID := out.Fields["order_id"].GetStringValue()
	staff := as("x-user-id", "staff-1")

	got, err := h.UpdateOrderStatus(staff, req(t, map[string]interface{}{"order_id": orderID, "status": "CONFIRMED"}))
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", got.Fields["status"].GetStringValue())

	_, err = h.UpdateOrderStatus(staff, req(t, map[string]interface{}{"order_id": orderID, "status": "COMPLETED"}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, "InvalidStatusTransition", reason(t, err))

	_, err = h.UpdateOrderStatus(staff, req(t, map[string]interface{}{"order_id": orderID, "status": "EATEN"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
