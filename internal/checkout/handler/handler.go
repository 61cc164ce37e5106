package handler

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/auth"
	"github.com/fekuna/omnipos-checkout-service/internal/checkout"
	"github.com/fekuna/omnipos-checkout-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/order"
	orderdto "github.com/fekuna/omnipos-checkout-service/internal/order/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/transport/rpc"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"google.golang.org/protobuf/types/known/structpb"
)

type checkoutRequest struct {
	TableID        string `json:"table_id"`
	PromotionCode  string `json:"promotion_code"`
	IdempotencyKey string `json:"idempotency_key"`
}

type orderRequest struct {
	OrderID string `json:"order_id"`
}

type updateStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason"`
}

type CheckoutHandler struct {
	checkoutUC checkout.UseCase
	orderUC    order.UseCase
	errs       *rpc.ErrorMapper
	logger     logger.ZapLogger
}

var _ rpc.CheckoutServiceServer = (*CheckoutHandler)(nil)

func NewCheckoutHandler(checkoutUC checkout.UseCase, orderUC order.UseCase, errs *rpc.ErrorMapper, log logger.ZapLogger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutUC: checkoutUC,
		orderUC:    orderUC,
		errs:       errs,
		logger:     log,
	}
}

func (h *CheckoutHandler) Checkout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in checkoutRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, h.errs.Map(ctx, err)
	}

	id := auth.FromContext(ctx)
	key := auth.GetIdempotencyKey(ctx)
	if key == "" {
		key = in.IdempotencyKey
	}

	summary, err := h.checkoutUC.Checkout(ctx, &dto.CheckoutInput{
		CustomerID:     id.CustomerID,
		GuestID:        id.GuestID,
		TableID:        in.TableID,
		PromotionCode:  in.PromotionCode,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return rpc.Encode(summary)
}

// GetOrder lets shoppers read their own orders and staff read any order.
// Another shopper's order reads as not found.
func (h *CheckoutHandler) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in orderRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	if in.OrderID == "" {
		return nil, h.errs.Map(ctx, fmt.Errorf("%w: order_id is required", apperror.ErrInvalidArgument))
	}

	o, err := h.orderUC.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	if id := auth.FromContext(ctx); id.UserID == "" && !ownedBy(o, id) {
		return nil, h.errs.Map(ctx, fmt.Errorf("%w: order %s", apperror.ErrNotFound, in.OrderID))
	}
	return rpc.Encode(o)
}

func (h *CheckoutHandler) UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in updateStatusRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, h.errs.Map(ctx, err)
	}

	o, err := h.orderUC.UpdateStatus(ctx, &orderdto.UpdateStatusInput{
		OrderID: in.OrderID,
		Status:  in.Status,
		Actor:   auth.GetUserID(ctx),
		Reason:  in.Reason,
	})
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return rpc.Encode(o)
}

func ownedBy(o *model.Order, id auth.Identity) bool {
	switch {
	case id.CustomerID != "":
		return o.CustomerID != nil && *o.CustomerID == id.CustomerID
	case id.GuestID != "":
		return o.GuestID != nil && *o.GuestID == id.GuestID
	}
	return false
}
