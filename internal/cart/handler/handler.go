package handler

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/auth"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/cart/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/transport/rpc"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"google.golang.org/protobuf/types/known/structpb"
)

type addItemRequest struct {
	ItemID      string `json:"item_id"`
	Quantity    int    `json:"quantity"`
	OptionLabel string `json:"option_label"`
}

type updateItemRequest struct {
	LineID   string `json:"line_id"`
	Quantity int    `json:"quantity"`
}

type removeItemRequest struct {
	LineID string `json:"line_id"`
}

// CartHandler serves the caller's own cart. Every mutation answers with the
// repriced cart.
type CartHandler struct {
	uc     cart.UseCase
	errs   *rpc.ErrorMapper
	logger logger.ZapLogger
}

var _ rpc.CartServiceServer = (*CartHandler)(nil)

func NewCartHandler(uc cart.UseCase, errs *rpc.ErrorMapper, log logger.ZapLogger) *CartHandler {
	return &CartHandler{
		uc:     uc,
		errs:   errs,
		logger: log,
	}
}

func (h *CartHandler) GetCart(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	owner, err := owner(ctx)
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return h.cart(ctx, owner)
}

func (h *CartHandler) AddItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in addItemRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	owner, err := owner(ctx)
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}

	if _, err := h.uc.AddItem(ctx, &dto.AddItemInput{
		CustomerID:  owner,
		ItemID:      in.ItemID,
		Quantity:    in.Quantity,
		OptionLabel: in.OptionLabel,
	}); err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return h.cart(ctx, owner)
}

func (h *CartHandler) UpdateItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in updateItemRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	owner, err := owner(ctx)
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}

	if _, err := h.uc.UpdateItem(ctx, &dto.UpdateItemInput{
		CustomerID: owner,
		LineID:     in.LineID,
		Quantity:   in.Quantity,
	}); err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return h.cart(ctx, owner)
}

func (h *CartHandler) RemoveItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in removeItemRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	owner, err := owner(ctx)
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}

	if err := h.uc.RemoveItem(ctx, owner, in.LineID); err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return h.cart(ctx, owner)
}

func (h *CartHandler) cart(ctx context.Context, owner string) (*structpb.Struct, error) {
	snap, err := h.uc.GetCart(ctx, owner)
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return rpc.Encode(snap)
}

func owner(ctx context.Context) (string, error) {
	if o := auth.FromContext(ctx).Owner(); o != "" {
		return o, nil
	}
	return "", fmt.Errorf("%w: a customer or guest session is required", apperror.ErrInvalidArgument)
}
