package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/auth"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/transport/rpc"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type ingredientRequest struct {
	IngredientID string `json:"ingredient_id"`
}

type restockRequest struct {
	IngredientID string          `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Notes        string          `json:"notes"`
	ReferenceID  string          `json:"reference_id"`
}

type adjustRequest struct {
	IngredientID   string          `json:"ingredient_id"`
	QuantityChange decimal.Decimal `json:"quantity_change"`
	Notes          string          `json:"notes"`
}

type thresholdRequest struct {
	IngredientID string          `json:"ingredient_id"`
	Threshold    decimal.Decimal `json:"threshold"`
}

type pageRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type transactionsRequest struct {
	IngredientID string     `json:"ingredient_id"`
	Reason       string     `json:"reason"`
	ReferenceID  string     `json:"reference_id"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Page         int        `json:"page"`
	PageSize     int        `json:"page_size"`
}

type levelsResponse struct {
	Items []model.StockLevel `json:"items"`
	Total int                `json:"total"`
}

type transactionsResponse struct {
	Transactions []model.StockTransaction `json:"transactions"`
	Total        int                      `json:"total"`
}

// InventoryHandler is the back-office surface of the stock ledger. Every call
// must carry a staff user id.
type InventoryHandler struct {
	uc     inventory.UseCase
	errs   *rpc.ErrorMapper
	logger logger.ZapLogger
}

var _ rpc.InventoryServiceServer = (*InventoryHandler)(nil)

func NewInventoryHandler(uc inventory.UseCase, errs *rpc.ErrorMapper, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		errs:   errs,
		logger: log,
	}
}

func (h *InventoryHandler) GetStockLevel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in ingredientRequest
	if _, err := h.decode(ctx, req, &in); err != nil {
		return nil, err
	}
	if in.IngredientID == "" {
		return nil, h.errs.Map(ctx, fmt.Errorf("%w: ingredient_id is required", apperror.ErrInvalidArgument))
	}

	level, err := h.uc.GetStockLevel(ctx, in.IngredientID)
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return rpc.Encode(level)
}

func (h *InventoryHandler) Restock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in restockRequest
	userID, err := h.decode(ctx, req, &in)
	if err != nil {
		return nil, err
	}

	level, err := h.uc.Restock(ctx, &dto.RestockInput{
		IngredientID: in.IngredientID,
		Quantity:     in.Quantity,
		Notes:        in.Notes,
		ReferenceID:  in.ReferenceID,
		UserID:       userID,
	})
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return rpc.Encode(level)
}

func (h *InventoryHandler) AdjustStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in adjustRequest
	userID, err := h.decode(ctx, req, &in)
	if err != nil {
		return nil, err
	}

	level, err := h.uc.AdjustStock(ctx, &dto.AdjustStockInput{
		IngredientID:   in.IngredientID,
		QuantityChange: in.QuantityChange,
		Notes:          in.Notes,
		UserID:         userID,
	})
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return rpc.Encode(level)
}

func (h *InventoryHandler) SetThreshold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in thresholdRequest
	if _, err := h.decode(ctx, req, &in); err != nil {
		return nil, err
	}

	level, err := h.uc.SetThreshold(ctx, &dto.SetThresholdInput{
		IngredientID: in.IngredientID,
		Threshold:    in.Threshold,
	})
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	return rpc.Encode(level)
}

func (h *InventoryHandler) ListLowStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in pageRequest
	if _, err := h.decode(ctx, req, &in); err != nil {
		return nil, err
	}

	items, total, err := h.uc.ListLowStock(ctx, in.Page, in.PageSize)
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	if items == nil {
		items = []model.StockLevel{}
	}
	return rpc.Encode(levelsResponse{Items: items, Total: total})
}

func (h *InventoryHandler) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in transactionsRequest
	if _, err := h.decode(ctx, req, &in); err != nil {
		return nil, err
	}

	txs, total, err := h.uc.ListTransactions(ctx, &dto.TransactionFilters{
		IngredientID: in.IngredientID,
		Reason:       in.Reason,
		ReferenceID:  in.ReferenceID,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Page:         in.Page,
		PageSize:     in.PageSize,
	})
	if err != nil {
		return nil, h.errs.Map(ctx, err)
	}
	if txs == nil {
		txs = []model.StockTransaction{}
	}
	return rpc.Encode(transactionsResponse{Transactions: txs, Total: total})
}

// decode checks the caller is staff and decodes req into dst. The returned
// error is already a gRPC status.
func (h *InventoryHandler) decode(ctx context.Context, req *structpb.Struct, dst interface{}) (string, error) {
	userID := auth.GetUserID(ctx)
	if userID == "" {
		return "", status.Error(codes.PermissionDenied, "staff user id is required")
	}
	if err := rpc.Decode(req, dst); err != nil {
		return "", h.errs.Map(ctx, err)
	}
	return userID, nil
}
