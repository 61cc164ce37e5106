package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientStockUnwraps(t *testing.T) {
	err := fmt.Errorf("reserve: %w", &InsufficientStockError{
		IngredientID: "pate",
		Required:     decimal.NewFromInt(6),
		Available:    decimal.NewFromInt(5),
	})

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.True(t, IsBusiness(err))
	assert.False(t, IsTransient(err))

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "pate", stockErr.IngredientID)
	assert.Equal(t, "InsufficientStock", Reason(err))
}

func TestPromotionErrorUnwraps(t *testing.T) {
	err := &PromotionError{Code: "WELCOME50", Err: ErrPromotionExpired}
	assert.True(t, errors.Is(err, ErrPromotionExpired))
	assert.False(t, errors.Is(err, ErrPromotionNotFound))
	assert.Equal(t, "PromotionExpired", Reason(err))
}

func TestTransientKeepsCause(t *testing.T) {
	err := NewTransient(context.DeadlineExceeded)
	assert.True(t, IsTransient(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, IsBusiness(err))
	assert.Equal(t, "TransientFailure", Reason(err))
	assert.Nil(t, NewTransient(nil))
}

func TestReasonDefaultsToInternal(t *testing.T) {
	assert.Equal(t, "InternalError", Reason(ErrItemUnavailable))
	assert.Equal(t, "OK", Reason(nil))
}

func TestTransitionError(t *testing.T) {
	err := fmt.Errorf("order o1: %w", &TransitionError{From: "COMPLETED", To: "CANCELLED"})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, "InvalidStatusTransition", Reason(err))

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "COMPLETED", te.From)
}
