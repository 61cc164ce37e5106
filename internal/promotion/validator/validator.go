// Package validator decides whether a promotion code applies to an order and
// consumes one use of it inside the caller's unit of work.
package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/promotion"
	"github.com/shopspring/decimal"
)

// Applied is a promotion that passed every rule and was consumed.
type Applied struct {
	PromotionID string
	Code        string
	Discount    decimal.Decimal
}

type Validator struct {
	now func() time.Time
}

func New() *Validator {
	return &Validator{now: time.Now}
}

func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

func NormalizeCode(code string) string {
	return model.NormalizePromotionCode(code)
}

// ValidateAndConsume checks, in order, that the code exists, is inside its
// validity window, has uses left and that subtotal meets its minimum. The
// first failing rule decides the error. On success the usage counter is
// incremented through repo.
func (v *Validator) ValidateAndConsume(ctx context.Context, repo promotion.Repository, code string, subtotal decimal.Decimal) (*Applied, error) {
	code = NormalizeCode(code)

	p, err := repo.LockByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lock promotion %s: %w", code, err)
	}
	if p == nil {
		return nil, &apperror.PromotionError{Code: code, Err: apperror.ErrPromotionNotFound}
	}

	if !p.ActiveAt(v.now()) {
		return nil, &apperror.PromotionError{Code: code, Err: apperror.ErrPromotionExpired}
	}
	if p.Exhausted() {
		return nil, &apperror.PromotionError{Code: code, Err: apperror.ErrPromotionLimitExceeded}
	}
	if p.BelowMinimum(subtotal) {
		return nil, &apperror.PromotionError{Code: code, Minimum: p.MinOrderValue.Decimal, Err: apperror.ErrPromotionBelowMinimum}
	}

	ok, err := repo.IncrementUsage(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &apperror.PromotionError{Code: code, Err: apperror.ErrPromotionLimitExceeded}
	}

	return &Applied{
		PromotionID: p.ID,
		Code:        p.Code,
		Discount:    p.Discount(subtotal),
	}, nil
}
