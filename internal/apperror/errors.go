package apperror

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Business failures. They are deterministic for a given state and are never
// retried.
var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrPromotionNotFound      = errors.New("promotion not found")
	ErrPromotionExpired       = errors.New("promotion expired")
	ErrPromotionLimitExceeded = errors.New("promotion usage limit exceeded")
	ErrPromotionBelowMinimum  = errors.New("order below promotion minimum")
	ErrCheckoutInProgress     = errors.New("checkout already in progress")
	ErrInvalidTransition      = errors.New("invalid order status transition")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrNotFound               = errors.New("not found")
)

// Transient failures may succeed when the whole unit of work is re-run.
var ErrTransientFailure = errors.New("transient failure")

// Invariant failures point at inconsistent data and abort the call.
var (
	ErrItemUnavailable   = errors.New("cart references an unavailable item")
	ErrIngredientUnknown = errors.New("recipe references an unknown ingredient")
)

type InsufficientStockError struct {
	IngredientID string
	Required     decimal.Decimal
	Available    decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for ingredient %s: required %s, available %s",
		e.IngredientID, e.Required, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// PromotionError names the code and the rule it failed. Err is one of the
// ErrPromotion* sentinels.
type PromotionError struct {
	Code    string
	Minimum decimal.Decimal
	Err     error
}

func (e *PromotionError) Error() string {
	return fmt.Sprintf("promotion %s: %v", e.Code, e.Err)
}

func (e *PromotionError) Unwrap() error {
	return e.Err
}

// TransitionError is a rejected order status change.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// TransientError marks an infrastructure failure (lost connection, lock or
// serialization conflict) that is safe to retry from scratch.
type TransientError struct {
	Err error
}

func NewTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() []error {
	return []error{ErrTransientFailure, e.Err}
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFailure)
}

func IsBusiness(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrPromotionNotFound) ||
		errors.Is(err, ErrPromotionExpired) ||
		errors.Is(err, ErrPromotionLimitExceeded) ||
		errors.Is(err, ErrPromotionBelowMinimum) ||
		errors.Is(err, ErrCheckoutInProgress) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNotFound)
}

// Reason is the stable machine-readable name of err, used for metrics labels
// and error details on the wire.
func Reason(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, ErrEmptyCart):
		return "EmptyCart"
	case errors.Is(err, ErrInsufficientStock):
		return "InsufficientStock"
	case errors.Is(err, ErrPromotionNotFound):
		return "PromotionNotFound"
	case errors.Is(err, ErrPromotionExpired):
		return "PromotionExpired"
	case errors.Is(err, ErrPromotionLimitExceeded):
		return "PromotionLimitExceeded"
	case errors.Is(err, ErrPromotionBelowMinimum):
		return "PromotionBelowMinimum"
	case errors.Is(err, ErrCheckoutInProgress):
		return "CheckoutInProgress"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidStatusTransition"
	case errors.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case IsTransient(err):
		return "TransientFailure"
	default:
		return "InternalError"
	}
}
