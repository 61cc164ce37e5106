// Package ledger owns every mutation of stock levels. Callers hand in a
// repository bound to their unit of work, so reads, checks and writes share
// one isolation scope.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Requirement is the total quantity of one ingredient a checkout consumes.
type Requirement struct {
	IngredientID string
	Quantity     decimal.Decimal
}

// Reservation is the outcome of a successful Reserve.
type Reservation struct {
	IngredientID string
	Name         string
	Required     decimal.Decimal
	Before       decimal.Decimal
	After        decimal.Decimal
	Threshold    decimal.Decimal
}

// CrossedThreshold reports whether this reservation took the level from
// above its low-stock threshold to at or below it.
func (r *Reservation) CrossedThreshold() bool {
	return r.Before.GreaterThan(r.Threshold) && r.After.LessThanOrEqual(r.Threshold)
}

// Mutation describes a non-checkout change (restock, manual adjustment).
type Mutation struct {
	IngredientID string
	Delta        decimal.Decimal
	Reason       model.StockReason
	ReferenceID  string
	Notes        string
	UserID       string
}

type Ledger struct {
	now func() time.Time
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

// WithClock overrides the timestamp source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Plan folds the recipe consumption of every snapshot line into one
// requirement per ingredient, sorted by ingredient id. Reserving in this
// order keeps row-lock acquisition identical across concurrent checkouts.
func Plan(lines []model.SnapshotLine) []Requirement {
	totals := map[string]decimal.Decimal{}
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		for _, r := range line.Recipe {
			totals[r.IngredientID] = totals[r.IngredientID].Add(r.QuantityPerUnit.Mul(qty))
		}
	}

	reqs := make([]Requirement, 0, len(totals))
	for id, q := range totals {
		reqs = append(reqs, Requirement{IngredientID: id, Quantity: q})
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].IngredientID < reqs[j].IngredientID })
	return reqs
}

// Reserve takes required units of an ingredient for an order. It fails with
// *apperror.InsufficientStockError without writing anything when the level
// cannot cover the request.
func (l *Ledger) Reserve(ctx context.Context, repo inventory.Repository, ingredientID string, required decimal.Decimal, orderRef string) (*Reservation, error) {
	if required.IsNegative() {
		return nil, fmt.Errorf("%w: negative reservation for %s", apperror.ErrInvalidArgument, ingredientID)
	}
	if required.IsZero() {
		return &Reservation{IngredientID: ingredientID, Required: required}, nil
	}

	level, err := repo.LockLevel(ctx, ingredientID)
	if err != nil {
		return nil, fmt.Errorf("lock stock level %s: %w", ingredientID, err)
	}
	if level == nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrIngredientUnknown, ingredientID)
	}

	if level.Quantity.LessThan(required) {
		return nil, &apperror.InsufficientStockError{
			IngredientID: ingredientID,
			Required:     required,
			Available:    level.Quantity,
		}
	}

	after, err := l.write(ctx, repo, level, Mutation{
		IngredientID: ingredientID,
		Delta:        required.Neg(),
		Reason:       model.StockReasonOrder,
		ReferenceID:  orderRef,
	})
	if err != nil {
		return nil, err
	}

	return &Reservation{
		IngredientID: ingredientID,
		Name:         level.Name,
		Required:     required,
		Before:       level.Quantity,
		After:        after.QuantityAfter,
		Threshold:    level.LowStockThreshold,
	}, nil
}

// Apply performs a restock or adjustment. Adjustments that would leave the
// level negative are rejected like a failed reservation.
func (l *Ledger) Apply(ctx context.Context, repo inventory.Repository, m Mutation) (*model.StockLevel, error) {
	level, err := repo.LockLevel(ctx, m.IngredientID)
	if err != nil {
		return nil, fmt.Errorf("lock stock level %s: %w", m.IngredientID, err)
	}
	if level == nil {
		return nil, fmt.Errorf("%w: ingredient %s", apperror.ErrNotFound, m.IngredientID)
	}

	if level.Quantity.Add(m.Delta).IsNegative() {
		return nil, &apperror.InsufficientStockError{
			IngredientID: m.IngredientID,
			Required:     m.Delta.Neg(),
			Available:    level.Quantity,
		}
	}

	t, err := l.write(ctx, repo, level, m)
	if err != nil {
		return nil, err
	}
	level.Quantity = t.QuantityAfter
	level.UpdatedAt = t.CreatedAt
	return level, nil
}

func (l *Ledger) write(ctx context.Context, repo inventory.Repository, level *model.StockLevel, m Mutation) (*model.StockTransaction, error) {
	now := l.now()
	after := level.Quantity.Add(m.Delta)

	if err := repo.UpdateQuantity(ctx, level.IngredientID, after, now); err != nil {
		return nil, err
	}

	t := &model.StockTransaction{
		ID:             uuid.New().String(),
		IngredientID:   level.IngredientID,
		Delta:          m.Delta,
		QuantityBefore: level.Quantity,
		QuantityAfter:  after,
		Reason:         m.Reason,
		ReferenceID:    optional(m.ReferenceID),
		Notes:          m.Notes,
		CreatedBy:      optional(m.UserID),
		CreatedAt:      now,
	}
	if err := repo.AppendTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
