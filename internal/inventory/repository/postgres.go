package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB sqlx.ExtContext
}

// NewPGRepository accepts either a *sqlx.DB or a *sqlx.Tx.
func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetLevel(ctx context.Context, ingredientID string) (*model.StockLevel, error) {
	return r.getLevel(ctx, `SELECT * FROM stock_levels WHERE ingredient_id = $1`, ingredientID)
}

func (r *PGRepository) LockLevel(ctx context.Context, ingredientID string) (*model.StockLevel, error) {
	return r.getLevel(ctx, `SELECT * FROM stock_levels WHERE ingredient_id = $1 FOR UPDATE`, ingredientID)
}

func (r *PGRepository) getLevel(ctx context.Context, query, ingredientID string) (*model.StockLevel, error) {
	var level model.StockLevel
	err := sqlx.GetContext(ctx, r.DB, &level, query, ingredientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

func (r *PGRepository) UpsertLevel(ctx context.Context, level *model.StockLevel) error {
	query := `
        INSERT INTO stock_levels (ingredient_id, name, unit, quantity, low_stock_threshold, updated_at)
        VALUES (:ingredient_id, :name, :unit, :quantity, :low_stock_threshold, :updated_at)
        ON CONFLICT (ingredient_id)
        DO UPDATE SET
            name = EXCLUDED.name,
            unit = EXCLUDED.unit,
            quantity = EXCLUDED.quantity,
            low_stock_threshold = EXCLUDED.low_stock_threshold,
            updated_at = EXCLUDED.updated_at
    `
	_, err := sqlx.NamedExecContext(ctx, r.DB, query, level)
	return err
}

func (r *PGRepository) UpdateQuantity(ctx context.Context, ingredientID string, quantity decimal.Decimal, at time.Time) error {
	// The CHECK (quantity >= 0) constraint backs up the ledger's own check.
	res, err := r.DB.ExecContext(ctx,
		`UPDATE stock_levels SET quantity = $1, updated_at = $2 WHERE ingredient_id = $3`,
		quantity, at, ingredientID)
	if err != nil {
		return fmt.Errorf("update stock level: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("stock level %s not found", ingredientID)
	}
	return nil
}

func (r *PGRepository) ListLevels(ctx context.Context, f *dto.StockFilters) ([]model.StockLevel, int, error) {
	var items []model.StockLevel
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.IngredientID != "" {
		conditions = append(conditions, "ingredient_id = :ingredient_id")
		args["ingredient_id"] = f.IngredientID
	}
	if f.LowStock {
		conditions = append(conditions, "quantity <= low_stock_threshold")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	if err := r.namedGet(ctx, &count, "SELECT count(*) FROM stock_levels"+whereClause, args); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM stock_levels" + whereClause + " ORDER BY quantity - low_stock_threshold ASC, ingredient_id"
	query += pageClause(f.Page, f.PageSize)

	if err := r.namedSelect(ctx, &items, query, args); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) AppendTransaction(ctx context.Context, t *model.StockTransaction) error {
	query := `
        INSERT INTO stock_transactions (
            id, ingredient_id, delta, quantity_before, quantity_after,
            reason, reference_id, notes, created_by, created_at
        )
        VALUES (
            :id, :ingredient_id, :delta, :quantity_before, :quantity_after,
            :reason, :reference_id, :notes, :created_by, :created_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, r.DB, query, t)
	if err != nil {
		return fmt.Errorf("failed to log stock transaction: %w", err)
	}
	return nil
}

func (r *PGRepository) ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.StockTransaction, int, error) {
	var items []model.StockTransaction
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.IngredientID != "" {
		conditions = append(conditions, "ingredient_id = :ingredient_id")
		args["ingredient_id"] = f.IngredientID
	}
	if f.Reason != "" {
		conditions = append(conditions, "reason = :reason")
		args["reason"] = f.Reason
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	if err := r.namedGet(ctx, &count, "SELECT count(*) FROM stock_transactions"+whereClause, args); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM stock_transactions" + whereClause + " ORDER BY created_at DESC"
	query += pageClause(f.Page, f.PageSize)

	if err := r.namedSelect(ctx, &items, query, args); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) namedGet(ctx context.Context, dest interface{}, query string, args map[string]interface{}) error {
	q, a, err := sqlx.Named(query, args)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, r.DB, dest, r.DB.Rebind(q), a...)
}

func (r *PGRepository) namedSelect(ctx context.Context, dest interface{}, query string, args map[string]interface{}) error {
	q, a, err := sqlx.Named(query, args)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, r.DB, dest, r.DB.Rebind(q), a...)
}

func pageClause(page, pageSize int) string {
	if pageSize <= 0 {
		return ""
	}
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
}
