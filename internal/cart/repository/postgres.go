package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ListByCustomer(ctx context.Context, customerID string) ([]model.CartLine, error) {
	var lines []model.CartLine
	query := `SELECT * FROM cart_lines WHERE customer_id = $1 ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, r.DB, &lines, query, customerID); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *PGRepository) LockByCustomer(ctx context.Context, customerID string) ([]model.CartLine, error) {
	var lines []model.CartLine
	query := `SELECT * FROM cart_lines WHERE customer_id = $1 ORDER BY created_at, id FOR UPDATE`
	if err := sqlx.SelectContext(ctx, r.DB, &lines, query, customerID); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *PGRepository) FindLine(ctx context.Context, customerID, lineID string) (*model.CartLine, error) {
	return r.get(ctx, `SELECT * FROM cart_lines WHERE id = $1 AND customer_id = $2`, lineID, customerID)
}

func (r *PGRepository) FindByItem(ctx context.Context, customerID, itemID, optionLabel string) (*model.CartLine, error) {
	return r.get(ctx,
		`SELECT * FROM cart_lines WHERE customer_id = $1 AND item_id = $2 AND option_label = $3`,
		customerID, itemID, optionLabel)
}

func (r *PGRepository) get(ctx context.Context, query string, args ...interface{}) (*model.CartLine, error) {
	var line model.CartLine
	if err := sqlx.GetContext(ctx, r.DB, &line, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

func (r *PGRepository) Insert(ctx context.Context, line *model.CartLine) error {
	query := `
        INSERT INTO cart_lines (id, customer_id, item_id, option_label, unit_price, quantity, created_at, updated_at)
        VALUES (:id, :customer_id, :item_id, :option_label, :unit_price, :quantity, :created_at, :updated_at)
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, line); err != nil {
		return fmt.Errorf("insert cart line: %w", err)
	}
	return nil
}

func (r *PGRepository) Update(ctx context.Context, line *model.CartLine) error {
	query := `
        UPDATE cart_lines
        SET quantity = :quantity, unit_price = :unit_price, updated_at = :updated_at
        WHERE id = :id AND customer_id = :customer_id
    `
	res, err := sqlx.NamedExecContext(ctx, r.DB, query, line)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: cart line %s", apperror.ErrNotFound, line.ID)
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, customerID, lineID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1 AND customer_id = $2`, lineID, customerID)
	return err
}

func (r *PGRepository) DeleteLines(ctx context.Context, customerID string, lineIDs []string) error {
	if len(lineIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM cart_lines WHERE customer_id = ? AND id IN (?)`, customerID, lineIDs)
	if err != nil {
		return err
	}
	if _, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), args...); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	return nil
}
