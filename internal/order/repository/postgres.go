package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, o *model.Order) error {
	query := `
        INSERT INTO orders (
            id, customer_id, guest_id, table_id, subtotal, discount, total,
            promotion_id, promotion_code, status, created_at, updated_at
        )
        VALUES (
            :id, :customer_id, :guest_id, :table_id, :subtotal, :discount, :total,
            :promotion_id, :promotion_code, :status, :created_at, :updated_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, o); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
        INSERT INTO order_items (id, order_id, position, item_id, name, option_label, unit_price, quantity, line_total)
        VALUES (:id, :order_id, :position, :item_id, :name, :option_label, :unit_price, :quantity, :line_total)
    `
	for i := range o.Items {
		if _, err := sqlx.NamedExecContext(ctx, r.DB, itemQuery, &o.Items[i]); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	return r.find(ctx, `SELECT * FROM orders WHERE id = $1`, id)
}

func (r *PGRepository) LockByID(ctx context.Context, id string) (*model.Order, error) {
	return r.find(ctx, `SELECT * FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) find(ctx context.Context, query, id string) (*model.Order, error) {
	var o model.Order
	if err := sqlx.GetContext(ctx, r.DB, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	err := sqlx.SelectContext(ctx, r.DB, &o.Items,
		`SELECT * FROM order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id string, status model.OrderStatus, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`, status, at, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("order %s not found", id)
	}
	return nil
}
