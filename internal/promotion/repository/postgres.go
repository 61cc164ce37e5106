package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) LockByCode(ctx context.Context, code string) (*model.Promotion, error) {
	var p model.Promotion
	err := sqlx.GetContext(ctx, r.DB, &p, `SELECT * FROM promotions WHERE code = $1 FOR UPDATE`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// IncrementUsage re-checks the limit in the UPDATE itself, so the counter
// cannot pass usage_limit even without the row lock.
func (r *PGRepository) IncrementUsage(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE promotions
        SET used_count = used_count + 1, updated_at = NOW()
        WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
    `, id)
	if err != nil {
		return false, fmt.Errorf("increment promotion usage: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *PGRepository) Create(ctx context.Context, p *model.Promotion) error {
	p.Code = model.NormalizePromotionCode(p.Code)
	query := `
        INSERT INTO promotions (
            id, code, type, amount, percentage, min_order_value,
            valid_from, valid_to, usage_limit, used_count, created_at, updated_at
        )
        VALUES (
            :id, :code, :type, :amount, :percentage, :min_order_value,
            :valid_from, :valid_to, :usage_limit, :used_count, :created_at, :updated_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, p); err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	return nil
}
