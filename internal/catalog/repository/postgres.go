package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ResolveItem(ctx context.Context, itemID string) (*model.CatalogItem, error) {
	var item model.CatalogItem
	query := `SELECT id, name, unit_price, is_available FROM menu_items WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.DB, &item, query, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	query = `SELECT item_id, ingredient_id, quantity_per_unit FROM recipe_lines WHERE item_id = $1 ORDER BY ingredient_id`
	if err := sqlx.SelectContext(ctx, r.DB, &item.Recipe, query, itemID); err != nil {
		return nil, err
	}
	return &item, nil
}
