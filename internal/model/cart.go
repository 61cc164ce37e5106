package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is the live view of a purchasable dish as the catalog reports it.
type CatalogItem struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	IsAvailable bool            `db:"is_available" json:"is_available"`
	Recipe      []RecipeLine    `db:"-" json:"recipe"`
}

type RecipeLine struct {
	ItemID          string          `db:"item_id" json:"item_id"`
	IngredientID    string          `db:"ingredient_id" json:"ingredient_id"`
	QuantityPerUnit decimal.Decimal `db:"quantity_per_unit" json:"quantity_per_unit"`
}

// CartLine is one pending selection owned by a single customer session.
type CartLine struct {
	ID          string          `db:"id" json:"id"`
	CustomerID  string          `db:"customer_id" json:"customer_id"`
	ItemID      string          `db:"item_id" json:"item_id"`
	OptionLabel string          `db:"option_label" json:"option_label"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity    int             `db:"quantity" json:"quantity"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// CartSnapshot is the cart resolved against the catalog at read time.
type CartSnapshot struct {
	CustomerID string          `json:"customer_id"`
	Lines      []SnapshotLine  `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// LineIDs lists the cart lines the snapshot captured.
func (s *CartSnapshot) LineIDs() []string {
	ids := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		ids = append(ids, l.CartLineID)
	}
	return ids
}

type SnapshotLine struct {
	CartLineID  string          `json:"cart_line_id"`
	ItemID      string          `json:"item_id"`
	Name        string          `json:"name"`
	OptionLabel string          `json:"option_label"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Recipe      []RecipeLine    `json:"recipe"`
}
