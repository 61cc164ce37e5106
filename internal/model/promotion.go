package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PromotionType string

const (
	PromotionFixed      PromotionType = "FIXED"
	PromotionPercentage PromotionType = "PERCENTAGE"
)

// NormalizePromotionCode is the canonical form codes are stored and looked
// up in.
func NormalizePromotionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ParsePromotionType(s string) (PromotionType, error) {
	switch t := PromotionType(s); t {
	case PromotionFixed, PromotionPercentage:
		return t, nil
	}
	return "", fmt.Errorf("unknown promotion type %q", s)
}

var hundred = decimal.NewFromInt(100)

type Promotion struct {
	BaseModel
	Code          string              `db:"code" json:"code"`
	Type          PromotionType       `db:"type" json:"type"`
	Amount        decimal.Decimal     `db:"amount" json:"amount"`
	Percentage    decimal.Decimal     `db:"percentage" json:"percentage"`
	MinOrderValue decimal.NullDecimal `db:"min_order_value" json:"min_order_value"`
	ValidFrom     time.Time           `db:"valid_from" json:"valid_from"`
	ValidTo       time.Time           `db:"valid_to" json:"valid_to"`
	UsageLimit    *int                `db:"usage_limit" json:"usage_limit"`
	UsedCount     int                 `db:"used_count" json:"used_count"`
}

// ActiveAt reports whether t falls inside the inclusive validity window.
func (p *Promotion) ActiveAt(t time.Time) bool {
	return !t.Before(p.ValidFrom) && !t.After(p.ValidTo)
}

func (p *Promotion) Exhausted() bool {
	return p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit
}

func (p *Promotion) BelowMinimum(subtotal decimal.Decimal) bool {
	return p.MinOrderValue.Valid && subtotal.LessThan(p.MinOrderValue.Decimal)
}

// Discount computes the discount for subtotal, never more than subtotal and
// never negative.
func (p *Promotion) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch p.Type {
	case PromotionFixed:
		d = p.Amount
	case PromotionPercentage:
		d = subtotal.Mul(p.Percentage).Div(hundred).Round(2)
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}
