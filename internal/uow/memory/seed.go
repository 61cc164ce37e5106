package memory

import (
	"fmt"
	"io"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML fixture format for a memory store. Amounts are strings so
// they keep their exact decimal value.
type Seed struct {
	Items []struct {
		ID        string `yaml:"id"`
		Name      string `yaml:"name"`
		UnitPrice string `yaml:"unit_price"`
		Available *bool  `yaml:"available"`
		Recipe    []struct {
			IngredientID    string `yaml:"ingredient_id"`
			QuantityPerUnit string `yaml:"quantity_per_unit"`
		} `yaml:"recipe"`
	} `yaml:"items"`
	Stock []struct {
		IngredientID      string `yaml:"ingredient_id"`
		Name              string `yaml:"name"`
		Unit              string `yaml:"unit"`
		Quantity          string `yaml:"quantity"`
		LowStockThreshold string `yaml:"low_stock_threshold"`
	} `yaml:"stock"`
	Promotions []struct {
		Code          string    `yaml:"code"`
		Type          string    `yaml:"type"`
		Amount        string    `yaml:"amount"`
		Percentage    string    `yaml:"percentage"`
		MinOrderValue string    `yaml:"min_order_value"`
		ValidFrom     time.Time `yaml:"valid_from"`
		ValidTo       time.Time `yaml:"valid_to"`
		UsageLimit    *int      `yaml:"usage_limit"`
	} `yaml:"promotions"`
}

// LoadSeed reads a Seed document from r into the store.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, l := range seed.Stock {
		qty, err := amount(l.Quantity)
		if err != nil {
			return fmt.Errorf("stock %s quantity: %w", l.IngredientID, err)
		}
		threshold, err := amount(l.LowStockThreshold)
		if err != nil {
			return fmt.Errorf("stock %s threshold: %w", l.IngredientID, err)
		}
		s.PutStockLevel(model.StockLevel{
			IngredientID:      l.IngredientID,
			Name:              l.Name,
			Unit:              l.Unit,
			Quantity:          qty,
			LowStockThreshold: threshold,
			UpdatedAt:         time.Now(),
		})
	}

	for _, it := range seed.Items {
		price, err := amount(it.UnitPrice)
		if err != nil {
			return fmt.Errorf("item %s price: %w", it.ID, err)
		}
		item := model.CatalogItem{
			ID:          it.ID,
			Name:        it.Name,
			UnitPrice:   price,
			IsAvailable: it.Available == nil || *it.Available,
		}
		for _, rl := range it.Recipe {
			q, err := amount(rl.QuantityPerUnit)
			if err != nil {
				return fmt.Errorf("item %s recipe %s: %w", it.ID, rl.IngredientID, err)
			}
			item.Recipe = append(item.Recipe, model.RecipeLine{ItemID: it.ID, IngredientID: rl.IngredientID, QuantityPerUnit: q})
		}
		s.PutItem(item)
	}

	for _, p := range seed.Promotions {
		typ, err := model.ParsePromotionType(p.Type)
		if err != nil {
			return err
		}
		amt, err := amount(p.Amount)
		if err != nil {
			return fmt.Errorf("promotion %s amount: %w", p.Code, err)
		}
		pct, err := amount(p.Percentage)
		if err != nil {
			return fmt.Errorf("promotion %s percentage: %w", p.Code, err)
		}
		promo := model.Promotion{
			BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
			Code:       p.Code,
			Type:       typ,
			Amount:     amt,
			Percentage: pct,
			ValidFrom:  p.ValidFrom,
			ValidTo:    p.ValidTo,
			UsageLimit: p.UsageLimit,
		}
		if p.MinOrderValue != "" {
			minimum, err := decimal.NewFromString(p.MinOrderValue)
			if err != nil {
				return fmt.Errorf("promotion %s minimum: %w", p.Code, err)
			}
			promo.MinOrderValue = decimal.NewNullDecimal(minimum)
		}
		s.PutPromotion(promo)
	}
	return nil
}

func amount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
