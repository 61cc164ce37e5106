package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLevel(s *Store, id string, qty int64) {
	s.PutStockLevel(model.StockLevel{IngredientID: id, Name: id, Quantity: decimal.NewFromInt(qty)})
}

func TestDoCommitsOnSuccess(t *testing.T) {
	s := New()
	seedLevel(s, "pate", 5)

	err := s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		return tx.Stock().UpdateQuantity(ctx, "pate", decimal.NewFromInt(2), time.Now())
	})
	require.NoError(t, err)

	level, _ := s.StockLevel("pate")
	assert.True(t, decimal.NewFromInt(2).Equal(level.Quantity))
}

func TestDoDiscardsWritesOnError(t *testing.T) {
	s := New()
	seedLevel(s, "pate", 5)
	boom := errors.New("boom")

	err := s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		require.NoError(t, tx.Stock().UpdateQuantity(ctx, "pate", decimal.NewFromInt(1), time.Now()))
		require.NoError(t, tx.Carts().Insert(ctx, &model.CartLine{ID: "l1", CustomerID: "c1"}))
		require.NoError(t, tx.Outbox().Insert(ctx, &model.OutboxEvent{Topic: "t"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	level, _ := s.StockLevel("pate")
	assert.True(t, decimal.NewFromInt(5).Equal(level.Quantity))
	assert.Empty(t, s.CartLines("c1"))
	assert.Empty(t, s.OutboxEvents())
}

func TestDoRollsBackWhenDeadlinePasses(t *testing.T) {
	s := New()
	seedLevel(s, "pate", 5)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		require.NoError(t, tx.Stock().UpdateQuantity(ctx, "pate", decimal.NewFromInt(1), time.Now()))
		cancel()
		return nil
	})
	assert.True(t, apperror.IsTransient(err))

	level, _ := s.StockLevel("pate")
	assert.True(t, decimal.NewFromInt(5).Equal(level.Quantity))
}

func TestFailCommits(t *testing.T) {
	s := New()
	seedLevel(s, "pate", 5)
	s.FailCommits(1, errors.New("connection reset"))

	write := func(ctx context.Context, tx uow.Tx) error {
		return tx.Stock().UpdateQuantity(ctx, "pate", decimal.NewFromInt(4), time.Now())
	}
	assert.True(t, apperror.IsTransient(s.Do(context.Background(), write)))
	require.NoError(t, s.Do(context.Background(), write))
}

func TestQuantityCannotGoNegative(t *testing.T) {
	s := New()
	seedLevel(s, "pate", 5)

	err := s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		return tx.Stock().UpdateQuantity(ctx, "pate", decimal.NewFromInt(-1), time.Now())
	})
	assert.Error(t, err)
}

func TestIncrementUsageRespectsLimit(t *testing.T) {
	s := New()
	limit := 1
	s.PutPromotion(model.Promotion{BaseModel: model.BaseModel{ID: "p1"}, Code: "ONCE", UsageLimit: &limit})

	var first, second bool
	err := s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		var err error
		if first, err = tx.Promotions().IncrementUsage(ctx, "p1"); err != nil {
			return err
		}
		second, err = tx.Promotions().IncrementUsage(ctx, "p1")
		return err
	})
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	p, _ := s.PromotionByCode("ONCE")
	assert.Equal(t, 1, p.UsedCount)
}

func TestOutboxFetchAndMark(t *testing.T) {
	s := New()
	err := s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		for i := 0; i < 3; i++ {
			if err := tx.Outbox().Insert(ctx, &model.OutboxEvent{Topic: "t"}); err != nil {
				return err
			}
		}
		pending, err := tx.Outbox().FetchPending(ctx, 2)
		if err != nil {
			return err
		}
		assert.Len(t, pending, 2)
		return tx.Outbox().MarkSent(ctx, []int64{pending[0].ID, pending[1].ID}, time.Now())
	})
	require.NoError(t, err)

	var unsent int
	for _, ev := range s.OutboxEvents() {
		if ev.SentAt == nil {
			unsent++
		}
	}
	assert.Equal(t, 1, unsent)
}

func TestLoadSeed(t *testing.T) {
	s := New()
	err := s.LoadSeed(strings.NewReader(`
stock:
  - ingredient_id: pate
    name: Pate
    unit: kg
    quantity: "5"
    low_stock_threshold: "2"
items:
  - id: banh-mi
    name: Banh Mi Pate
    unit_price: "45000"
    recipe:
      - ingredient_id: pate
        quantity_per_unit: "1"
  - id: sold-out
    name: Sold Out
    unit_price: "10000"
    available: false
promotions:
  - code: WELCOME50
    type: PERCENTAGE
    percentage: "50"
    min_order_value: "100000"
    valid_from: 2026-01-01T00:00:00Z
    valid_to: 2026-12-31T23:59:59Z
    usage_limit: 100
`))
	require.NoError(t, err)

	level, ok := s.StockLevel("pate")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(5).Equal(level.Quantity))

	err = s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		item, err := tx.Catalog().ResolveItem(ctx, "banh-mi")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.True(t, item.IsAvailable)
		assert.Len(t, item.Recipe, 1)

		soldOut, err := tx.Catalog().ResolveItem(ctx, "sold-out")
		require.NoError(t, err)
		assert.False(t, soldOut.IsAvailable)
		return nil
	})
	require.NoError(t, err)

	p, ok := s.PromotionByCode("WELCOME50")
	require.True(t, ok)
	assert.Equal(t, model.PromotionPercentage, p.Type)
	assert.True(t, p.MinOrderValue.Valid)
	require.NotNil(t, p.UsageLimit)
	assert.Equal(t, 100, *p.UsageLimit)
}

func TestLoadSeedStoresCanonicalPromotionCodes(t *testing.T) {
	s := New()
	err := s.LoadSeed(strings.NewReader(`
promotions:
  - code: " welcome50 "
    type: FIXED
    amount: "10000"
    valid_from: 2026-01-01T00:00:00Z
    valid_to: 2026-12-31T23:59:59Z
`))
	require.NoError(t, err)

	err = s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		p, err := tx.Promotions().LockByCode(ctx, "WELCOME50")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "WELCOME50", p.Code)
		return nil
	})
	require.NoError(t, err)
}

func TestCreatePromotionStoresCanonicalCode(t *testing.T) {
	s := New()
	err := s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		if err := tx.Promotions().Create(ctx, &model.Promotion{BaseModel: model.BaseModel{ID: "p1"}, Code: "spring10"}); err != nil {
			return err
		}
		return tx.Promotions().Create(ctx, &model.Promotion{BaseModel: model.BaseModel{ID: "p2"}, Code: "SPRING10"})
	})
	require.Error(t, err)

	err = s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		p := &model.Promotion{BaseModel: model.BaseModel{ID: "p1"}, Code: "spring10"}
		if err := tx.Promotions().Create(ctx, p); err != nil {
			return err
		}
		assert.Equal(t, "SPRING10", p.Code)

		found, err := tx.Promotions().LockByCode(ctx, "SPRING10")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "p1", found.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestLoadSeedRejectsBadAmount(t *testing.T) {
	s := New()
	err := s.LoadSeed(strings.NewReader("stock:\n  - ingredient_id: pate\n    quantity: lots\n"))
	assert.Error(t, err)
}
