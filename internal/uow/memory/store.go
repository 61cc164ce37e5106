// Package memory is an in-process unit of work. Units run one at a time
// against a private copy of the state, and the copy replaces the live state
// only when the unit succeeds, so a failed unit leaves nothing behind.
// It backs local development (STORE_DRIVER=memory) and the test suites.
package memory

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/catalog"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/order"
	"github.com/fekuna/omnipos-checkout-service/internal/outbox"
	"github.com/fekuna/omnipos-checkout-service/internal/promotion"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
)

type state struct {
	items        map[string]model.CatalogItem
	levels       map[string]model.StockLevel
	transactions []model.StockTransaction
	promotions   map[string]model.Promotion
	cartLines    map[string]model.CartLine
	orders       map[string]model.Order
	outbox       []model.OutboxEvent
	outboxSeq    int64
}

func newState() *state {
	return &state{
		items:      map[string]model.CatalogItem{},
		levels:     map[string]model.StockLevel{},
		promotions: map[string]model.Promotion{},
		cartLines:  map[string]model.CartLine{},
		orders:     map[string]model.Order{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.items {
		c.items[k] = copyItem(v)
	}
	for k, v := range s.levels {
		c.levels[k] = v
	}
	c.transactions = append([]model.StockTransaction(nil), s.transactions...)
	for k, v := range s.promotions {
		c.promotions[k] = copyPromotion(v)
	}
	for k, v := range s.cartLines {
		c.cartLines[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	c.outbox = append([]model.OutboxEvent(nil), s.outbox...)
	c.outboxSeq = s.outboxSeq
	return c
}

func copyItem(v model.CatalogItem) model.CatalogItem {
	v.Recipe = append([]model.RecipeLine(nil), v.Recipe...)
	return v
}

func copyPromotion(v model.Promotion) model.Promotion {
	if v.UsageLimit != nil {
		limit := *v.UsageLimit
		v.UsageLimit = &limit
	}
	return v
}

func copyOrder(v model.Order) model.Order {
	v.Items = append([]model.OrderItemSnapshot(nil), v.Items...)
	return v
}

type Store struct {
	mu sync.Mutex
	st *state

	commitFailures int
	commitErr      error
}

var _ uow.Manager = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx uow.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return apperror.NewTransient(err)
	}

	work := s.st.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return apperror.NewTransient(err)
	}
	if s.commitFailures > 0 {
		s.commitFailures--
		return apperror.NewTransient(s.commitErr)
	}

	s.st = work
	return nil
}

// FailCommits makes the next n units fail at commit with a transient error
// wrapping err, as a dropped connection or serialization conflict would.
func (s *Store) FailCommits(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitFailures = n
	s.commitErr = err
}

type memTx struct {
	st *state
}

func (t *memTx) Catalog() catalog.Reader { return &catalogRepo{st: t.st} }
func (t *memTx) Carts() cart.Repository { return &cartRepo{st: t.st} }
func (t *memTx) Stock() inventory.Repository { return &stockRepo{st: t.st} }
func (t *memTx) Promotions() promotion.Repository { return &promotionRepo{st: t.st} }
func (t *memTx) Orders() order.Repository { return &orderRepo{st: t.st} }
func (t *memTx) Outbox() outbox.Repository { return &outboxRepo{st: t.st} }
