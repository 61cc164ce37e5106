package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	invdto "github.com/fekuna/omnipos-checkout-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/shopspring/decimal"
)

var errCheckViolation = errors.New("stock_levels_quantity_check: quantity must not be negative")

type catalogRepo struct{ st *state }

func (r *catalogRepo) ResolveItem(_ context.Context, itemID string) (*model.CatalogItem, error) {
	item, ok := r.st.items[itemID]
	if !ok {
		return nil, nil
	}
	c := copyItem(item)
	return &c, nil
}

type stockRepo struct{ st *state }

func (r *stockRepo) GetLevel(_ context.Context, ingredientID string) (*model.StockLevel, error) {
	level, ok := r.st.levels[ingredientID]
	if !ok {
		return nil, nil
	}
	return &level, nil
}

// LockLevel needs no lock of its own: units never overlap.
func (r *stockRepo) LockLevel(ctx context.Context, ingredientID string) (*model.StockLevel, error) {
	return r.GetLevel(ctx, ingredientID)
}

func (r *stockRepo) UpsertLevel(_ context.Context, level *model.StockLevel) error {
	if level.Quantity.IsNegative() {
		return errCheckViolation
	}
	r.st.levels[level.IngredientID] = *level
	return nil
}

func (r *stockRepo) UpdateQuantity(_ context.Context, ingredientID string, quantity decimal.Decimal, at time.Time) error {
	level, ok := r.st.levels[ingredientID]
	if !ok {
		return fmt.Errorf("stock level %s not found", ingredientID)
	}
	if quantity.IsNegative() {
		return errCheckViolation
	}
	level.Quantity = quantity
	level.UpdatedAt = at
	r.st.levels[ingredientID] = level
	return nil
}

func (r *stockRepo) ListLevels(_ context.Context, f *invdto.StockFilters) ([]model.StockLevel, int, error) {
	var items []model.StockLevel
	for _, l := range r.st.levels {
		if f.IngredientID != "" && l.IngredientID != f.IngredientID {
			continue
		}
		if f.LowStock && !l.IsLow() {
			continue
		}
		items = append(items, l)
	}
	sort.Slice(items, func(i, j int) bool {
		di := items[i].Quantity.Sub(items[i].LowStockThreshold)
		dj := items[j].Quantity.Sub(items[j].LowStockThreshold)
		if !di.Equal(dj) {
			return di.LessThan(dj)
		}
		return items[i].IngredientID < items[j].IngredientID
	})
	return page(items, f.Page, f.PageSize), len(items), nil
}

func (r *stockRepo) AppendTransaction(_ context.Context, t *model.StockTransaction) error {
	r.st.transactions = append(r.st.transactions, *t)
	return nil
}

func (r *stockRepo) ListTransactions(_ context.Context, f *invdto.TransactionFilters) ([]model.StockTransaction, int, error) {
	var items []model.StockTransaction
	for i := len(r.st.transactions) - 1; i >= 0; i-- {
		t := r.st.transactions[i]
		if f.IngredientID != "" && t.IngredientID != f.IngredientID {
			continue
		}
		if f.Reason != "" && string(t.Reason) != f.Reason {
			continue
		}
		if f.ReferenceID != "" && (t.ReferenceID == nil || *t.ReferenceID != f.ReferenceID) {
			continue
		}
		if f.StartDate != nil && t.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && t.CreatedAt.After(*f.EndDate) {
			continue
		}
		items = append(items, t)
	}
	return page(items, f.Page, f.PageSize), len(items), nil
}

type promotionRepo struct{ st *state }

func (r *promotionRepo) LockByCode(_ context.Context, code string) (*model.Promotion, error) {
	for _, p := range r.st.promotions {
		if p.Code == code {
			c := copyPromotion(p)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *promotionRepo) IncrementUsage(_ context.Context, id string) (bool, error) {
	p, ok := r.st.promotions[id]
	if !ok {
		return false, fmt.Errorf("promotion %s not found", id)
	}
	if p.Exhausted() {
		return false, nil
	}
	p.UsedCount++
	r.st.promotions[id] = p
	return true, nil
}

func (r *promotionRepo) Create(_ context.Context, p *model.Promotion) error {
	p.Code = model.NormalizePromotionCode(p.Code)
	for _, existing := range r.st.promotions {
		if existing.Code == p.Code {
			return fmt.Errorf("promotion code %s already exists", p.Code)
		}
	}
	r.st.promotions[p.ID] = copyPromotion(*p)
	return nil
}

type cartRepo struct{ st *state }

func (r *cartRepo) ListByCustomer(_ context.Context, customerID string) ([]model.CartLine, error) {
	var lines []model.CartLine
	for _, l := range r.st.cartLines {
		if l.CustomerID == customerID {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].CreatedAt.Before(lines[j].CreatedAt)
		}
		return lines[i].ID < lines[j].ID
	})
	return lines, nil
}

// LockByCustomer needs no row locks: the unit already holds the store.
func (r *cartRepo) LockByCustomer(ctx context.Context, customerID string) ([]model.CartLine, error) {
	return r.ListByCustomer(ctx, customerID)
}

func (r *cartRepo) FindLine(_ context.Context, customerID, lineID string) (*model.CartLine, error) {
	l, ok := r.st.cartLines[lineID]
	if !ok || l.CustomerID != customerID {
		return nil, nil
	}
	return &l, nil
}

func (r *cartRepo) FindByItem(_ context.Context, customerID, itemID, optionLabel string) (*model.CartLine, error) {
	for _, l := range r.st.cartLines {
		if l.CustomerID == customerID && l.ItemID == itemID && l.OptionLabel == optionLabel {
			return &l, nil
		}
	}
	return nil, nil
}

func (r *cartRepo) Insert(_ context.Context, line *model.CartLine) error {
	if _, ok := r.st.cartLines[line.ID]; ok {
		return fmt.Errorf("cart line %s already exists", line.ID)
	}
	r.st.cartLines[line.ID] = *line
	return nil
}

func (r *cartRepo) Update(_ context.Context, line *model.CartLine) error {
	if _, ok := r.st.cartLines[line.ID]; !ok {
		return fmt.Errorf("cart line %s not found", line.ID)
	}
	r.st.cartLines[line.ID] = *line
	return nil
}

func (r *cartRepo) Delete(_ context.Context, customerID, lineID string) error {
	if l, ok := r.st.cartLines[lineID]; ok && l.CustomerID == customerID {
		delete(r.st.cartLines, lineID)
	}
	return nil
}

func (r *cartRepo) DeleteLines(_ context.Context, customerID string, lineIDs []string) error {
	for _, id := range lineIDs {
		if l, ok := r.st.cartLines[id]; ok && l.CustomerID == customerID {
			delete(r.st.cartLines, id)
		}
	}
	return nil
}

type orderRepo struct{ st *state }

func (r *orderRepo) Create(_ context.Context, o *model.Order) error {
	if _, ok := r.st.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	r.st.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r *orderRepo) FindByID(_ context.Context, id string) (*model.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, nil
	}
	c := copyOrder(o)
	return &c, nil
}

func (r *orderRepo) LockByID(ctx context.Context, id string) (*model.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepo) UpdateStatus(_ context.Context, id string, status model.OrderStatus, at time.Time) error {
	o, ok := r.st.orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	o.Status = status
	o.UpdatedAt = at
	r.st.orders[id] = o
	return nil
}

type outboxRepo struct{ st *state }

func (r *outboxRepo) Insert(_ context.Context, ev *model.OutboxEvent) error {
	r.st.outboxSeq++
	ev.ID = r.st.outboxSeq
	r.st.outbox = append(r.st.outbox, *ev)
	return nil
}

func (r *outboxRepo) FetchPending(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	for _, ev := range r.st.outbox {
		if ev.SentAt != nil {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *outboxRepo) MarkSent(_ context.Context, ids []int64, at time.Time) error {
	sent := make(map[int64]bool, len(ids))
	for _, id := range ids {
		sent[id] = true
	}
	for i := range r.st.outbox {
		if sent[r.st.outbox[i].ID] {
			t := at
			r.st.outbox[i].SentAt = &t
		}
	}
	return nil
}

func page[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
