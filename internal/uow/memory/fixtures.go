package memory

import (
	"sort"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

// Seeding and inspection helpers. They bypass units of work and are meant for
// tests and the dev fixtures loaded at start-up.

func (s *Store) PutItem(item model.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.items[item.ID] = copyItem(item)
}

func (s *Store) DeleteItem(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.items, itemID)
}

func (s *Store) PutStockLevel(level model.StockLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.levels[level.IngredientID] = level
}

func (s *Store) PutPromotion(p model.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Code = model.NormalizePromotionCode(p.Code)
	s.st.promotions[p.ID] = copyPromotion(p)
}

func (s *Store) PutCartLine(line model.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.cartLines[line.ID] = line
}

func (s *Store) StockLevel(ingredientID string) (model.StockLevel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.st.levels[ingredientID]
	return l, ok
}

func (s *Store) PromotionByCode(code string) (model.Promotion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.st.promotions {
		if p.Code == model.NormalizePromotionCode(code) {
			return copyPromotion(p), true
		}
	}
	return model.Promotion{}, false
}

func (s *Store) CartLines(customerID string) []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []model.CartLine
	for _, l := range s.st.cartLines {
		if l.CustomerID == customerID {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines
}

func (s *Store) Order(id string) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	return copyOrder(o), ok
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) Transactions() []model.StockTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.StockTransaction(nil), s.st.transactions...)
}

func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxEvent(nil), s.st.outbox...)
}
