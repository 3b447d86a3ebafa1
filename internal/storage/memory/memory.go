// Package memory provides an in-process storage.Store used for local runs and tests.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/storage"
)

// Store is a thread-safe in-memory storage.Store. Transactions are
// serialized: InTx holds the write lock, works on a copy of the state and
// swaps it in only when fn succeeds.
type Store struct {
	mu    sync.RWMutex
	state *state
}

type state struct {
	products map[string]domain.Product
	orders   map[string]domain.Order
	orderSeq []string
	chats    map[string]domain.Chat
	messages map[string][]domain.ChatMessage
}

func New() *Store {
	return &Store{
		state: &state{
			products: make(map[string]domain.Product),
			orders:   make(map[string]domain.Order),
			chats:    make(map[string]domain.Chat),
			messages: make(map[string][]domain.ChatMessage),
		},
	}
}

var _ storage.Store = (*Store)(nil)

// Stored values are replaced, never mutated in place, so a shallow copy of
// each map is enough to isolate a transaction.
func (s *state) clone() *state {
	return &state{
		products: maps.Clone(s.products),
		orders:   maps.Clone(s.orders),
		orderSeq: slices.Clone(s.orderSeq),
		chats:    maps.Clone(s.chats),
		messages: maps.Clone(s.messages),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&tx{state: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.findProduct(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]domain.Product, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []domain.Product
	for _, p := range s.state.products {
		if filter.ProductType != "" && p.ProductType != filter.ProductType {
			continue
		}
		all = append(all, p)
	}
	slices.SortFunc(all, func(a, b domain.Product) int {
		return cmp.Compare(a.PublicID, b.PublicID)
	})

	return page(all, filter.Offset(), filter.Limit), int64(len(all)), nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.state.findOrder(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Order
	for i := len(s.state.orderSeq) - 1; i >= 0; i-- {
		o := s.state.orders[s.state.orderSeq[i]]
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.ClientID != "" && o.ClientID != filter.ClientID {
			continue
		}
		o.Items = slices.Clone(o.Items)
		matched = append(matched, o)
	}

	return page(matched, filter.Offset(), filter.Limit), int64(len(matched)), nil
}

func (s *Store) OrderStats(ctx context.Context) (*domain.OrderStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.OrderStats{
		TotalRevenue: decimal.Zero,
		ByStatus:     make(map[domain.OrderStatus]domain.StatusStats),
	}
	for _, o := range s.state.orders {
		st := stats.ByStatus[o.Status]
		st.Count++
		st.Amount = st.Amount.Add(o.TotalAmount)
		stats.ByStatus[o.Status] = st

		stats.TotalOrders++
		if o.Status != domain.OrderStatusCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		}
	}
	return stats, nil
}

func (s *Store) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.state.chats[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetChatByOrder(ctx context.Context, orderID string) (*domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.state.chats {
		if c.OrderID == orderID {
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListChatMessages(ctx context.Context, chatID string) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.state.chats[chatID]; !ok {
		return nil, storage.ErrNotFound
	}
	return slices.Clone(s.state.messages[chatID]), nil
}

func (s *Store) Close() error {
	return nil
}

func (s *state) findProduct(id string) (domain.Product, bool) {
	if p, ok := s.products[id]; ok {
		return p, true
	}
	for _, p := range s.products {
		if p.PublicID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (s *state) findOrder(id string) (domain.Order, bool) {
	if o, ok := s.orders[id]; ok {
		return o, true
	}
	for _, o := range s.orders {
		if o.PublicID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type tx struct {
	state *state
}

func (t *tx) GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := t.state.findProduct(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (t *tx) CreateProduct(ctx context.Context, product *domain.Product) error {
	if _, ok := t.state.products[product.ID]; ok {
		return storage.ErrConflict
	}
	for _, p := range t.state.products {
		if p.PublicID == product.PublicID {
			return storage.ErrConflict
		}
	}
	t.state.products[product.ID] = *product
	return nil
}

func (t *tx) UpdateProduct(ctx context.Context, product *domain.Product) error {
	existing, ok := t.state.products[product.ID]
	if !ok {
		return storage.ErrNotFound
	}
	for _, p := range t.state.products {
		if p.ID != product.ID && p.PublicID == product.PublicID {
			return storage.ErrConflict
		}
	}
	updated := *product
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	t.state.products[product.ID] = updated
	return nil
}

func (t *tx) DecrementAvailability(ctx context.Context, productID string, qty decimal.Decimal) error {
	p, ok := t.state.products[productID]
	if !ok {
		return storage.ErrNotFound
	}
	if p.WarehouseAvailability.LessThan(qty) {
		return storage.ErrInsufficientStock
	}
	p.WarehouseAvailability = p.WarehouseAvailability.Sub(qty)
	p.UpdatedAt = time.Now().UTC()
	t.state.products[productID] = p
	return nil
}

func (t *tx) IncrementAvailability(ctx context.Context, productID string, qty decimal.Decimal) error {
	p, ok := t.state.products[productID]
	if !ok {
		return storage.ErrNotFound
	}
	p.WarehouseAvailability = p.WarehouseAvailability.Add(qty)
	p.UpdatedAt = time.Now().UTC()
	t.state.products[productID] = p
	return nil
}

func (t *tx) CreateOrder(ctx context.Context, order *domain.Order) error {
	if _, ok := t.state.orders[order.ID]; ok {
		return storage.ErrConflict
	}
	for _, o := range t.state.orders {
		if o.PublicID == order.PublicID {
			return storage.ErrConflict
		}
	}
	stored := *order
	stored.Items = slices.Clone(order.Items)
	t.state.orders[order.ID] = stored
	t.state.orderSeq = append(t.state.orderSeq, order.ID)
	return nil
}

func (t *tx) GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	o, ok := t.state.findOrder(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

func (t *tx) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	o, ok := t.state.orders[id]
	if !ok {
		return storage.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	t.state.orders[id] = o
	return nil
}

func (t *tx) CreateChat(ctx context.Context, chat *domain.Chat) error {
	if _, ok := t.state.chats[chat.ID]; ok {
		return storage.ErrConflict
	}
	t.state.chats[chat.ID] = *chat
	return nil
}

func (t *tx) AddChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if _, ok := t.state.chats[msg.ChatID]; !ok {
		return storage.ErrNotFound
	}
	// Clip so the append never writes into an array shared with the committed state.
	t.state.messages[msg.ChatID] = append(slices.Clip(t.state.messages[msg.ChatID]), *msg)
	return nil
}
