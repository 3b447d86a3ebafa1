// Package orders implements the order lifecycle: pricing and stock
// reservation at creation, and the status workflow that returns stock to the
// warehouse when an order is cancelled.
package orders

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/textile-shop/internal/auth"
	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/storage"
)

const publicIDAttempts = 5

// Publisher delivers order events after the transaction that produced them
// has committed.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

type Service struct {
	store     storage.Store
	publisher Publisher
	metrics   *metrics
	logger    *slog.Logger
	now       func() time.Time
	rand      func(n int) int
}

// NewService builds the order service. publisher may be nil, in which case
// no events are emitted.
func NewService(store storage.Store, publisher Publisher, logger *slog.Logger) (*Service, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("create order metrics: %w", err)
	}

	return &Service{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		rand:      rand.IntN,
	}, nil
}

type ItemInput struct {
	ProductID string           `json:"product_id"`
	Color     string           `json:"color"`
	Meters    *decimal.Decimal `json:"meters"`
	Rolls     *int64           `json:"rolls"`
}

type CreateInput struct {
	Items           []ItemInput `json:"items"`
	ShippingAddress string      `json:"shipping_address"`
}

type CreateResult struct {
	OrderID     string             `json:"order_id"`
	PublicID    string             `json:"public_id"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Status      domain.OrderStatus `json:"status"`
	ChatID      string             `json:"chat_id"`
	Items       []domain.OrderItem `json:"items"`
}

// Create validates every item in request order, then persists the order, its
// items, the stock decrements and the order chat in one transaction. The
// first failing item rejects the whole request with nothing written.
func (s *Service) Create(ctx context.Context, id auth.Identity, in CreateInput) (*CreateResult, error) {
	var (
		order *domain.Order
		chat  *domain.Chat
	)

	refs, err := s.resolveProducts(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	err = storage.RetryConflict(publicIDAttempts, func() error {
		return s.store.InTx(ctx, func(tx storage.Tx) error {
			var err error
			order, chat, err = s.createInTx(ctx, tx, id, in, refs)
			return err
		})
	})
	if err != nil {
		s.metrics.orderRejected(ctx, err)
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("allocate order public id: %w", err)
		}
		return nil, err
	}

	s.metrics.orderCreated(ctx, order)
	s.publish(ctx, domain.TopicOrderCreated, order.ID, domain.OrderCreatedEvent{
		OrderID:     order.ID,
		PublicID:    order.PublicID,
		ClientID:    order.ClientID,
		ChatID:      chat.ID,
		TotalAmount: order.TotalAmount,
		Items:       order.Items,
		Timestamp:   order.CreatedAt,
	})

	return &CreateResult{
		OrderID:     order.ID,
		PublicID:    order.PublicID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		ChatID:      chat.ID,
		Items:       order.Items,
	}, nil
}

// reservation is one validated line waiting to be written.
type reservation struct {
	product *domain.Product
	qty     decimal.Decimal
	item    domain.OrderItem
}

func (s *Service) createInTx(ctx context.Context, tx storage.Tx, id auth.Identity, in CreateInput, refs map[string]string) (*domain.Order, *domain.Chat, error) {
	if len(in.Items) == 0 {
		return nil, nil, domain.NewValidationError("items", "must contain at least one item")
	}

	products, err := lockProducts(ctx, tx, refs)
	if err != nil {
		return nil, nil, err
	}

	reserved := make(map[string]decimal.Decimal)
	lines := make([]reservation, 0, len(in.Items))
	total := decimal.Zero

	for i, item := range in.Items {
		line, err := prepareLine(i, item, products)
		if err != nil {
			return nil, nil, err
		}

		p := line.product
		already := reserved[p.ID]
		if already.Add(line.qty).GreaterThan(p.WarehouseAvailability) {
			return nil, nil, &domain.InsufficientStockError{
				ProductID: p.PublicID,
				Available: p.WarehouseAvailability.Sub(already),
				Requested: line.qty,
			}
		}
		reserved[p.ID] = already.Add(line.qty)

		total = total.Add(line.item.TotalPrice)
		lines = append(lines, line)
	}

	now := s.now()
	order := &domain.Order{
		ID:              uuid.New().String(),
		PublicID:        fmt.Sprintf("ORD-%d-%06d", now.Year(), s.rand(1_000_000)),
		ClientID:        id.ClientID,
		Status:          domain.OrderStatusPending,
		TotalAmount:     total,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		Items:           make([]domain.OrderItem, 0, len(lines)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, line := range lines {
		order.Items = append(order.Items, line.item)
	}

	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, nil, err
	}

	for _, line := range lines {
		err := tx.DecrementAvailability(ctx, line.product.ID, line.qty)
		if errors.Is(err, storage.ErrInsufficientStock) {
			return nil, nil, &domain.InsufficientStockError{
				ProductID: line.product.PublicID,
				Available: line.product.WarehouseAvailability,
				Requested: line.qty,
			}
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reserve stock for product %s: %w", line.product.PublicID, err)
		}
	}

	chat := &domain.Chat{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		ClientID:  order.ClientID,
		Subject:   "Order " + order.PublicID,
		CreatedAt: now,
	}
	if err := tx.CreateChat(ctx, chat); err != nil {
		return nil, nil, fmt.Errorf("create order chat: %w", err)
	}

	return order, chat, nil
}

// resolveProducts maps every distinct product reference of the request,
// internal or public id, to the product's internal id. Unknown references
// are left out and reported by prepareLine in item order.
func (s *Service) resolveProducts(ctx context.Context, items []ItemInput) (map[string]string, error) {
	refs := make(map[string]string, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if _, seen := refs[item.ProductID]; seen {
			continue
		}
		p, err := s.store.GetProduct(ctx, item.ProductID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", item.ProductID, err)
		}
		refs[item.ProductID] = p.ID
	}
	return refs, nil
}

// lockProducts locks the referenced products in internal id order, so two
// orders sharing products lock them in the same sequence whichever id form
// they were named by. The result is keyed by the reference used in the request.
func lockProducts(ctx context.Context, tx storage.Tx, refs map[string]string) (map[string]*domain.Product, error) {
	ids := make([]string, 0, len(refs))
	for _, id := range refs {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, cmp.Compare[string])
	ids = slices.Compact(ids)

	locked := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		p, err := tx.GetProductForUpdate(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", id, err)
		}
		locked[id] = p
	}

	products := make(map[string]*domain.Product, len(refs))
	for ref, id := range refs {
		if p, ok := locked[id]; ok {
			products[ref] = p
		}
	}
	return products, nil
}

func prepareLine(i int, item ItemInput, products map[string]*domain.Product) (reservation, error) {
	field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

	if item.ProductID == "" {
		return reservation{}, domain.NewValidationError(field("product_id"), "is required")
	}
	if strings.TrimSpace(item.Color) == "" {
		return reservation{}, domain.NewValidationError(field("color"), "is required")
	}

	p, ok := products[item.ProductID]
	if !ok {
		return reservation{}, domain.NewNotFoundError("product", item.ProductID)
	}

	line := reservation{
		product: p,
		item: domain.OrderItem{
			ID:                uuid.New().String(),
			ProductID:         p.ID,
			ProductType:       p.ProductType,
			Color:             strings.TrimSpace(item.Color),
			UnitPricePerMeter: p.Price,
		},
	}

	switch p.ProductType {
	case domain.ProductTypeFabric:
		if item.Meters == nil || !item.Meters.IsPositive() {
			return reservation{}, domain.NewValidationError(field("meters"), "must be a positive number for fabric")
		}
		meters := *item.Meters
		if p.MinimumCut != nil && meters.LessThan(decimal.NewFromInt(*p.MinimumCut)) {
			return reservation{}, &domain.MinimumCutError{
				ProductID:  p.PublicID,
				MinimumCut: *p.MinimumCut,
				Requested:  meters,
			}
		}
		line.qty = meters
		line.item.Rolls = RollsFor(meters, p.RollSize())
		line.item.TotalPrice = LinePrice(p, meters, line.item.Rolls)

	default:
		units, err := accessoryUnits(item, field)
		if err != nil {
			return reservation{}, err
		}
		line.qty = decimal.NewFromInt(units)
		line.item.Rolls = units
		line.item.TotalPrice = LinePrice(p, line.qty, units)
	}

	line.item.RequestedMeters = line.qty
	return line, nil
}

// accessoryUnits resolves the unit count of an accessory line. rolls wins;
// a whole-number meters value is accepted as the count; both absent means 1.
// Conflicting values are rejected rather than guessed.
func accessoryUnits(item ItemInput, field func(string) string) (int64, error) {
	var fromMeters *int64
	if item.Meters != nil {
		m := *item.Meters
		if !m.IsPositive() || !m.Equal(m.Truncate(0)) {
			return 0, domain.NewValidationError(field("meters"), "must be a positive whole number for accessories")
		}
		n := m.IntPart()
		fromMeters = &n
	}

	switch {
	case item.Rolls != nil:
		if *item.Rolls <= 0 {
			return 0, domain.NewValidationError(field("rolls"), "must be positive")
		}
		if fromMeters != nil && *fromMeters != *item.Rolls {
			return 0, domain.NewValidationError(field("rolls"), "conflicts with meters for an accessory; send one of them")
		}
		return *item.Rolls, nil
	case fromMeters != nil:
		return *fromMeters, nil
	default:
		return 1, nil
	}
}

// UpdateStatus applies a status change allowed by the transition table.
// Cancelling returns every item's reserved quantity to its product in the
// same transaction. Administrators may apply any legal transition; the
// owning client may only cancel.
func (s *Service) UpdateStatus(ctx context.Context, id auth.Identity, orderID, status string) (*domain.Order, error) {
	target, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	var (
		order *domain.Order
		from  domain.OrderStatus
	)

	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if errors.Is(err, storage.ErrNotFound) {
			return domain.NewNotFoundError("order", orderID)
		}
		if err != nil {
			return fmt.Errorf("load order %s: %w", orderID, err)
		}

		if !id.CanAccess(o.ClientID) {
			return domain.NewForbiddenError("order belongs to another client")
		}
		if !id.Admin && target != domain.OrderStatusCancelled {
			return domain.NewForbiddenError("clients may only cancel their orders")
		}
		if !domain.CanTransition(o.Status, target) {
			return &domain.InvalidTransitionError{From: o.Status, To: target}
		}

		if target == domain.OrderStatusCancelled {
			for _, item := range o.Items {
				if err := tx.IncrementAvailability(ctx, item.ProductID, item.RequestedMeters); err != nil {
					return fmt.Errorf("restore stock for product %s: %w", item.ProductID, err)
				}
			}
		}

		if err := tx.UpdateOrderStatus(ctx, o.ID, target); err != nil {
			return fmt.Errorf("update order %s status: %w", o.ID, err)
		}

		from = o.Status
		o.Status = target
		o.UpdatedAt = s.now()
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.statusChanged(ctx, target)
	s.publish(ctx, domain.TopicOrderStatusChanged, order.ID, domain.OrderStatusChangedEvent{
		OrderID:   order.ID,
		PublicID:  order.PublicID,
		ClientID:  order.ClientID,
		From:      from,
		To:        target,
		Timestamp: order.UpdatedAt,
	})

	return order, nil
}

func (s *Service) Get(ctx context.Context, id auth.Identity, orderID string) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.NewNotFoundError("order", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}

	if !id.CanAccess(order.ClientID) {
		return nil, domain.NewForbiddenError("order belongs to another client")
	}
	return order, nil
}

// List returns a page of orders, newest first. Clients only ever see their
// own orders whatever client filter they pass.
func (s *Service) List(ctx context.Context, id auth.Identity, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	if !id.Admin {
		filter.ClientID = id.ClientID
	}

	orders, total, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// Stats aggregates order counts and amounts per status. Revenue leaves
// cancelled orders out.
func (s *Service) Stats(ctx context.Context, id auth.Identity) (*domain.OrderStats, error) {
	if !id.Admin {
		return nil, domain.NewForbiddenError("order statistics are restricted to administrators")
	}

	stats, err := s.store.OrderStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	for _, status := range domain.OrderStatuses {
		if _, ok := stats.ByStatus[status]; !ok {
			stats.ByStatus[status] = domain.StatusStats{Amount: decimal.Zero}
		}
	}
	return stats, nil
}

func (s *Service) publish(ctx context.Context, topic, key string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, key, event); err != nil {
		s.logger.Error("failed to publish order event", "error", err, "topic", topic, "order_id", key)
	}
}
