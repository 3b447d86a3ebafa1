// Package storage defines the persistence boundary of the shop. Every
// multi-entity workflow runs inside Store.InTx so order rows, line items,
// stock adjustments and the order chat commit or roll back together.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/textile-shop/internal/domain"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock is returned by DecrementAvailability when the
	// product holds less than the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)

type ProductFilter struct {
	ProductType domain.ProductType
	Page        int
	Limit       int
}

func (f ProductFilter) Offset() int {
	return domain.PageOffset(f.Page, f.Limit)
}

// Tx is the write side of the store. Implementations hold row locks (or an
// equivalent) on products and orders they return until the transaction ends.
type Tx interface {
	GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	// DecrementAvailability subtracts qty only if at least qty is available.
	DecrementAvailability(ctx context.Context, productID string, qty decimal.Decimal) error
	IncrementAvailability(ctx context.Context, productID string, qty decimal.Decimal) error

	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error

	CreateChat(ctx context.Context, chat *domain.Chat) error
	AddChatMessage(ctx context.Context, msg *domain.ChatMessage) error
}

type Store interface {
	// InTx runs fn in a transaction, committing if fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error)

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error)
	OrderStats(ctx context.Context) (*domain.OrderStats, error)

	GetChat(ctx context.Context, id string) (*domain.Chat, error)
	GetChatByOrder(ctx context.Context, orderID string) (*domain.Chat, error)
	ListChatMessages(ctx context.Context, chatID string) ([]domain.ChatMessage, error)

	Close() error
}

// RetryConflict calls fn until it returns anything other than ErrConflict,
// at most attempts times. It is used where a generated public id may collide.
func RetryConflict(attempts int, fn func() error) error {
	var err error
	for range attempts {
		if err = fn(); !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return err
}
