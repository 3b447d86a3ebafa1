// Package catalog manages the product catalog: fabrics sold by the meter and
// accessories sold by the unit, together with their warehouse availability.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/storage"
)

const publicIDAttempts = 5

type Service struct {
	store storage.Store
	now   func() time.Time
	rand  func(n int) int
}

func NewService(store storage.Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		rand:  rand.IntN,
	}
}

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	PublicID              string                   `json:"public_id"`
	Name                  string                   `json:"name"`
	ProductType           domain.ProductType       `json:"product_type"`
	Price                 decimal.Decimal          `json:"price"`
	WarehouseAvailability decimal.Decimal          `json:"warehouse_availability"`
	MinimumCut            *int64                   `json:"minimum_cut"`
	MetersPerRoll         *decimal.Decimal         `json:"meters_per_roll"`
	Composition           []domain.CompositionPart `json:"composition"`
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = in.Name
	p.Price = in.Price
	p.WarehouseAvailability = in.WarehouseAvailability
	p.MinimumCut = in.MinimumCut
	p.MetersPerRoll = in.MetersPerRoll
	p.Composition = in.Composition
	if p.Composition == nil {
		p.Composition = []domain.CompositionPart{}
	}
}

func publicIDPrefix(t domain.ProductType) string {
	if t == domain.ProductTypeFabric {
		return "FAB"
	}
	return "ACC"
}

// Create stores a new product. A public id of the form FAB-123456 or
// ACC-123456 is generated when the input has none.
func (s *Service) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	now := s.now()
	product := &domain.Product{
		ID:          uuid.New().String(),
		PublicID:    in.PublicID,
		ProductType: in.ProductType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	in.apply(product)

	if err := product.Validate(); err != nil {
		return nil, err
	}

	generate := product.PublicID == ""
	attempts := 1
	if generate {
		attempts = publicIDAttempts
	}

	err := storage.RetryConflict(attempts, func() error {
		if generate {
			product.PublicID = fmt.Sprintf("%s-%06d", publicIDPrefix(product.ProductType), s.rand(1_000_000))
		}
		return s.store.InTx(ctx, func(tx storage.Tx) error {
			return tx.CreateProduct(ctx, product)
		})
	})
	if errors.Is(err, storage.ErrConflict) {
		return nil, domain.NewValidationError("public_id", product.PublicID+" is already taken")
	}
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

// Update replaces the editable fields of an existing product. The product
// type and public id are fixed at creation.
func (s *Service) Update(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	var product *domain.Product

	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		existing, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return productErr(err, id)
		}

		if in.ProductType != "" && in.ProductType != existing.ProductType {
			return domain.NewValidationError("product_type", "cannot be changed")
		}
		if in.PublicID != "" && in.PublicID != existing.PublicID {
			return domain.NewValidationError("public_id", "cannot be changed")
		}

		in.apply(existing)
		existing.UpdatedAt = s.now()
		if err := existing.Validate(); err != nil {
			return err
		}

		if err := tx.UpdateProduct(ctx, existing); err != nil {
			return productErr(err, id)
		}
		product = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, productErr(err, id)
	}
	return product, nil
}

func (s *Service) List(ctx context.Context, filter storage.ProductFilter) ([]domain.Product, int64, error) {
	if filter.ProductType != "" && !filter.ProductType.Valid() {
		return nil, 0, domain.NewValidationError("type", "must be FABRIC or ACCESSORY")
	}

	products, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// AdjustAvailability applies a signed restock delta. Availability never
// drops below zero.
func (s *Service) AdjustAvailability(ctx context.Context, id string, delta decimal.Decimal) (*domain.StockLevel, error) {
	if delta.IsZero() {
		return nil, domain.NewValidationError("delta", "must not be zero")
	}

	var level *domain.StockLevel

	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		product, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return productErr(err, id)
		}

		if delta.IsNegative() {
			err = tx.DecrementAvailability(ctx, product.ID, delta.Neg())
		} else {
			err = tx.IncrementAvailability(ctx, product.ID, delta)
		}
		if errors.Is(err, storage.ErrInsufficientStock) {
			return &domain.InsufficientStockError{
				ProductID: product.PublicID,
				Available: product.WarehouseAvailability,
				Requested: delta.Neg(),
			}
		}
		if err != nil {
			return productErr(err, id)
		}

		level = &domain.StockLevel{
			ProductID:   product.ID,
			PublicID:    product.PublicID,
			ProductType: product.ProductType,
			Available:   product.WarehouseAvailability.Add(delta),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return level, nil
}

func productErr(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return domain.NewNotFoundError("product", id)
	}
	if errors.Is(err, storage.ErrConflict) {
		return domain.NewValidationError("public_id", "is already taken")
	}
	return fmt.Errorf("product %s: %w", id, err)
}
