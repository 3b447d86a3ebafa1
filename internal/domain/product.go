package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductTypeFabric    ProductType = "FABRIC"
	ProductTypeAccessory ProductType = "ACCESSORY"
)

func (t ProductType) Valid() bool {
	return t == ProductTypeFabric || t == ProductTypeAccessory
}

// DefaultMetersPerRoll applies to fabric products that do not declare a roll size.
var DefaultMetersPerRoll = decimal.NewFromInt(100)

// AllowedMinimumCuts lists the minimum order lengths, in meters, a fabric may declare.
var AllowedMinimumCuts = []int64{3, 6, 10}

type CompositionPart struct {
	Material   string          `json:"material"`
	Percentage decimal.Decimal `json:"percentage"`
}

type Product struct {
	ID                    string            `json:"id"`
	PublicID              string            `json:"public_id"`
	Name                  string            `json:"name"`
	ProductType           ProductType       `json:"product_type"`
	Price                 decimal.Decimal   `json:"price"`
	WarehouseAvailability decimal.Decimal   `json:"warehouse_availability"`
	MinimumCut            *int64            `json:"minimum_cut,omitempty"`
	MetersPerRoll         *decimal.Decimal  `json:"meters_per_roll,omitempty"`
	Composition           []CompositionPart `json:"composition"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// RollSize returns the product's meters per roll, falling back to DefaultMetersPerRoll.
func (p *Product) RollSize() decimal.Decimal {
	if p.MetersPerRoll == nil || !p.MetersPerRoll.IsPositive() {
		return DefaultMetersPerRoll
	}
	return *p.MetersPerRoll
}

// Validate checks the invariants every stored product must satisfy.
func (p *Product) Validate() error {
	if p.Name == "" {
		return NewValidationError("name", "cannot be empty")
	}
	if !p.ProductType.Valid() {
		return NewValidationError("product_type", "must be FABRIC or ACCESSORY")
	}
	if p.Price.IsNegative() {
		return NewValidationError("price", "must be non-negative")
	}
	if p.WarehouseAvailability.IsNegative() {
		return NewValidationError("warehouse_availability", "must be non-negative")
	}

	switch p.ProductType {
	case ProductTypeFabric:
		if len(p.Composition) == 0 {
			return NewValidationError("composition", "fabric must declare its composition")
		}
		if err := validateComposition(p.Composition); err != nil {
			return err
		}
		if p.MinimumCut != nil && !slices.Contains(AllowedMinimumCuts, *p.MinimumCut) {
			return NewValidationError("minimum_cut", "must be one of 3, 6, 10")
		}
		if p.MetersPerRoll != nil && !p.MetersPerRoll.IsPositive() {
			return NewValidationError("meters_per_roll", "must be positive")
		}
	case ProductTypeAccessory:
		if len(p.Composition) != 0 {
			return NewValidationError("composition", "accessory cannot declare a composition")
		}
		if p.MinimumCut != nil {
			return NewValidationError("minimum_cut", "only fabric has a minimum cut")
		}
		if p.MetersPerRoll != nil {
			return NewValidationError("meters_per_roll", "only fabric is sold in rolls")
		}
	}

	return nil
}

func validateComposition(parts []CompositionPart) error {
	hundred := decimal.NewFromInt(100)
	sum := decimal.Zero
	for _, part := range parts {
		if part.Material == "" {
			return NewValidationError("composition", "material cannot be empty")
		}
		if !part.Percentage.IsPositive() || part.Percentage.GreaterThan(hundred) {
			return NewValidationError("composition", "percentage must be in (0, 100]")
		}
		sum = sum.Add(part.Percentage)
	}
	if sum.GreaterThan(hundred) {
		return NewValidationError("composition", "percentages sum to more than 100")
	}
	return nil
}
