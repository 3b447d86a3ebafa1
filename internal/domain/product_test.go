package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validFabric() Product {
	cut := int64(3)
	perRoll := decimal.NewFromInt(25)
	return Product{
		Name:                  "Linen",
		ProductType:           ProductTypeFabric,
		Price:                 decimal.NewFromInt(100),
		WarehouseAvailability: decimal.NewFromInt(50),
		MinimumCut:            &cut,
		MetersPerRoll:         &perRoll,
		Composition: []CompositionPart{
			{Material: "linen", Percentage: decimal.NewFromInt(70)},
			{Material: "cotton", Percentage: decimal.NewFromInt(30)},
		},
	}
}

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Product)
		wantErr string
	}{
		{name: "valid fabric", mutate: func(p *Product) {}},
		{
			name: "valid accessory",
			mutate: func(p *Product) {
				p.ProductType = ProductTypeAccessory
				p.Composition = nil
				p.MinimumCut = nil
				p.MetersPerRoll = nil
			},
		},
		{name: "empty name", mutate: func(p *Product) { p.Name = "" }, wantErr: "invalid name"},
		{name: "unknown type", mutate: func(p *Product) { p.ProductType = "YARN" }, wantErr: "invalid product_type"},
		{name: "negative price", mutate: func(p *Product) { p.Price = decimal.NewFromInt(-1) }, wantErr: "invalid price"},
		{
			name:    "negative availability",
			mutate:  func(p *Product) { p.WarehouseAvailability = decimal.NewFromInt(-1) },
			wantErr: "invalid warehouse_availability",
		},
		{name: "fabric without composition", mutate: func(p *Product) { p.Composition = nil }, wantErr: "invalid composition"},
		{
			name: "composition over 100",
			mutate: func(p *Product) {
				p.Composition[1].Percentage = decimal.NewFromInt(31)
			},
			wantErr: "sum to more than 100",
		},
		{
			name:    "composition under 100 is allowed",
			mutate:  func(p *Product) { p.Composition = p.Composition[:1] },
			wantErr: "",
		},
		{
			name: "minimum cut outside allowed set",
			mutate: func(p *Product) {
				cut := int64(4)
				p.MinimumCut = &cut
			},
			wantErr: "invalid minimum_cut",
		},
		{
			name: "zero meters per roll",
			mutate: func(p *Product) {
				zero := decimal.Zero
				p.MetersPerRoll = &zero
			},
			wantErr: "invalid meters_per_roll",
		},
		{
			name: "accessory with composition",
			mutate: func(p *Product) {
				p.ProductType = ProductTypeAccessory
				p.MinimumCut = nil
				p.MetersPerRoll = nil
			},
			wantErr: "accessory cannot declare a composition",
		},
		{
			name: "accessory with minimum cut",
			mutate: func(p *Product) {
				p.ProductType = ProductTypeAccessory
				p.Composition = nil
				p.MetersPerRoll = nil
			},
			wantErr: "only fabric has a minimum cut",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validFabric()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestProduct_RollSize(t *testing.T) {
	p := validFabric()
	assert.True(t, p.RollSize().Equal(decimal.NewFromInt(25)))

	p.MetersPerRoll = nil
	assert.True(t, p.RollSize().Equal(DefaultMetersPerRoll))
}
