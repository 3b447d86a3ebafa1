package orders

import (
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/textile-shop/internal/domain"
)

// RollsFor returns how many rolls of rollSize meters cover meters.
func RollsFor(meters, rollSize decimal.Decimal) int64 {
	if !rollSize.IsPositive() {
		rollSize = domain.DefaultMetersPerRoll
	}
	rolls := meters.Div(rollSize).Ceil()
	// Div rounds to DivisionPrecision digits, which can drop a tiny excess.
	if rolls.Mul(rollSize).LessThan(meters) {
		rolls = rolls.Add(decimal.NewFromInt(1))
	}
	return rolls.IntPart()
}

// LinePrice prices one order line: fabric by the meter, accessories by the unit.
func LinePrice(p *domain.Product, meters decimal.Decimal, units int64) decimal.Decimal {
	if p.ProductType == domain.ProductTypeFabric {
		return p.Price.Mul(meters)
	}
	return p.Price.Mul(decimal.NewFromInt(units))
}
