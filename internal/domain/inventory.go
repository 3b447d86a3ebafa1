package domain

import "github.com/shopspring/decimal"

// StockLevel is the availability view of a product returned by stock adjustments.
type StockLevel struct {
	ProductID   string          `json:"product_id"`
	PublicID    string          `json:"public_id"`
	ProductType ProductType     `json:"product_type"`
	Available   decimal.Decimal `json:"available"`
}
