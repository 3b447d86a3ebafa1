package domain

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// OrderStatuses is every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus accepts a status name case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(OrderStatuses, status) {
		return "", NewValidationError("status", "must be one of "+joinStatuses(OrderStatuses))
	}
	return status, nil
}

// AllowedTransitions returns the statuses reachable from current in one step.
// The returned slice is a copy.
func AllowedTransitions(current OrderStatus) []OrderStatus {
	return slices.Clone(transitions[current])
}

func CanTransition(from, to OrderStatus) bool {
	return slices.Contains(transitions[from], to)
}

func (s OrderStatus) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

func joinStatuses(statuses []OrderStatus) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

type OrderItem struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	ProductType       ProductType     `json:"product_type"`
	Color             string          `json:"color"`
	RequestedMeters   decimal.Decimal `json:"requested_meters"`
	Rolls             int64           `json:"rolls"`
	UnitPricePerMeter decimal.Decimal `json:"unit_price_per_meter"`
	TotalPrice        decimal.Decimal `json:"total_price"`
}

type Order struct {
	ID              string          `json:"id"`
	PublicID        string          `json:"public_id"`
	ClientID        string          `json:"client_id"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderFilter struct {
	Status   OrderStatus
	ClientID string
	Page     int
	Limit    int
}

// Offset converts the 1-based page into a row offset.
func (f OrderFilter) Offset() int {
	return PageOffset(f.Page, f.Limit)
}

// PageOffset returns the row offset of a 1-based page, saturating at
// math.MaxInt instead of overflowing.
func PageOffset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

type StatusStats struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type OrderStats struct {
	TotalOrders  int64                       `json:"total_orders"`
	TotalRevenue decimal.Decimal             `json:"total_revenue"`
	ByStatus     map[OrderStatus]StatusStats `json:"by_status"`
}
