package orders

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/textile-shop/internal/domain"
)

type metrics struct {
	created     metric.Int64Counter
	rejected    metric.Int64Counter
	transitions metric.Int64Counter
	amount      metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter("github.com/joao-fontenele/textile-shop/internal/orders")

	created, err1 := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders accepted"))
	rejected, err2 := meter.Int64Counter("orders.rejected",
		metric.WithDescription("Order requests rejected, by reason"))
	transitions, err3 := meter.Int64Counter("orders.status_transitions",
		metric.WithDescription("Applied status transitions, by target status"))
	amount, err4 := meter.Float64Histogram("orders.amount",
		metric.WithDescription("Total amount of accepted orders"))

	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}

	return &metrics{
		created:     created,
		rejected:    rejected,
		transitions: transitions,
		amount:      amount,
	}, nil
}

func (m *metrics) orderCreated(ctx context.Context, order *domain.Order) {
	m.created.Add(ctx, 1)
	m.amount.Record(ctx, order.TotalAmount.InexactFloat64())
}

func (m *metrics) orderRejected(ctx context.Context, err error) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
}

func (m *metrics) statusChanged(ctx context.Context, to domain.OrderStatus) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(to))))
}

func rejectReason(err error) string {
	switch {
	case domain.IsValidationError(err):
		return "validation"
	case domain.IsNotFoundError(err):
		return "not_found"
	case domain.IsMinimumCutError(err):
		return "minimum_cut"
	case domain.IsInsufficientStockError(err):
		return "insufficient_stock"
	default:
		return "internal"
	}
}
