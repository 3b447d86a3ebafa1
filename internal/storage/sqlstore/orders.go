package sqlstore

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/textile-shop/internal/domain"
)

const orderColumns = `id, public_id, client_id, status, total_amount, shipping_address, created_at, updated_at`

const itemColumns = `id, product_id, product_type, color, requested_meters, rolls, unit_price_per_meter, total_price`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.PublicID, &o.ClientID, &o.Status, &o.TotalAmount,
		&o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func (t *tx) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := t.exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, order.ID, order.PublicID, order.ClientID, string(order.Status), order.TotalAmount.String(),
		order.ShippingAddress, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = t.exec(ctx, `
			INSERT INTO order_items (order_id, position, `+itemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, order.ID, i, item.ID, item.ProductID, string(item.ProductType), item.Color,
			item.RequestedMeters.String(), item.Rolls, item.UnitPricePerMeter.String(), item.TotalPrice.String())
		if err != nil {
			return err
		}
	}

	return nil
}

func (t *tx) getOrder(ctx context.Context, id string, lock bool) (*domain.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = ? OR public_id = ?"
	if lock {
		query = t.dialect.forUpdate(query)
	}
	order, err := scanOrder(t.queryRow(ctx, query, id, id))
	if err != nil {
		return nil, notFound(err)
	}

	items, err := t.itemsFor(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	return order, nil
}

func (t *tx) GetOrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return t.getOrder(ctx, id, true)
}

func (t *tx) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	res, err := t.exec(ctx, `
		UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(status), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// itemsFor loads the line items of several orders with one query, keyed by order id.
func (t *tx) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	result := make(map[string][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := t.query(ctx, `
		SELECT order_id, `+itemColumns+`
		FROM order_items
		WHERE order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY order_id, position
	`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.ProductType, &item.Color,
			&item.RequestedMeters, &item.Rolls, &item.UnitPricePerMeter, &item.TotalPrice); err != nil {
			return nil, err
		}
		result[orderID] = append(result[orderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.reader().getOrder(ctx, id, false)
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	r := s.reader()

	where := " WHERE 1 = 1"
	var args []any
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.ClientID != "" {
		where += " AND client_id = ?"
		args = append(args, filter.ClientID)
	}

	var total int64
	if err := r.queryRow(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + orderColumns + " FROM orders" + where + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset())
	}

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	_ = rows.Close()

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		if found := items[orders[i].ID]; found != nil {
			orders[i].Items = found
		}
	}

	return orders, total, nil
}

func (s *Store) OrderStats(ctx context.Context) (*domain.OrderStats, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		GROUP BY status
	`
	// SUM over TEXT decimals would go through REAL; sum per row in Go instead.
	if s.dialect.textDecimals {
		query = "SELECT status, 1, total_amount FROM orders"
	}

	rows, err := s.reader().query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stats := &domain.OrderStats{
		TotalRevenue: decimal.Zero,
		ByStatus:     make(map[domain.OrderStatus]domain.StatusStats),
	}
	for rows.Next() {
		var (
			status domain.OrderStatus
			st     domain.StatusStats
		)
		if err := rows.Scan(&status, &st.Count, &st.Amount); err != nil {
			return nil, err
		}
		acc := stats.ByStatus[status]
		acc.Count += st.Count
		acc.Amount = acc.Amount.Add(st.Amount)
		stats.ByStatus[status] = acc
		stats.TotalOrders += st.Count
		if status != domain.OrderStatusCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(st.Amount)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
