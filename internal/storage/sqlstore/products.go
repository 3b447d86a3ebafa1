package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/storage"
)

const productColumns = `id, public_id, name, product_type, price, warehouse_availability,
	minimum_cut, meters_per_roll, composition, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p           domain.Product
		minimumCut  sql.NullInt64
		perRoll     decimal.NullDecimal
		composition []byte
	)
	err := row.Scan(&p.ID, &p.PublicID, &p.Name, &p.ProductType, &p.Price, &p.WarehouseAvailability,
		&minimumCut, &perRoll, &composition, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if minimumCut.Valid {
		p.MinimumCut = &minimumCut.Int64
	}
	if perRoll.Valid {
		p.MetersPerRoll = &perRoll.Decimal
	}
	p.Composition = []domain.CompositionPart{}
	if len(composition) > 0 {
		if err := json.Unmarshal(composition, &p.Composition); err != nil {
			return nil, fmt.Errorf("decode composition of product %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func productArgs(p *domain.Product) ([]any, error) {
	composition := p.Composition
	if composition == nil {
		composition = []domain.CompositionPart{}
	}
	data, err := json.Marshal(composition)
	if err != nil {
		return nil, err
	}

	return []any{p.PublicID, p.Name, string(p.ProductType), p.Price.String(), p.WarehouseAvailability.String(),
		nullInt(p.MinimumCut), nullDecimal(p.MetersPerRoll), string(data)}, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.reader().getProduct(ctx, id, false)
}

func (s *Store) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]domain.Product, int64, error) {
	r := s.reader()

	where := ""
	var args []any
	if filter.ProductType != "" {
		where = " WHERE product_type = ?"
		args = append(args, string(filter.ProductType))
	}

	var total int64
	if err := r.queryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + productColumns + " FROM products" + where + " ORDER BY public_id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset())
	}

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (t *tx) getProduct(ctx context.Context, id string, lock bool) (*domain.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = ? OR public_id = ?"
	if lock {
		query = t.dialect.forUpdate(query)
	}
	p, err := scanProduct(t.queryRow(ctx, query, id, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (t *tx) GetProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return t.getProduct(ctx, id, true)
}

func (t *tx) CreateProduct(ctx context.Context, product *domain.Product) error {
	args, err := productArgs(product)
	if err != nil {
		return err
	}
	args = append([]any{product.ID}, args...)
	args = append(args, product.CreatedAt, product.UpdatedAt)

	_, err = t.exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	return err
}

func (t *tx) UpdateProduct(ctx context.Context, product *domain.Product) error {
	args, err := productArgs(product)
	if err != nil {
		return err
	}
	args = append(args, product.UpdatedAt, product.ID)

	res, err := t.exec(ctx, `
		UPDATE products
		SET public_id = ?, name = ?, product_type = ?, price = ?, warehouse_availability = ?,
			minimum_cut = ?, meters_per_roll = ?, composition = ?, updated_at = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (t *tx) DecrementAvailability(ctx context.Context, productID string, qty decimal.Decimal) error {
	if t.dialect.textDecimals {
		return t.adjustAvailability(ctx, productID, qty.Neg())
	}

	res, err := t.exec(ctx, `
		UPDATE products
		SET warehouse_availability = warehouse_availability - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND warehouse_availability >= ?
	`, qty.String(), productID, qty.String())
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := t.getProduct(ctx, productID, false); err != nil {
			return err
		}
		return storage.ErrInsufficientStock
	}
	return nil
}

func (t *tx) IncrementAvailability(ctx context.Context, productID string, qty decimal.Decimal) error {
	if t.dialect.textDecimals {
		return t.adjustAvailability(ctx, productID, qty)
	}

	res, err := t.exec(ctx, `
		UPDATE products
		SET warehouse_availability = warehouse_availability + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty.String(), productID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// adjustAvailability applies delta with decimal arithmetic in Go and writes
// back the exact result. Only valid where the transaction holds the sole
// writer, as it does on SQLite.
func (t *tx) adjustAvailability(ctx context.Context, productID string, delta decimal.Decimal) error {
	p, err := t.getProduct(ctx, productID, false)
	if err != nil {
		return err
	}

	next := p.WarehouseAvailability.Add(delta)
	if next.IsNegative() {
		return storage.ErrInsufficientStock
	}

	res, err := t.exec(ctx, `
		UPDATE products
		SET warehouse_availability = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, next.String(), p.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
