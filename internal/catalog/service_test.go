package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/storage"
	"github.com/joao-fontenele/textile-shop/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

func linen() ProductInput {
	return ProductInput{
		Name:                  "Linen",
		ProductType:           domain.ProductTypeFabric,
		Price:                 decimal.NewFromInt(100),
		WarehouseAvailability: decimal.NewFromInt(50),
		MinimumCut:            ptr(int64(3)),
		MetersPerRoll:         ptr(decimal.NewFromInt(25)),
		Composition:           []domain.CompositionPart{{Material: "linen", Percentage: decimal.NewFromInt(100)}},
	}
}

func newTestService() *Service {
	svc := NewService(memory.New())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("generates public id by type", func(t *testing.T) {
		svc := newTestService()
		svc.rand = func(int) int { return 42 }

		p, err := svc.Create(ctx, linen())
		require.NoError(t, err)
		assert.Equal(t, "FAB-000042", p.PublicID)
		assert.NotEmpty(t, p.ID)

		acc, err := svc.Create(ctx, ProductInput{Name: "Zipper", ProductType: domain.ProductTypeAccessory, Price: decimal.NewFromInt(3)})
		require.NoError(t, err)
		assert.Equal(t, "ACC-000042", acc.PublicID)
		assert.NotNil(t, acc.Composition)
	})

	t.Run("retries generated id collisions", func(t *testing.T) {
		svc := newTestService()
		seq := []int{7, 7, 8}
		svc.rand = func(int) int {
			n := seq[0]
			seq = seq[1:]
			return n
		}

		_, err := svc.Create(ctx, linen())
		require.NoError(t, err)
		p, err := svc.Create(ctx, linen())
		require.NoError(t, err)
		assert.Equal(t, "FAB-000008", p.PublicID)
	})

	t.Run("explicit public id conflict", func(t *testing.T) {
		svc := newTestService()
		in := linen()
		in.PublicID = "FAB-LINEN"

		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
		_, err = svc.Create(ctx, in)
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("rejects invalid product", func(t *testing.T) {
		svc := newTestService()
		in := linen()
		in.Composition = nil

		_, err := svc.Create(ctx, in)
		assert.True(t, domain.IsValidationError(err))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	p, err := svc.Create(ctx, linen())
	require.NoError(t, err)

	in := linen()
	in.Name = "Washed linen"
	in.Price = decimal.RequireFromString("120.50")
	updated, err := svc.Update(ctx, p.PublicID, in)
	require.NoError(t, err)
	assert.Equal(t, "Washed linen", updated.Name)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "120.5", got.Price.String())

	in.ProductType = domain.ProductTypeAccessory
	_, err = svc.Update(ctx, p.ID, in)
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.Update(ctx, "missing", linen())
	assert.True(t, domain.IsNotFoundError(err))
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Create(ctx, linen())
	require.NoError(t, err)
	_, err = svc.Create(ctx, ProductInput{Name: "Zipper", ProductType: domain.ProductTypeAccessory, Price: decimal.NewFromInt(3)})
	require.NoError(t, err)

	products, total, err := svc.List(ctx, storage.ProductFilter{ProductType: domain.ProductTypeAccessory})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, products, 1)
	assert.Equal(t, "Zipper", products[0].Name)

	_, _, err = svc.List(ctx, storage.ProductFilter{ProductType: "VELVET"})
	assert.True(t, domain.IsValidationError(err))
}

func TestService_AdjustAvailability(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	p, err := svc.Create(ctx, linen())
	require.NoError(t, err)

	level, err := svc.AdjustAvailability(ctx, p.ID, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Equal(t, "75", level.Available.String())

	level, err = svc.AdjustAvailability(ctx, p.PublicID, decimal.NewFromInt(-75))
	require.NoError(t, err)
	assert.True(t, level.Available.IsZero())

	_, err = svc.AdjustAvailability(ctx, p.ID, decimal.NewFromInt(-1))
	assert.True(t, domain.IsInsufficientStockError(err))

	_, err = svc.AdjustAvailability(ctx, p.ID, decimal.Zero)
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.AdjustAvailability(ctx, "missing", decimal.NewFromInt(1))
	assert.True(t, domain.IsNotFoundError(err))
}
