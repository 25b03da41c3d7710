package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
)

func TestCatalog_SeedAndLookup(t *testing.T) {
	c := NewCatalog()
	c.Seed(catalog.Product{ID: 10, Title: "Runner", Price: decimal.NewFromInt(99)}, 4)

	p, err := c.Product(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Runner", p.Title)

	s, err := c.Stock(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, catalog.Stock{ProductID: 10, Amount: 4}, s)

	c.SetStock(10, 0)
	s, err = c.Stock(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Amount)
}

func TestCatalog_UnknownProduct(t *testing.T) {
	c := NewCatalog()

	_, err := c.Product(context.Background(), 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = c.Stock(context.Background(), 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestCatalog_HonoursCanceledContext(t *testing.T) {
	c := DemoCatalog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Product(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = c.Stock(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDemoCatalog_EveryProductHasStock(t *testing.T) {
	c := DemoCatalog()
	for id := int64(1); id <= 6; id++ {
		p, err := c.Product(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, p.Price.IsPositive())

		s, err := c.Stock(context.Background(), id)
		require.NoError(t, err)
		assert.Positive(t, s.Amount)
	}
}
