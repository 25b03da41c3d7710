package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
)

// Catalog is an in-process product catalog and stock oracle for local runs and tests.
type Catalog struct {
	mu       sync.RWMutex
	products map[int64]catalog.Product
	stock    map[int64]int
}

var (
	_ catalog.Catalog     = (*Catalog)(nil)
	_ catalog.StockOracle = (*Catalog)(nil)
)

func NewCatalog() *Catalog {
	return &Catalog{
		products: make(map[int64]catalog.Product),
		stock:    make(map[int64]int),
	}
}

// Seed registers a product together with its available stock.
func (c *Catalog) Seed(p catalog.Product, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
	c.stock[p.ID] = stock
}

// SetStock changes the available amount of an already known product.
func (c *Catalog) SetStock(productID int64, amount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stock[productID] = amount
}

func (c *Catalog) Product(ctx context.Context, productID int64) (catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Product{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return catalog.Product{}, fmt.Errorf("memory: product %d: %w", productID, catalog.ErrProductNotFound)
	}
	return p, nil
}

func (c *Catalog) Stock(ctx context.Context, productID int64) (catalog.Stock, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Stock{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	amount, ok := c.stock[productID]
	if !ok {
		return catalog.Stock{}, fmt.Errorf("memory: stock %d: %w", productID, catalog.ErrProductNotFound)
	}
	return catalog.Stock{ProductID: productID, Amount: amount}, nil
}

// DemoCatalog returns a catalog seeded with a small shoe range.
func DemoCatalog() *Catalog {
	c := NewCatalog()
	for _, s := range []struct {
		id    int64
		title string
		price string
		stock int
	}{
		{1, "Tênis de Caminhada Leve Confortável", "179.90", 3},
		{2, "Tênis VR Caminhada Confortável Detalhes Couro Masculino", "139.90", 5},
		{3, "Tênis Adidas Duramo Lite 2.0", "219.90", 2},
		{4, "Tênis de Caminhada Soft Masculino", "179.90", 1},
		{5, "Tênis VR Runner Masculino", "189.90", 5},
		{6, "Tênis Olympikus Flux Feminino", "149.90", 10},
	} {
		c.Seed(catalog.Product{
			ID:    s.id,
			Title: s.title,
			Price: decimal.RequireFromString(s.price),
			Image: fmt.Sprintf("https://static.minishop.local/products/%d.jpg", s.id),
		}, s.stock)
	}
	return c
}
