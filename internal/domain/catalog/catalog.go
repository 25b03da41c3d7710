// Package catalog describes the read-only product and stock sources the cart consults.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("catalog: product not found")
	ErrUnavailable     = errors.New("catalog: service unavailable")
)

// Product is the display data shown for a cart line.
type Product struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Stock is the maximum purchasable quantity for a product.
type Stock struct {
	ProductID int64 `json:"id"`
	Amount    int   `json:"amount"`
}

// Catalog resolves product display data.
type Catalog interface {
	Product(ctx context.Context, productID int64) (Product, error)
}

// StockOracle resolves the currently available stock for a product.
type StockOracle interface {
	Stock(ctx context.Context, productID int64) (Stock, error)
}
