package cart

import (
	"context"
	"fmt"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const useCaseAddProduct = "cart.add_product"

type AddProductInput struct {
	ProductID int64
}

// AddProductUseCase adds one unit of a product, appending a new line the
// first time the product is seen.
type AddProductUseCase struct {
	instruments
	catalog catalog.Catalog
	stock   catalog.StockOracle
}

func NewAddProductUseCase(
	store *Store,
	products catalog.Catalog,
	stock catalog.StockOracle,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *AddProductUseCase {
	return &AddProductUseCase{
		instruments: newInstruments(store, publisher, tel),
		catalog:     products,
		stock:       stock,
	}
}

// Execute fetches the product and its stock, then increments or appends.
// The first unit of a product is added without a stock check.
func (uc *AddProductUseCase) Execute(ctx context.Context, cmd AddProductInput) (res *Result, err error) {
	ctx, r := uc.begin(ctx, useCaseAddProduct, "AddProduct", domcart.OperationAdd, cmd.ProductID)
	defer func() { r.finish(ctx, res, err) }()

	current := uc.store.Cart()

	product, err := uc.catalog.Product(ctx, cmd.ProductID)
	if err != nil {
		return r.fail(ctx, "PRODUCT_FETCH_FAILED", fmt.Errorf("cart: fetch product: %w", err))
	}
	stock, err := uc.stock.Stock(ctx, cmd.ProductID)
	if err != nil {
		return r.fail(ctx, "STOCK_FETCH_FAILED", fmt.Errorf("cart: fetch stock: %w", err))
	}
	r.span.AddEvent("cart.stock_fetched", trace.WithAttributes(attribute.Int("stock.amount", stock.Amount)))

	var next domcart.Cart
	if existing, ok := current.Find(cmd.ProductID); ok {
		amount := existing.Amount + 1
		if amount > stock.Amount {
			return r.fail(ctx, "OUT_OF_STOCK",
				fmt.Errorf("%w: product %d requested %d, available %d", domcart.ErrOutOfStock, cmd.ProductID, amount, stock.Amount))
		}
		next, err = current.WithAmount(cmd.ProductID, amount)
	} else {
		item := domcart.NewItem(product)
		item.ID = cmd.ProductID
		next, err = current.Append(item)
	}
	if err != nil {
		return r.fail(ctx, "CART_UPDATE_FAILED", fmt.Errorf("cart: add product: %w", err))
	}

	if err := uc.store.commit(ctx, next); err != nil {
		return r.fail(ctx, "PERSIST_FAILED", err)
	}
	return &Result{Outcome: OutcomeApplied, Cart: next.Clone()}, nil
}
