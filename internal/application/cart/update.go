package cart

import (
	"context"
	"fmt"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseUpdateAmount = "cart.update_amount"

type UpdateProductAmountInput struct {
	ProductID int64
	Amount    int
}

type UpdateProductAmountUseCase struct {
	instruments
	stock catalog.StockOracle
}

func NewUpdateProductAmountUseCase(
	store *Store,
	stock catalog.StockOracle,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *UpdateProductAmountUseCase {
	return &UpdateProductAmountUseCase{
		instruments: newInstruments(store, publisher, tel),
		stock:       stock,
	}
}

// Execute sets the product's amount exactly. Non-positive amounts are ignored.
// Stock is checked before cart membership.
func (uc *UpdateProductAmountUseCase) Execute(ctx context.Context, cmd UpdateProductAmountInput) (res *Result, err error) {
	ctx, r := uc.begin(ctx, useCaseUpdateAmount, "UpdateProductAmount", domcart.OperationUpdate, cmd.ProductID,
		attribute.Int("cart.amount", cmd.Amount),
	)
	defer func() { r.finish(ctx, res, err) }()

	if cmd.Amount <= 0 {
		r.status("AMOUNT_NOT_POSITIVE")
		return &Result{Outcome: OutcomeIgnored, Cart: uc.store.Cart()}, nil
	}

	current := uc.store.Cart()

	stock, err := uc.stock.Stock(ctx, cmd.ProductID)
	if err != nil {
		return r.fail(ctx, "STOCK_FETCH_FAILED", fmt.Errorf("cart: fetch stock: %w", err))
	}
	if cmd.Amount > stock.Amount {
		return r.fail(ctx, "OUT_OF_STOCK",
			fmt.Errorf("%w: product %d requested %d, available %d", domcart.ErrOutOfStock, cmd.ProductID, cmd.Amount, stock.Amount))
	}

	next, err := current.WithAmount(cmd.ProductID, cmd.Amount)
	if err != nil {
		return r.fail(ctx, "ITEM_NOT_FOUND", fmt.Errorf("cart: update product %d: %w", cmd.ProductID, err))
	}

	if err := uc.store.commit(ctx, next); err != nil {
		return r.fail(ctx, "PERSIST_FAILED", err)
	}
	return &Result{Outcome: OutcomeApplied, Cart: next.Clone()}, nil
}
