package cart

import (
	"context"
	"fmt"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
)

const useCaseRemoveProduct = "cart.remove_product"

type RemoveProductInput struct {
	ProductID int64
}

type RemoveProductUseCase struct {
	instruments
}

func NewRemoveProductUseCase(store *Store, publisher domoutbox.Publisher, tel observability.Observability) *RemoveProductUseCase {
	return &RemoveProductUseCase{instruments: newInstruments(store, publisher, tel)}
}

// Execute drops the product's line from the cart.
func (uc *RemoveProductUseCase) Execute(ctx context.Context, cmd RemoveProductInput) (res *Result, err error) {
	ctx, r := uc.begin(ctx, useCaseRemoveProduct, "RemoveProduct", domcart.OperationRemove, cmd.ProductID)
	defer func() { r.finish(ctx, res, err) }()

	next, err := uc.store.Cart().Remove(cmd.ProductID)
	if err != nil {
		return r.fail(ctx, "ITEM_NOT_FOUND", fmt.Errorf("cart: remove product %d: %w", cmd.ProductID, err))
	}

	if err := uc.store.commit(ctx, next); err != nil {
		return r.fail(ctx, "PERSIST_FAILED", err)
	}
	return &Result{Outcome: OutcomeApplied, Cart: next.Clone()}, nil
}
