package cart

import (
	"context"

	"github.com/Zhima-Mochi/minishop-cart/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
)

// Service is the cart API handed to consumers: read access plus the three mutations.
type Service struct {
	store  *Store
	add    application.UseCase[AddProductInput, *Result]
	remove application.UseCase[RemoveProductInput, *Result]
	update application.UseCase[UpdateProductAmountInput, *Result]
}

func NewService(
	store *Store,
	products catalog.Catalog,
	stock catalog.StockOracle,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Service {
	return &Service{
		store:  store,
		add:    NewAddProductUseCase(store, products, stock, publisher, tel),
		remove: NewRemoveProductUseCase(store, publisher, tel),
		update: NewUpdateProductAmountUseCase(store, stock, publisher, tel),
	}
}

func (s *Service) Cart() domcart.Cart {
	return s.store.Cart()
}

func (s *Service) AddProduct(ctx context.Context, productID int64) (*Result, error) {
	return s.add.Execute(ctx, AddProductInput{ProductID: productID})
}

func (s *Service) RemoveProduct(ctx context.Context, productID int64) (*Result, error) {
	return s.remove.Execute(ctx, RemoveProductInput{ProductID: productID})
}

func (s *Service) UpdateProductAmount(ctx context.Context, cmd UpdateProductAmountInput) (*Result, error) {
	return s.update.Execute(ctx, cmd)
}
