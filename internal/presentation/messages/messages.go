// Package messages renders cart failures as the fixed strings shown to shoppers.
package messages

import (
	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

const (
	OutOfStock          = "Requested quantity is out of stock"
	AddFailed           = "Failed to add product"
	RemoveFailed        = "Failed to remove product"
	UpdateAmountFailed  = "Failed to update product amount"
	unexpectedOperation = "Something went wrong"
)

// For returns the shopper-facing text for a failed operation.
// Remove has no stock check, so every removal failure uses the generic text.
func For(op domcart.Operation, kind domcart.FailureKind) string {
	switch op {
	case domcart.OperationAdd:
		if kind == domcart.FailureOutOfStock {
			return OutOfStock
		}
		return AddFailed
	case domcart.OperationRemove:
		return RemoveFailed
	case domcart.OperationUpdate:
		if kind == domcart.FailureOutOfStock {
			return OutOfStock
		}
		return UpdateAmountFailed
	default:
		return unexpectedOperation
	}
}
