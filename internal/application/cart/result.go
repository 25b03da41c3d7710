package cart

import (
	"errors"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

// Outcome is the typed result of a cart operation.
type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeIgnored    Outcome = "ignored"
	OutcomeOutOfStock Outcome = "out_of_stock"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeFailed     Outcome = "failed"
)

// Result reports what an operation did and the cart as it stands afterwards.
type Result struct {
	Outcome Outcome
	Cart    domcart.Cart
}

// OK reports whether the cart is in the state the caller asked for.
func (r *Result) OK() bool {
	return r != nil && (r.Outcome == OutcomeApplied || r.Outcome == OutcomeIgnored)
}

// OutcomeOf classifies an operation error.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeApplied
	case errors.Is(err, domcart.ErrOutOfStock):
		return OutcomeOutOfStock
	case errors.Is(err, domcart.ErrItemNotFound):
		return OutcomeNotFound
	default:
		return OutcomeFailed
	}
}

func failureKind(o Outcome) domcart.FailureKind {
	switch o {
	case OutcomeOutOfStock:
		return domcart.FailureOutOfStock
	case OutcomeNotFound:
		return domcart.FailureNotFound
	default:
		return domcart.FailureUnexpected
	}
}
