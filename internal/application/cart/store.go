package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

// Store owns the in-memory cart and its durable snapshot. It is created once
// per process and handed to consumers explicitly.
//
// Operations capture the cart with Cart() when they start and hand the next
// cart to commit when they finish. Commits are serialized, but overlapping
// operations are not excluded from each other: the last commit wins.
type Store struct {
	mu        sync.RWMutex
	current   domcart.Cart
	snapshots domcart.Snapshots
}

// NewStore seeds the store from the persisted snapshot. A missing snapshot
// yields an empty cart; an unreadable one is an error.
func NewStore(ctx context.Context, snapshots domcart.Snapshots) (*Store, error) {
	if snapshots == nil {
		return nil, errors.New("cart: snapshots are required")
	}
	initial, err := snapshots.Load(ctx)
	switch {
	case errors.Is(err, domcart.ErrSnapshotNotFound):
		initial = domcart.Cart{Items: []domcart.Item{}}
	case err != nil:
		return nil, fmt.Errorf("cart: load snapshot: %w", err)
	}
	return &Store{current: initial.Clone(), snapshots: snapshots}, nil
}

// Cart returns a copy of the current cart.
func (s *Store) Cart() domcart.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// commit persists next and, only if that succeeds, makes it the current cart.
func (s *Store) commit(ctx context.Context, next domcart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.snapshots.Save(ctx, next); err != nil {
		return fmt.Errorf("cart: persist snapshot: %w", err)
	}
	s.current = next.Clone()
	return nil
}
