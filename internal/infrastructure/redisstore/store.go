// Package redisstore keeps the cart snapshot under a single Redis key.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

type Store struct {
	client *redis.Client
	key    string
}

var _ domcart.Snapshots = (*Store)(nil)

// New uses client for every call. The snapshot never expires.
func New(client *redis.Client, key string) (*Store, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is required")
	}
	if key == "" {
		key = domcart.DefaultStorageKey
	}
	return &Store{client: client, key: key}, nil
}

func (s *Store) Load(ctx context.Context) (domcart.Cart, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domcart.Cart{}, domcart.ErrSnapshotNotFound
	}
	if err != nil {
		return domcart.Cart{}, fmt.Errorf("redisstore: get %s: %w", s.key, err)
	}
	return domcart.DecodeSnapshot(data)
}

func (s *Store) Save(ctx context.Context, c domcart.Cart) error {
	raw, err := domcart.EncodeSnapshot(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, string(raw), 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", s.key, err)
	}
	return nil
}
