package memory

import (
	"context"
	"sync"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

// SnapshotStore keeps cart snapshots in process memory, keyed like local storage.
type SnapshotStore struct {
	mu   sync.RWMutex
	key  string
	data map[string][]byte
}

var _ domcart.Snapshots = (*SnapshotStore)(nil)

func NewSnapshotStore(key string) *SnapshotStore {
	if key == "" {
		key = domcart.DefaultStorageKey
	}
	return &SnapshotStore{
		key:  key,
		data: make(map[string][]byte),
	}
}

func (s *SnapshotStore) Load(ctx context.Context) (domcart.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domcart.Cart{}, err
	}

	s.mu.RLock()
	raw, ok := s.data[s.key]
	s.mu.RUnlock()

	if !ok {
		return domcart.Cart{}, domcart.ErrSnapshotNotFound
	}
	return domcart.DecodeSnapshot(raw)
}

func (s *SnapshotStore) Save(ctx context.Context, c domcart.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := domcart.EncodeSnapshot(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.key] = raw
	return nil
}

// Raw returns the stored bytes for key, mirroring a local storage getItem.
func (s *SnapshotStore) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	return append([]byte(nil), raw...), ok
}
