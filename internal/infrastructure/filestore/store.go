// Package filestore keeps cart snapshots in a local JSON file that behaves like
// browser local storage: one object mapping string keys to string values.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

type Store struct {
	mu   sync.Mutex
	path string
	key  string
}

var _ domcart.Snapshots = (*Store)(nil)

// New returns a store writing key into the file at path. The file is created on first save.
func New(path, key string) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: path is required")
	}
	if key == "" {
		key = domcart.DefaultStorageKey
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("filestore: create dirs: %w", err)
	}
	return &Store{path: path, key: key}, nil
}

func (s *Store) Load(ctx context.Context) (domcart.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domcart.Cart{}, err
	}
	s.mu.Lock()
	entries, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return domcart.Cart{}, err
	}
	raw, ok := entries[s.key]
	if !ok {
		return domcart.Cart{}, domcart.ErrSnapshotNotFound
	}
	return domcart.DecodeSnapshot([]byte(raw))
}

func (s *Store) Save(ctx context.Context, c domcart.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := domcart.EncodeSnapshot(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.read()
	if err != nil {
		return err
	}
	entries[s.key] = string(raw)
	return s.write(entries)
}

// read returns every key in the file; a missing file is an empty storage.
func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", s.path, err)
	}
	entries := map[string]string{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("filestore: decode %s: %w", s.path, err)
	}
	return entries, nil
}

func (s *Store) write(entries map[string]string) (retErr error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("filestore: replace %s: %w", s.path, err)
	}
	return nil
}
