package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

func TestStore_MissingFileIsMissingSnapshot(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "nested", "storage.json"), "")
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, domcart.ErrSnapshotNotFound)
}

func TestStore_RoundTripKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o600))

	s, err := New(path, "")
	require.NoError(t, err)

	c, err := domcart.New(domcart.Item{ID: 3, Title: "Duramo", Price: decimal.RequireFromString("219.9"), Amount: 2})
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), c))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, int64(3), got.Items[0].ID)
	assert.Equal(t, 2, got.Items[0].Amount)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"theme": "dark",
		"@RocketShoes:cart": "[{\"id\":3,\"title\":\"Duramo\",\"price\":219.9,\"image\":\"\",\"amount\":2}]"
	}`, string(data))
}

func TestStore_ReadsLegacyNumericPrices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"@RocketShoes:cart":"[{\"id\":1,\"title\":\"Leve\",\"price\":179.9,\"image\":\"x\",\"amount\":1}]"}`), 0o600))

	s, err := New(path, "")
	require.NoError(t, err)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("179.9")))
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))

	s, err := New(path, "")
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domcart.ErrSnapshotNotFound)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("", "")
	assert.Error(t, err)
}
