package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultStorageKey is the key the storefront has always written its cart under.
const DefaultStorageKey = "@RocketShoes:cart"

var (
	ErrSnapshotNotFound = errors.New("cart: snapshot not found")
	ErrInvalidSnapshot  = errors.New("cart: invalid snapshot")
)

// Snapshots persists the full cart under a single durable key.
// Load returns ErrSnapshotNotFound when nothing has been saved yet.
type Snapshots interface {
	Load(ctx context.Context) (Cart, error)
	Save(ctx context.Context, c Cart) error
}

// snapshotPrice writes the price as a bare JSON number, the format the
// storefront has always stored. Reading accepts numbers and strings.
type snapshotPrice decimal.Decimal

func (p snapshotPrice) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(p).String()), nil
}

func (p *snapshotPrice) UnmarshalJSON(data []byte) error {
	return (*decimal.Decimal)(p).UnmarshalJSON(data)
}

type snapshotItem struct {
	ID     int64         `json:"id"`
	Title  string        `json:"title"`
	Price  snapshotPrice `json:"price"`
	Image  string        `json:"image"`
	Amount int           `json:"amount"`
}

// EncodeSnapshot serializes the cart as a JSON array of items.
func EncodeSnapshot(c Cart) ([]byte, error) {
	items := make([]snapshotItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, snapshotItem{
			ID:     it.ID,
			Title:  it.Title,
			Price:  snapshotPrice(it.Price),
			Image:  it.Image,
			Amount: it.Amount,
		})
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("cart: encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a JSON array of items and validates cart invariants.
func DecodeSnapshot(data []byte) (Cart, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Cart{Items: []Item{}}, nil
	}
	var raw []snapshotItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return Cart{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	items := make([]Item, 0, len(raw))
	for _, it := range raw {
		items = append(items, Item{
			ID:     it.ID,
			Title:  it.Title,
			Price:  decimal.Decimal(it.Price),
			Image:  it.Image,
			Amount: it.Amount,
		})
	}
	c, err := New(items...)
	if err != nil {
		return Cart{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return c, nil
}
