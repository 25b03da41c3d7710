package cart

import (
	"errors"
	"slices"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound  = errors.New("cart: item not found")
	ErrOutOfStock    = errors.New("cart: requested quantity is out of stock")
	ErrInvalidAmount = errors.New("cart: amount must be greater than zero")
	ErrDuplicateItem = errors.New("cart: item already in cart")
)

// Item is a single cart line.
type Item struct {
	ID     int64           `json:"id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
	Image  string          `json:"image"`
	Amount int             `json:"amount"`
}

// NewItem builds a one-unit cart line from catalog data.
func NewItem(p catalog.Product) Item {
	return Item{
		ID:     p.ID,
		Title:  p.Title,
		Price:  p.Price,
		Image:  p.Image,
		Amount: 1,
	}
}

// Cart is an ordered list of items with unique ids. It is a value: every
// mutation returns a new Cart and leaves the receiver untouched.
type Cart struct {
	Items []Item `json:"items"`
}

// New builds a cart from items, rejecting duplicates and non-positive amounts.
func New(items ...Item) (Cart, error) {
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if it.Amount <= 0 {
			return Cart{}, ErrInvalidAmount
		}
		if _, dup := seen[it.ID]; dup {
			return Cart{}, ErrDuplicateItem
		}
		seen[it.ID] = struct{}{}
	}
	out := make([]Item, len(items))
	copy(out, items)
	return Cart{Items: out}, nil
}

func (c Cart) Len() int { return len(c.Items) }

// Find returns the item with the given id.
func (c Cart) Find(productID int64) (Item, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

// Append adds a new line at the end.
func (c Cart) Append(item Item) (Cart, error) {
	if item.Amount <= 0 {
		return c, ErrInvalidAmount
	}
	if c.index(item.ID) >= 0 {
		return c, ErrDuplicateItem
	}
	items := make([]Item, 0, len(c.Items)+1)
	items = append(items, c.Items...)
	return Cart{Items: append(items, item)}, nil
}

// WithAmount sets the amount of an existing line in place, keeping order.
func (c Cart) WithAmount(productID int64, amount int) (Cart, error) {
	if amount <= 0 {
		return c, ErrInvalidAmount
	}
	i := c.index(productID)
	if i < 0 {
		return c, ErrItemNotFound
	}
	next := c.Clone()
	next.Items[i].Amount = amount
	return next, nil
}

// Remove drops the line with the given id, keeping the order of the rest.
func (c Cart) Remove(productID int64) (Cart, error) {
	i := c.index(productID)
	if i < 0 {
		return c, ErrItemNotFound
	}
	items := make([]Item, 0, len(c.Items)-1)
	items = append(items, c.Items[:i]...)
	items = append(items, c.Items[i+1:]...)
	return Cart{Items: items}, nil
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	if c.Items == nil {
		return Cart{Items: []Item{}}
	}
	return Cart{Items: slices.Clone(c.Items)}
}

func (c Cart) index(productID int64) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ID == productID })
}
