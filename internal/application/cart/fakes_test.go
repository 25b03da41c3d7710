package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeSnapshots struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	loadErr error
	saveErr error
}

func (f *fakeSnapshots) Load(context.Context) (domcart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return domcart.Cart{}, f.loadErr
	}
	if f.data == nil {
		return domcart.Cart{}, domcart.ErrSnapshotNotFound
	}
	return domcart.DecodeSnapshot(f.data)
}

func (f *fakeSnapshots) Save(_ context.Context, c domcart.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	data, err := domcart.EncodeSnapshot(c)
	if err != nil {
		return err
	}
	f.data = data
	f.saves++
	return nil
}

func assertPersisted(t *testing.T, f *fakeSnapshots, want domcart.Cart) {
	t.Helper()
	expected, err := domcart.EncodeSnapshot(want)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.JSONEq(t, string(expected), string(f.data))
}

type fakeCatalog struct {
	products   map[int64]catalog.Product
	stock      map[int64]int
	productErr error
	stockErr   error
	stockCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[int64]catalog.Product{
			1: {ID: 1, Title: "Runner", Price: decimal.RequireFromString("179.90"), Image: "runner.jpg"},
			2: {ID: 2, Title: "Trail", Price: decimal.RequireFromString("139.90"), Image: "trail.jpg"},
			3: {ID: 3, Title: "Court", Price: decimal.RequireFromString("219.90"), Image: "court.jpg"},
		},
		stock: map[int64]int{1: 3, 2: 5, 3: 2},
	}
}

func (f *fakeCatalog) Product(_ context.Context, id int64) (catalog.Product, error) {
	if f.productErr != nil {
		return catalog.Product{}, f.productErr
	}
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) Stock(_ context.Context, id int64) (catalog.Stock, error) {
	f.stockCalls++
	if f.stockErr != nil {
		return catalog.Stock{}, f.stockErr
	}
	amount, ok := f.stock[id]
	if !ok {
		return catalog.Stock{}, catalog.ErrProductNotFound
	}
	return catalog.Stock{ProductID: id, Amount: amount}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) failures() []domcart.OperationFailedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domcart.OperationFailedEvent
	for _, e := range p.events {
		if f, ok := e.(domcart.OperationFailedEvent); ok {
			out = append(out, f)
		}
	}
	return out
}
