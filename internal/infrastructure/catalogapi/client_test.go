package catalogapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
)

func newCatalogServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var stockHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"title":"Tenis de Caminhada Leve Confortável","price":179.9,"image":"https://example.com/1.jpg"}`))
	})
	mux.HandleFunc("GET /stock/1", func(w http.ResponseWriter, r *http.Request) {
		stockHits.Add(1)
		_, _ = w.Write([]byte(`{"id":1,"amount":3}`))
	})
	mux.HandleFunc("GET /products/7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	mux.HandleFunc("GET /stock/9", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &stockHits
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New(Options{}, nil)
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "localhost:3333"}, nil)
	assert.Error(t, err)
}

func TestClient_Product(t *testing.T) {
	srv, _ := newCatalogServer(t)
	c, err := New(Options{BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)

	p, err := c.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Tenis de Caminhada Leve Confortável", p.Title)
	assert.Equal(t, "179.9", p.Price.String())
	assert.Equal(t, "https://example.com/1.jpg", p.Image)
}

func TestClient_Stock(t *testing.T) {
	srv, _ := newCatalogServer(t)
	c, err := New(Options{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	s, err := c.Stock(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, catalog.Stock{ProductID: 1, Amount: 3}, s)
}

func TestClient_ErrorMapping(t *testing.T) {
	srv, _ := newCatalogServer(t)
	c, err := New(Options{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = c.Product(context.Background(), 404)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = c.Product(context.Background(), 7)
	assert.ErrorIs(t, err, catalog.ErrUnavailable)

	_, err = c.Stock(context.Background(), 9)
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = c.Stock(context.Background(), 1)
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Minute}, nil)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := c.Stock(context.Background(), 1)
		assert.ErrorIs(t, err, catalog.ErrUnavailable)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, BreakerFailures: 1}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Product(context.Background(), 5)
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	var slow atomic.Bool
	slow.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if slow.Load() {
			select {
			case <-time.After(30 * time.Millisecond):
			case <-r.Context().Done():
				return
			}
		}
		_, _ = w.Write([]byte(`{"id":1,"title":"Leve","price":179.9,"image":"1.jpg"}`))
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Minute}, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := c.Product(ctx, 1)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	slow.Store(false)
	p, err := c.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Leve", p.Title)
	assert.Equal(t, int32(6), hits.Load())
}

func TestClient_ConcurrentStockLookupsShareOneRequest(t *testing.T) {
	var hits atomic.Int32
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-gate
		_, _ = w.Write([]byte(`{"id":2,"amount":5}`))
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]catalog.Stock, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.Stock(context.Background(), 2)
			assert.NoError(t, err)
			results[i] = s
		}()
	}
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for _, s := range results {
		assert.Equal(t, 5, s.Amount)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_SharedStockLookupOutlivesCancelledCaller(t *testing.T) {
	var hits atomic.Int32
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-gate
		_, _ = w.Write([]byte(`{"id":1,"amount":4}`))
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Stock(ctxA, 1)
		errA <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	type stockResult struct {
		stock catalog.Stock
		err   error
	}
	resB := make(chan stockResult, 1)
	go func() {
		s, err := c.Stock(context.Background(), 1)
		resB <- stockResult{s, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, catalog.ErrUnavailable)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared lookup")
	}

	close(gate)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.Equal(t, 4, res.stock.Amount)
	case <-time.After(time.Second):
		t.Fatal("second caller never got the shared result")
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_RecordsExternalRequestMetrics(t *testing.T) {
	srv, _ := newCatalogServer(t)
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New(reg, "", ""))
	tel := telemetry.New(observability.NopTracer(), observability.NopLogger(), counters, histograms)

	c, err := New(Options{BaseURL: srv.URL}, tel)
	require.NoError(t, err)

	_, err = c.Product(context.Background(), 1)
	require.NoError(t, err)
	_, err = c.Product(context.Background(), 404)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "external_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
