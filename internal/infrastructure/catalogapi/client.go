// Package catalogapi talks to the remote product and stock API.
package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
)

const (
	peer             = "catalog"
	endpointProducts = "products"
	endpointStock    = "stock"
	maxBodyBytes     = 1 << 20
)

type Options struct {
	BaseURL string
	// Timeout bounds a single request. Zero means no client side timeout.
	Timeout time.Duration
	// Transport is wrapped with otelhttp. nil uses http.DefaultTransport.
	Transport http.RoundTripper
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client implements catalog.Catalog and catalog.StockOracle over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	stockSF singleflight.Group

	log          observability.Logger
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

var (
	_ catalog.Catalog     = (*Client)(nil)
	_ catalog.StockOracle = (*Client)(nil)
)

func New(opts Options, tel observability.Observability) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("catalogapi: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("catalogapi: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("catalogapi: base url %q must be absolute", opts.BaseURL)
	}
	if tel == nil {
		tel = observability.Nop()
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}

	log := tel.Logger().With(observability.F("component", "catalogapi"))
	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		log:          log,
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    peer,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A missing product is an answer, not an outage. Neither is a caller
		// giving up on its own request.
		IsSuccessful: func(err error) bool {
			var abandoned *callerAbandonedError
			return err == nil || errors.Is(err, catalog.ErrProductNotFound) || errors.As(err, &abandoned)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit_breaker_state_changed",
				observability.F("breaker", name),
				observability.F("from", from.String()),
				observability.F("to", to.String()),
			)
		},
	})
	return c, nil
}

func (c *Client) Product(ctx context.Context, id int64) (catalog.Product, error) {
	body, err := c.get(ctx, endpointProducts, id)
	if err != nil {
		return catalog.Product{}, err
	}
	var p catalog.Product
	if err := json.Unmarshal(body, &p); err != nil {
		return catalog.Product{}, fmt.Errorf("catalogapi: decode product %d: %w", id, errors.Join(catalog.ErrUnavailable, err))
	}
	return p, nil
}

// Stock collapses concurrent lookups of the same product into one request.
// The shared request is detached from the first caller's cancellation; each
// caller stops waiting when its own ctx is done.
func (c *Client) Stock(ctx context.Context, id int64) (catalog.Stock, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.stockSF.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
		body, err := c.get(shared, endpointStock, id)
		if err != nil {
			return catalog.Stock{}, err
		}
		var s catalog.Stock
		if err := json.Unmarshal(body, &s); err != nil {
			return catalog.Stock{}, fmt.Errorf("catalogapi: decode stock %d: %w", id, errors.Join(catalog.ErrUnavailable, err))
		}
		return s, nil
	})
	select {
	case <-ctx.Done():
		return catalog.Stock{}, fmt.Errorf("catalogapi: stock %d: %w", id, errors.Join(catalog.ErrUnavailable, ctx.Err()))
	case res := <-ch:
		if res.Err != nil {
			return catalog.Stock{}, res.Err
		}
		return res.Val.(catalog.Stock), nil
	}
}

func (c *Client) get(ctx context.Context, endpoint string, id int64) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		body, err := c.do(ctx, endpoint, id)
		if err != nil && ctx.Err() != nil {
			return nil, &callerAbandonedError{err: err}
		}
		return body, err
	})

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrProductNotFound):
		outcome = "not_found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
		err = fmt.Errorf("catalogapi: %s %d: %w", endpoint, id, errors.Join(catalog.ErrUnavailable, err))
	case ctx.Err() != nil:
		outcome = "canceled"
	default:
		outcome = "error"
	}
	c.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	c.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
	if err != nil {
		logctx.FromOr(ctx, c.log).Warn("catalog_request_failed",
			observability.F("endpoint", endpoint),
			observability.F("id", id),
			observability.F("outcome", outcome),
			observability.F("error", err),
		)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, endpoint string, id int64) ([]byte, error) {
	u := c.base.JoinPath(endpoint, strconv.FormatInt(id, 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalogapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalogapi: %s %d: %w", endpoint, id, errors.Join(catalog.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("catalogapi: %s %d: %w", endpoint, id, catalog.ErrProductNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("catalogapi: %s %d: status %d: %w", endpoint, id, resp.StatusCode, catalog.ErrUnavailable)
	}

	body, err := readAll(resp, maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("catalogapi: read %s %d: %w", endpoint, id, errors.Join(catalog.ErrUnavailable, err))
	}
	return body, nil
}

// callerAbandonedError marks a request that failed because the caller's ctx
// ended, so the breaker does not count it against the catalog.
type callerAbandonedError struct{ err error }

func (e *callerAbandonedError) Error() string { return e.err.Error() }
func (e *callerAbandonedError) Unwrap() error { return e.err }

func readAll(resp *http.Response, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return body, nil
}
