package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	appcart "github.com/Zhima-Mochi/minishop-cart/internal/application/cart"
	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/notification"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-cart/internal/presentation/messages"
)

// CartService is the cart API the handler drives.
type CartService interface {
	Cart() domcart.Cart
	AddProduct(ctx context.Context, productID int64) (*appcart.Result, error)
	RemoveProduct(ctx context.Context, productID int64) (*appcart.Result, error)
	UpdateProductAmount(ctx context.Context, cmd appcart.UpdateProductAmountInput) (*appcart.Result, error)
}

// NotificationSource lists the notifications shown to the shopper, oldest first.
type NotificationSource interface {
	Recent() []notification.Notification
}

type Handler struct {
	cart          CartService
	notifications NotificationSource
	metrics       http.Handler
	log           observability.Logger
	tel           observability.Observability
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxBodyBytes         = 1 << 20
)

type Option func(*Handler)

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(hd *Handler) { hd.metrics = h }
}

func WithNotifications(src NotificationSource) Option {
	return func(hd *Handler) { hd.notifications = src }
}

func NewHandler(cartSvc CartService, logger observability.Logger, tel observability.Observability, opts ...Option) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = tel.Logger()
	}
	h := &Handler{
		cart: cartSvc,
		log:  baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:  tel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Trace → ObservabilityMiddleware (request logger + metrics) → Access log → Handler
	h.route(r, http.MethodGet, "/cart", h.handleGetCart)
	h.route(r, http.MethodPost, "/cart/items", h.handleAddProduct)
	h.route(r, http.MethodPut, "/cart/items/{productID}", h.handleUpdateAmount)
	h.route(r, http.MethodDelete, "/cart/items/{productID}", h.handleRemoveProduct)
	h.route(r, http.MethodGet, "/notifications", h.handleNotifications)
	h.route(r, http.MethodGet, "/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	return r
}

func (h *Handler) route(r chi.Router, method, pattern string, handler http.HandlerFunc) {
	route := method + " " + pattern
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			h.tel,
		)(
			h.withAccessLog(handler),
		),
	)
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), route)))
	}))
}

type mutationResponse struct {
	Outcome appcart.Outcome `json:"outcome"`
	Message string          `json:"message,omitempty"`
	Cart    domcart.Cart    `json:"cart"`
}

type addProductRequest struct {
	ProductID int64 `json:"product_id"`
}

type updateAmountRequest struct {
	Amount *int `json:"amount"`
}

func (h *Handler) handleGetCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cart.Cart())
}

func (h *Handler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ProductID <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("product_id must be positive"))
		return
	}

	res, err := h.cart.AddProduct(r.Context(), req.ProductID)
	h.writeResult(w, domcart.OperationAdd, res, err)
}

func (h *Handler) handleUpdateAmount(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updateAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, errors.New("amount is required"))
		return
	}

	res, err := h.cart.UpdateProductAmount(r.Context(), appcart.UpdateProductAmountInput{
		ProductID: productID,
		Amount:    *req.Amount,
	})
	h.writeResult(w, domcart.OperationUpdate, res, err)
}

func (h *Handler) handleRemoveProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.cart.RemoveProduct(r.Context(), productID)
	h.writeResult(w, domcart.OperationRemove, res, err)
}

func (h *Handler) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	items := []notification.Notification{}
	if h.notifications != nil {
		items = append(items, h.notifications.Recent()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// writeResult maps an operation outcome onto the response status and shopper message.
func (h *Handler) writeResult(w http.ResponseWriter, op domcart.Operation, res *appcart.Result, err error) {
	outcome := appcart.OutcomeOf(err)
	c := h.cart.Cart()
	if res != nil {
		outcome = res.Outcome
		c = res.Cart
	}

	body := mutationResponse{Outcome: outcome, Cart: c}
	status := http.StatusOK
	switch outcome {
	case appcart.OutcomeApplied, appcart.OutcomeIgnored:
	case appcart.OutcomeOutOfStock:
		status = http.StatusConflict
		body.Message = messages.For(op, domcart.FailureOutOfStock)
	case appcart.OutcomeNotFound:
		status = http.StatusNotFound
		body.Message = messages.For(op, domcart.FailureNotFound)
	default:
		status = http.StatusBadGateway
		body.Message = messages.For(op, domcart.FailureUnexpected)
	}
	writeJSON(w, status, body)
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("minishop-cart.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

func productIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
