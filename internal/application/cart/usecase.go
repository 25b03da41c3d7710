package cart

import (
	"context"
	"time"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	cartService     = "cart-service"
	spanPrefix      = "UC."
	publishPeer     = "outbox"
	publishEndpoint = domcart.EventOperationFailed
	publishTimeout  = 300 * time.Millisecond
)

// instruments bundles the collaborators every cart use case shares.
type instruments struct {
	store     *Store
	publisher domoutbox.Publisher

	// Base logger with fixed fields prebound (vendor must remain hidden).
	log    observability.Logger
	tracer observability.Tracer

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func newInstruments(store *Store, publisher domoutbox.Publisher, tel observability.Observability) instruments {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return instruments{
		store:        store,
		publisher:    publisher,
		log:          tel.Logger().With(observability.F("service", cartService)),
		tracer:       tel.Tracer(),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// run is one in-flight use case execution.
type run struct {
	in        *instruments
	useCase   string
	op        domcart.Operation
	productID int64
	span      trace.Span
	logger    observability.Logger
	start     time.Time
	statusTxt string
}

func (in *instruments) begin(ctx context.Context, useCase, spanName string, op domcart.Operation, productID int64, attrs ...attribute.KeyValue) (context.Context, *run) {
	attrs = append([]attribute.KeyValue{
		attribute.String("use_case", useCase),
		attribute.Int64("product.id", productID),
	}, attrs...)
	ctx, span := in.tracer.Start(ctx, spanPrefix+spanName, attrs...)

	ctx, logger := logctx.Enrich(ctx, in.log,
		observability.F("use_case", useCase),
		observability.F("product_id", productID),
	)
	return ctx, &run{
		in:        in,
		useCase:   useCase,
		op:        op,
		productID: productID,
		span:      span,
		logger:    logger,
		start:     time.Now(),
		statusTxt: "OK",
	}
}

// status records a machine-readable status for the span and the closing log line.
func (r *run) status(s string) { r.statusTxt = s }

// finish closes the span, records RED metrics and writes the use_case_done log line.
func (r *run) finish(ctx context.Context, res *Result, err error) {
	lat := time.Since(r.start).Seconds()
	outcome := OutcomeOf(err)
	if res != nil {
		outcome = res.Outcome
	}

	if r.span != nil {
		r.span.SetAttributes(attribute.String("cart.outcome", string(outcome)))
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.statusTxt)
		} else {
			r.span.SetStatus(codes.Ok, r.statusTxt)
		}
		r.span.End()
	}

	r.in.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", string(outcome)),
	)
	r.in.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", string(outcome)),
		observability.F("status", r.statusTxt),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if res != nil {
		fields = append(fields, observability.F("cart_items", res.Cart.Len()))
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.logger.Info("use_case_done", fields...)
}

// fail builds the failure result, leaving the cart untouched, and notifies
// subscribers without letting a publish problem change the outcome.
func (r *run) fail(ctx context.Context, status string, err error) (*Result, error) {
	r.status(status)
	outcome := OutcomeOf(err)
	if pubErr := r.in.publish(ctx, domcart.NewOperationFailedEvent(r.op, failureKind(outcome), r.productID, err.Error())); pubErr != nil {
		r.logger.Warn("failure_event_publish_failed", observability.F("error", pubErr.Error()))
	}
	return &Result{Outcome: outcome, Cart: r.in.store.Cart()}, err
}

func (in *instruments) publish(ctx context.Context, event domoutbox.Event) error {
	if in.publisher == nil || event == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	start := time.Now()
	err := in.publisher.Publish(pubCtx, event)
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		err = pubCtx.Err()
	}
	cancel()

	in.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
		observability.L("outcome", outcome),
	)
	in.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
	)
	return err
}
