package oteltrace

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestNewProvider_StartsRecordingSpans(t *testing.T) {
	shutdown, err := NewProvider(context.Background(), ProviderOptions{Service: "cart", Env: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx, span := New("").Start(context.Background(), "UC.AddProduct", attribute.Int64("product.id", 1))
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
}

func TestNewProvider_StdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := NewProvider(context.Background(), ProviderOptions{
		Service:  "cart",
		Exporter: ExporterStdout,
		Writer:   &buf,
	})
	require.NoError(t, err)

	_, span := New("").Start(context.Background(), "UC.RemoveProduct")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "UC.RemoveProduct")
}

func TestNewProvider_PropagatesW3CAndB3(t *testing.T) {
	shutdown, err := NewProvider(context.Background(), ProviderOptions{Service: "cart"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx, span := New("").Start(context.Background(), "UC.AddProduct")
	defer span.End()

	carrier := propagation.HeaderCarrier(http.Header{})
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	assert.NotEmpty(t, carrier.Get("traceparent"))
	assert.Equal(t, span.SpanContext().TraceID().String(), carrier.Get("X-B3-TraceId"))
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), ProviderOptions{Exporter: "zipkin"})
	assert.Error(t, err)
}
