package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func newRecordingProvider(t *testing.T, cfg Config) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := NewTracerProvider(cfg, sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func TestNewTracerProvider_Resource(t *testing.T) {
	tp, recorder := newRecordingProvider(t, Config{
		ServiceName:    "textile-shop",
		ServiceVersion: "1.2.3",
		Store:          "sqlite",
		SampleRatio:    1,
	})

	_, span := tp.Tracer("test").Start(context.Background(), "create order")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := ended[0].Resource().Attributes()
	assert.Contains(t, attrs, semconv.ServiceName("textile-shop"))
	assert.Contains(t, attrs, semconv.ServiceVersion("1.2.3"))
	assert.Contains(t, attrs, StoreAttribute.String("sqlite"))
}

func TestNewTracerProvider_SampleRatio(t *testing.T) {
	t.Run("zero ratio drops new traces", func(t *testing.T) {
		tp, recorder := newRecordingProvider(t, Config{ServiceName: "textile-shop", SampleRatio: 0})

		_, span := tp.Tracer("test").Start(context.Background(), "list products")
		span.End()

		assert.False(t, span.SpanContext().IsSampled())
		assert.Empty(t, recorder.Ended())
	})

	t.Run("sampled parent is followed", func(t *testing.T) {
		parentTP, _ := newRecordingProvider(t, Config{ServiceName: "textile-shop", SampleRatio: 1})
		ctx, parent := parentTP.Tracer("api").Start(context.Background(), "publish order.created")
		defer parent.End()

		tp, recorder := newRecordingProvider(t, Config{ServiceName: "textile-shop-notifier", SampleRatio: 0})
		_, child := tp.Tracer("worker").Start(ctx, "process order.created")
		child.End()

		assert.True(t, child.SpanContext().IsSampled())
		assert.Len(t, recorder.Ended(), 1)
	})
}

func TestWithHTTPRoute(t *testing.T) {
	tp, recorder := newRecordingProvider(t, Config{ServiceName: "textile-shop", SampleRatio: 1})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{orderId}", WithHTTPRoute(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx, span := tp.Tracer("test").Start(context.Background(), "GET")
	req := httptest.NewRequest(http.MethodGet, "/orders/ORD-000001", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	span.End()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Contains(t, ended[0].Attributes(), attribute.String("http.route", "GET /orders/{orderId}"))
}
