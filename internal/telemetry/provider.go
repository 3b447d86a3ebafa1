package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const DefaultOTLPEndpoint = "localhost:4317"

// StoreAttribute names the storage backend on every span and metric, so
// traces from a sqlite dev instance never mix with production dashboards.
const StoreAttribute = attribute.Key("textile_shop.store")

type Config struct {
	ServiceName    string
	ServiceVersion string
	Store          string
	OTLPEndpoint   string
	// SampleRatio is the share of new traces kept. Spans whose parent was
	// sampled, such as order events consumed from Kafka, follow the parent.
	SampleRatio float64
}

func (c Config) resource() *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(c.ServiceVersion),
	}
	if c.Store != "" {
		attrs = append(attrs, StoreAttribute.String(c.Store))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

// InitTracerProvider ships spans to the OTLP collector at cfg.OTLPEndpoint
// and installs the W3C propagators the HTTP API and the Kafka messages use
// to carry trace context between the API and the notification worker.
func InitTracerProvider(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	endpoint := cfg.OTLPEndpoint
	if endpoint == "" {
		endpoint = DefaultOTLPEndpoint
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tp := NewTracerProvider(cfg, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// NewTracerProvider builds the shop's tracer provider around the given span
// processors without installing it globally.
func NewTracerProvider(cfg Config, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(cfg.resource()),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}, opts...)...)
}

// WithHTTPRoute records the matched route pattern, e.g.
// "PUT /orders/{orderId}/status", on the request span. otelhttp wraps the
// whole mux and only sees the raw path.
func WithHTTPRoute(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Pattern != "" {
			trace.SpanFromContext(r.Context()).SetAttributes(semconv.HTTPRoute(r.Pattern))
		}
		h(w, r)
	}
}
