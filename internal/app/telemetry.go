package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/joao-fontenele/textile-shop/internal/config"
	"github.com/joao-fontenele/textile-shop/internal/telemetry"
)

// InitTelemetry installs the meter provider and, when enabled, the OTLP
// tracer provider. It returns the Prometheus handler and a shutdown func.
func InitTelemetry(ctx context.Context, cfg *config.Config, serviceName string) (http.Handler, func(context.Context) error, error) {
	tcfg := telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.ServiceVersion,
		Store:          cfg.StoreDriver,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRatio:    cfg.TraceRatio,
	}

	metricsHandler, shutdownMetrics, err := telemetry.InitMeterProvider(tcfg)
	if err != nil {
		return nil, nil, err
	}

	shutdownTracer := func(context.Context) error { return nil }
	if cfg.OTelEnabled {
		shutdownTracer, err = telemetry.InitTracerProvider(ctx, tcfg)
		if err != nil {
			return nil, nil, errors.Join(err, shutdownMetrics(ctx))
		}
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(shutdownTracer(ctx), shutdownMetrics(ctx))
	}
	return metricsHandler, shutdown, nil
}
