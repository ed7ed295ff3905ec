// Package tracing wires the OpenTelemetry trace provider. Job Service calls
// are instrumented at the HTTP transport level; this package only decides
// where the spans go.
package tracing

import (
	"context"

	"github.com/probe-hub/probe-hub/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs the global trace provider according to conf. When tracing
// is disabled (or no exporter is configured) the provider is left untouched
// and the returned shutdown is a no-op.
func Setup(ctx context.Context, conf *config.TracingConfig, serviceVersion string) (ShutdownFunc, error) {
	if conf == nil || !conf.Enabled {
		return noopShutdown, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch {
	case conf.Stdout:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case conf.Endpoint != "":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(conf.Endpoint)}
		if conf.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return noopShutdown, nil
	}
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "probe-hub"),
		attribute.String("service.version", serviceVersion),
	)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
