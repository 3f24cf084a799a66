package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/d60-Lab/warbler/config"
)

// ShutdownFunc 刷新并关闭 exporter
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Init installs the global tracer provider. When tracing is disabled it
// returns a no-op shutdown and leaves the default provider in place.
func Init(ctx context.Context, cfg config.TracingConfig) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noop, nil
	}

	exporter, err := newExporter(ctx, cfg.Endpoint)
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := NewProvider(exporter, cfg)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, endpoint string) (*otlptrace.Exporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	return otlptracehttp.New(ctx, opts...)
}

// NewProvider builds a batching provider around exporter.
func NewProvider(exporter sdktrace.SpanExporter, cfg config.TracingConfig) *sdktrace.TracerProvider {
	name := cfg.ServiceName
	if name == "" {
		name = "warbler"
	}
	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
}
