// Package telemetry builds an OpenTelemetry tracer provider for the
// pipeline's store/retrieve spans. The gateway pack carries the full
// otel/sdk/exporter stack without using it directly in the core
// pipeline; here it backs spans wrapping producer.Store and
// consumer.Retrieve so a slow or failing store/retrieve can be traced
// end to end across the CPU pool and I/O gate.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// ExporterKind selects which span exporter a TracerProvider is built
// with.
type ExporterKind string

const (
	ExporterStdout ExporterKind = "stdout"
	ExporterOTLP   ExporterKind = "otlp"
	ExporterJaeger ExporterKind = "jaeger"
	ExporterNone   ExporterKind = "none"
)

// Config configures NewTracerProvider.
type Config struct {
	ServiceName string
	Exporter    ExporterKind
	// Endpoint is the collector address for ExporterOTLP (gRPC target)
	// or ExporterJaeger (collector HTTP endpoint).
	Endpoint string
}

// NewTracerProvider builds a *sdktrace.TracerProvider per cfg. Callers
// must call Shutdown on the returned provider to flush pending spans.
func NewTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cryptofrag"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	var opts []sdktrace.TracerProviderOption
	opts = append(opts, sdktrace.WithResource(res))

	switch cfg.Exporter {
	case ExporterNone, "":
		return sdktrace.NewTracerProvider(opts...), nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case ExporterOTLP:
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("telemetry: otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case ExporterJaeger:
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
		if err != nil {
			return nil, fmt.Errorf("telemetry: jaeger exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("telemetry: unknown exporter kind %q", cfg.Exporter)
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

// Tracer is the package-level tracer producer.Store/consumer.Retrieve
// spans are created against, once a provider is installed via
// otel.SetTracerProvider.
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/nilsroemer/cryptofrag")
}

// StartStoreSpan starts a span around one Store call.
func StartStoreSpan(ctx context.Context, payloadChecksum string, fragmentCount, replicationFactor int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "cryptofrag.Store", trace.WithAttributes(
		attribute.String("payload_checksum", payloadChecksum),
		attribute.Int("fragment_count", fragmentCount),
		attribute.Int("replication_factor", replicationFactor),
	))
}

// StartRetrieveSpan starts a span around one Retrieve call.
func StartRetrieveSpan(ctx context.Context, payloadChecksum string, fragmentCount int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "cryptofrag.Retrieve", trace.WithAttributes(
		attribute.String("payload_checksum", payloadChecksum),
		attribute.Int("fragment_count", fragmentCount),
	))
}
