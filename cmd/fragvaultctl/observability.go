package main

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/nilsroemer/cryptofrag/internal/guard"
	"github.com/nilsroemer/cryptofrag/internal/metrics"
	"github.com/nilsroemer/cryptofrag/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

// buildGuard constructs the write-once-per-checksum guard a config
// selects: Redis-backed when guard.redis_addr is set (shared across
// fragvaultctl invocations and cmd/server instances), otherwise nil —
// cryptofrag.New falls back to its own in-process MemoryGuard.
func buildGuard(cfg *fileConfig) (guard.Guard, error) {
	if cfg.Guard.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Guard.RedisAddr})
	return guard.NewRedisGuard(client, "fragvault:guard:"), nil
}

// buildTracerProvider installs a tracer provider per cfg.Telemetry and
// returns a shutdown func to flush it before the process exits. With no
// exporter configured it installs a no-op provider.
func buildTracerProvider(ctx context.Context, cfg *fileConfig) (func(context.Context) error, error) {
	exporter := telemetry.ExporterKind(cfg.Telemetry.Exporter)
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		ServiceName: "fragvaultctl",
		Exporter:    exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("build tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	}, nil
}

// buildMetrics constructs a Prometheus metrics recorder against the
// default registry.
func buildMetrics() *metrics.Metrics {
	return metrics.NewMetrics()
}
