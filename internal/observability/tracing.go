// Package observability wires the scheduler daemon into OpenTelemetry.
// Adapted from the teacher's internal/tracing/otelexport/exporter.go: same
// OTLP grpc/http exporter selection and resource setup, but built around
// plain trace.Tracer spans over job executions instead of the teacher's
// buffered SpanData collector — the scheduler's executions are already
// durably recorded by the execution store, so tracing here is a pure
// overlay for distributed-tracing backends, not a storage path.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/cronforge/scheduler/internal/domain"
)

// Config configures the OpenTelemetry OTLP exporter.
type Config struct {
	Enabled     bool
	Endpoint    string // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string // "grpc" (default) or "http"
	Insecure    bool   // skip TLS for local dev
	ServiceName string // OTEL service name (default "scheduler")
}

// Provider wraps a TracerProvider and exposes span helpers tailored to
// job execution tracing. A nil *Provider is valid and turns every method
// into a no-op, so callers never need to branch on whether tracing is
// enabled.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// New creates an OTLP-backed Provider. If cfg.Enabled is false, it
// returns (nil, nil) — a nil Provider that every method treats as a
// no-op, so call sites never need an enabled check of their own.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("observability: OTLP endpoint is required when tracing is enabled")
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "scheduler"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: otel resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Protocol {
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default: // "grpc"
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("observability: otel exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxExportBatchSize(100),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)

	return &Provider{
		tp:     tp,
		tracer: tp.Tracer("scheduler"),
	}, nil
}

// Shutdown flushes and closes the underlying TracerProvider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	slog.Info("observability: otel provider shutting down")
	return p.tp.Shutdown(ctx)
}

// StartExecutionSpan begins a span covering one firing of a job, including
// all of its retry attempts. Callers should End() the returned span once
// the execution reaches a terminal state.
func (p *Provider) StartExecutionSpan(ctx context.Context, job domain.Job, executionID string) (context.Context, trace.Span) {
	if p == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return p.tracer.Start(ctx, "job.execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("scheduler.job_id", job.ID),
			attribute.String("scheduler.job_name", job.Name),
			attribute.String("scheduler.execution_id", executionID),
			attribute.String("scheduler.target_url", job.TargetURL),
			attribute.String("scheduler.method", string(job.Method)),
		),
	)
}

// StartAttemptSpan begins a child span for a single HTTP invocation
// attempt within an execution's retry loop.
func (p *Provider) StartAttemptSpan(ctx context.Context, attempt int) (context.Context, trace.Span) {
	if p == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return p.tracer.Start(ctx, "job.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("scheduler.attempt", attempt)),
	)
}

// RecordOutcome sets a span's status and result attributes from the
// outcome of an HTTP invocation attempt.
func RecordOutcome(span trace.Span, statusCode int, durationMS int64, err error) {
	if span == nil || !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int64("scheduler.duration_ms", durationMS),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return
	}
	if statusCode >= 200 && statusCode < 400 {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("http status %d", statusCode))
	}
}
