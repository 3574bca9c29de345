// Package tracing wires an OpenTelemetry TracerProvider for the engine's
// per-operation spans (spec.md §5 suspension points: every writer
// operation is one span).
package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Init installs a global TracerProvider that exports finished spans to
// logger at debug level. Returns a shutdown function for graceful exit.
func Init(serviceName string, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	res, err := resource.New(context.Background(), resource.WithAttributes())
	if err != nil {
		return nil, err
	}
	exporter := &slogExporter{logger: logger}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// slogExporter adapts finished spans onto a structured logger. It is a
// thin stand-in for an OTLP exporter: it carries no network dependency,
// which keeps the engine runnable with zero external collectors while
// still producing the same span/attribute shape downstream tooling reads.
type slogExporter struct {
	logger *slog.Logger
}

func (e *slogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if e.logger == nil {
		return nil
	}
	for _, s := range spans {
		e.logger.Debug("span",
			slog.String("name", s.Name()),
			slog.String("trace_id", s.SpanContext().TraceID().String()),
			slog.String("span_id", s.SpanContext().SpanID().String()),
			slog.Duration("duration", s.EndTime().Sub(s.StartTime())),
		)
	}
	return nil
}

func (e *slogExporter) Shutdown(ctx context.Context) error {
	return nil
}
