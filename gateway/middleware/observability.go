package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"swapmesh/observability/metrics"
)

// Observability wraps a route with a trace span and request log line,
// reusing the engine's own tracer and metrics registry rather than
// standing up a second one for the HTTP layer.
type Observability struct {
	Tracer  trace.Tracer
	Metrics *metrics.Metrics
}

func (o *Observability) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			if o.Tracer != nil {
				var span trace.Span
				ctx, span = o.Tracer.Start(ctx, "gateway."+route, trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", route),
				))
				defer span.End()
			}
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))
			slog.Info("gateway request",
				"route", route,
				"method", r.Method,
				"status", recorder.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
