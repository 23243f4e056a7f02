package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope used for tracers and meters.
const ScopeName = "github.com/kbukum/declhttp"

// Span and attribute names used by the dispatch engine.
const (
	SpanDispatch = "declhttp.dispatch"

	AttrMethod   = "declhttp.method"
	AttrStrategy = "declhttp.strategy"
	AttrOutcome  = "declhttp.outcome"
	AttrURL      = "url.full"
	AttrCallID   = "declhttp.call_id"
	AttrErrCode  = "error.code"
)

// Metric names.
const (
	MetricRequests = "declhttp.requests"
	MetricDuration = "declhttp.request.duration"
	MetricInFlight = "declhttp.inflight"
)

// Metrics holds the instruments recorded for each executed request.
type Metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Executed requests by method, strategy and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequests, err)
	}

	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Duration of executed requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricDuration, err)
	}

	inflight, err := meter.Int64UpDownCounter(MetricInFlight,
		metric.WithDescription("Requests currently executing"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricInFlight, err)
	}

	return &Metrics{requests: requests, duration: duration, inflight: inflight}, nil
}

// Start records a request entering execution.
func (m *Metrics) Start(ctx context.Context, method, strategy string) {
	m.inflight.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.String(AttrStrategy, strategy),
	))
}

// End records a finished request.
func (m *Metrics) End(ctx context.Context, method, strategy, outcome string, d time.Duration) {
	base := []attribute.KeyValue{
		attribute.String(AttrMethod, method),
		attribute.String(AttrStrategy, strategy),
	}
	m.inflight.Add(ctx, -1, metric.WithAttributes(base...))
	m.requests.Add(ctx, 1, metric.WithAttributes(append(base, attribute.String(AttrOutcome, outcome))...))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(base...))
}

// Tracer returns the package tracer from tp.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	return tp.Tracer(ScopeName)
}

// Meter returns the package meter from mp.
func Meter(mp metric.MeterProvider) metric.Meter {
	return mp.Meter(ScopeName)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
