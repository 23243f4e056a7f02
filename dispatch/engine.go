package dispatch

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/kbukum/declhttp/call"
	"github.com/kbukum/declhttp/codec"
	"github.com/kbukum/declhttp/descriptor"
	"github.com/kbukum/declhttp/errors"
	"github.com/kbukum/declhttp/logger"
	"github.com/kbukum/declhttp/observability"
	"github.com/kbukum/declhttp/request"
	"github.com/kbukum/declhttp/stream"
	"github.com/kbukum/declhttp/transport"
)

// Outcomes recorded on spans and metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// Engine dispatches requests according to each method's result kind.
type Engine struct {
	transport transport.Transport
	codec     codec.Codec
	log       *logger.Logger
	tracer    trace.Tracer
	metrics   *observability.Metrics
}

type options struct {
	log *logger.Logger
	tp  trace.TracerProvider
	mp  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTracerProvider sets the provider dispatch spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMeterProvider sets the provider request metrics are recorded on.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// New creates an engine executing through t and decoding with c.
func New(t transport.Transport, c codec.Codec, opts ...Option) (*Engine, error) {
	if t == nil {
		return nil, errors.ContractViolation("dispatch: nil transport")
	}
	if c == nil {
		return nil, errors.ContractViolation("dispatch: nil codec")
	}

	o := options{
		log: logger.Nop(),
		tp:  tracenoop.NewTracerProvider(),
		mp:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	metrics, err := observability.NewMetrics(observability.Meter(o.mp))
	if err != nil {
		return nil, err
	}
	return &Engine{
		transport: t,
		codec:     c,
		log:       o.log.WithComponent("dispatch"),
		tracer:    observability.Tracer(o.tp),
		metrics:   metrics,
	}, nil
}

// Dispatch routes req by m's result kind. Callback takes precedence over
// stream, and stream over value.
func (e *Engine) Dispatch(ctx context.Context, m descriptor.Method, req request.Built) (any, error) {
	switch m.Result.Kind {
	case descriptor.KindCallback:
		return e.newCall(ctx, m, req), nil
	case descriptor.KindStream:
		return stream.New(func() *call.Call[any] {
			return e.newCall(ctx, m, req)
		}), nil
	case descriptor.KindValue:
		return e.execute(ctx, m, req)
	default:
		return nil, errors.ContractViolation("method %q has unclassified result type %s", m.Name, m.Result)
	}
}

// execute runs a value method on the calling goroutine.
func (e *Engine) execute(ctx context.Context, m descriptor.Method, req request.Built) (any, error) {
	x := e.begin(ctx, m, req, "")
	body, err := e.transport.Execute(x.ctx, req)
	v, err := e.decode(m, body, err)
	x.end(err)
	return v, err
}

// newCall returns an Idle call whose start enqueues req on the transport.
func (e *Engine) newCall(ctx context.Context, m descriptor.Method, req request.Built) *call.Call[any] {
	var c *call.Call[any]
	c = call.New[any](func(complete func(any, error)) call.Canceler {
		x := e.begin(ctx, m, req, c.ID())
		h := e.transport.Enqueue(x.ctx, req, func(body []byte, err error) {
			v, err := e.decode(m, body, err)
			x.end(err)
			complete(v, err)
		})
		return call.CancelFunc(func() {
			h.Cancel()
			x.end(errors.Cancelled())
		})
	})
	return c
}

func (e *Engine) decode(m descriptor.Method, body []byte, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return e.codec.Decode(body, m.Result.Payload)
}

// execution tracks the span and metrics of one request.
type execution struct {
	e        *Engine
	ctx      context.Context
	span     trace.Span
	method   string
	strategy string
	url      string
	callID   string
	started  time.Time
	once     sync.Once
}

func (e *Engine) begin(ctx context.Context, m descriptor.Method, req request.Built, callID string) *execution {
	strategy := m.Result.Kind.String()
	attrs := []attribute.KeyValue{
		attribute.String(observability.AttrMethod, m.Name),
		attribute.String(observability.AttrStrategy, strategy),
		attribute.String(observability.AttrURL, req.URL),
	}
	if callID != "" {
		attrs = append(attrs, attribute.String(observability.AttrCallID, callID))
	}
	ctx, span := e.tracer.Start(ctx, observability.SpanDispatch,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	fields := logger.Fields(
		logger.FieldMethod, m.Name,
		logger.FieldStrategy, strategy,
		logger.FieldURL, req.URL,
	)
	if callID != "" {
		fields[logger.FieldCallID] = callID
	}
	e.log.Debug(req.String(), fields)
	e.metrics.Start(ctx, m.Name, strategy)

	return &execution{
		e:        e,
		ctx:      ctx,
		span:     span,
		method:   m.Name,
		strategy: strategy,
		url:      req.URL,
		callID:   callID,
		started:  time.Now(),
	}
}

// end records the outcome once; later calls are ignored.
func (x *execution) end(err error) {
	x.once.Do(func() {
		outcome := outcomeOf(err)
		d := time.Since(x.started)
		if code := errors.CodeOf(err); code != "" {
			x.span.SetAttributes(attribute.String(observability.AttrErrCode, string(code)))
		}
		observability.EndSpan(x.span, outcome, spanError(err))
		x.e.metrics.End(x.ctx, x.method, x.strategy, outcome, d)

		if err != nil && outcome == OutcomeFailure {
			fields := logger.ErrorFields(x.method, err)
			fields[logger.FieldURL] = x.url
			fields[logger.FieldDuration] = d.Milliseconds()
			if x.callID != "" {
				fields[logger.FieldCallID] = x.callID
			}
			x.e.log.Debug("request failed", fields)
		}
	})
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.IsCancelled(err):
		return OutcomeCancelled
	default:
		return OutcomeFailure
	}
}

// spanError keeps cancellation out of the span status.
func spanError(err error) error {
	if errors.IsCancelled(err) {
		return nil
	}
	return err
}
