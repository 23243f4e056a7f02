package proxy

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/declhttp/codec"
	"github.com/kbukum/declhttp/logger"
	"github.com/kbukum/declhttp/transport"
)

type options struct {
	transport transport.Transport
	codec     codec.Codec
	log       *logger.Logger
	tp        trace.TracerProvider
	mp        metric.MeterProvider
}

// Option configures a Client.
type Option func(*options)

// WithTransport replaces the HTTP transport built from the configuration.
func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithCodec replaces the default JSON codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger replaces the logger built from the logging configuration.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTracerProvider sets the provider for dispatch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMeterProvider sets the provider for request metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}
