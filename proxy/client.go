package proxy

import (
	"context"
	"reflect"
	"time"

	"github.com/kbukum/declhttp/codec"
	"github.com/kbukum/declhttp/config"
	"github.com/kbukum/declhttp/descriptor"
	"github.com/kbukum/declhttp/dispatch"
	"github.com/kbukum/declhttp/errors"
	"github.com/kbukum/declhttp/logger"
	"github.com/kbukum/declhttp/observability"
	"github.com/kbukum/declhttp/request"
	"github.com/kbukum/declhttp/transport"
)

const shutdownTimeout = 5 * time.Second

// Client executes the methods of one descriptor table against one base URL.
type Client struct {
	name      string
	table     *descriptor.Table
	builder   *request.Builder
	engine    *dispatch.Engine
	log       *logger.Logger
	owned     *transport.HTTP
	telemetry *observability.Providers
}

// New creates a client. cfg is copied: the base URL and transport settings
// are fixed at construction.
func New(cfg config.ClientConfig, table *descriptor.Table, opts ...Option) (*Client, error) {
	if table == nil {
		return nil, errors.ContractViolation("proxy: nil descriptor table")
	}
	cfg.Transport = cfg.Transport.Clone()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.ContractViolation("proxy: invalid configuration: %v", err).WithCause(err)
	}

	o := options{codec: codec.JSON{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.New(&cfg.Logging, cfg.Name)
	}

	c := &Client{
		name:    cfg.Name,
		table:   table,
		builder: request.NewBuilder(cfg.BaseURL),
		log:     o.log.WithComponent("proxy"),
	}

	if o.transport == nil {
		t, err := transport.NewHTTP(cfg.Transport, transport.WithLogger(o.log))
		if err != nil {
			return nil, err
		}
		c.owned = t
		o.transport = t
	}

	if cfg.Tracing.Enabled && o.tp == nil && o.mp == nil {
		p, err := observability.Init(context.Background(), cfg.Tracing)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.telemetry = p
		o.tp, o.mp = p.TracerProvider, p.MeterProvider
	}

	var engineOpts []dispatch.Option
	engineOpts = append(engineOpts, dispatch.WithLogger(o.log))
	if o.tp != nil {
		engineOpts = append(engineOpts, dispatch.WithTracerProvider(o.tp))
	}
	if o.mp != nil {
		engineOpts = append(engineOpts, dispatch.WithMeterProvider(o.mp))
	}
	engine, err := dispatch.New(o.transport, o.codec, engineOpts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.engine = engine

	c.log.Debug("client created", logger.Fields(
		"client", c.name,
		"base_url", c.builder.BaseURL(),
		"methods", table.Len(),
	))
	return c, nil
}

// Invoke calls method with args. The result is the decoded value for value
// methods, an unstarted *call.Call[any] for callback methods and an
// unsubscribed *stream.Stream[any] for stream methods.
//
// Unknown methods and argument count mismatches are reported as
// ContractViolation before any request is made.
func (c *Client) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	m, ok := c.table.Lookup(method)
	if !ok {
		return nil, errors.ContractViolation("unknown method %q", method).WithDetail(errors.DetailMethod, method)
	}
	req, err := c.builder.Build(m, args)
	if err != nil {
		return nil, err
	}
	return c.engine.Dispatch(ctx, m, req)
}

// BaseURL returns the base URL captured at construction.
func (c *Client) BaseURL() string { return c.builder.BaseURL() }

// Methods returns the names of the declared methods, sorted.
func (c *Client) Methods() []string { return c.table.Names() }

// Close releases the connections of a transport created by New and flushes
// the telemetry providers New started from cfg.Tracing. A transport or
// provider passed as an option is left to its owner.
func (c *Client) Close() {
	if c.owned != nil {
		c.owned.Close()
	}
	if c.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.telemetry.Shutdown(ctx); err != nil {
			c.log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
		}
		c.telemetry = nil
	}
}

// expect checks that method is declared with the given kind and payload.
func (c *Client) expect(method string, kind descriptor.Kind, payload reflect.Type) error {
	m, ok := c.table.Lookup(method)
	if !ok {
		return errors.ContractViolation("unknown method %q", method).WithDetail(errors.DetailMethod, method)
	}
	want := descriptor.ResultType{Kind: kind, Payload: payload}
	if m.Result != want {
		return errors.ContractViolation("method %q is declared as %s, not %s", method, m.Result, want).
			WithDetail(errors.DetailMethod, method)
	}
	return nil
}
