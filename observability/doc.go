// Package observability sets up OpenTelemetry tracing and metrics for the
// client and defines the instruments recorded per dispatched request.
//
// Init builds tracer and meter providers exporting over OTLP/HTTP, or no-op
// providers when tracing is disabled:
//
//	p, err := observability.Init(ctx, cfg.Tracing)
//	defer p.Shutdown(ctx)
//	client, err := proxy.New(cfg, table,
//	    proxy.WithTracerProvider(p.TracerProvider),
//	    proxy.WithMeterProvider(p.MeterProvider))
package observability
