// Package proxy is the entry point for declarative clients.
//
// A Client pairs a descriptor table with a base URL, a transport and a
// codec. Invoke looks a method up by name, builds its request and
// dispatches it; the typed helpers Value, Call and Stream additionally
// check that the method's declared result matches the requested type.
//
// A declared interface is implemented by a thin adapter per method:
//
//	type SearchAPI interface {
//	    Users(ctx context.Context, q, sort string) (UserList, error)
//	}
//
//	type searchAPI struct{ c *proxy.Client }
//
//	func (a searchAPI) Users(ctx context.Context, q, sort string) (UserList, error) {
//	    return proxy.Value[UserList](ctx, a.c, "Users", q, sort)
//	}
//
// By default New builds an HTTP transport from cfg.Transport. Applications
// that manage the transport lifecycle themselves pass a started component:
//
//	comp := transport.NewComponent(cfg.Transport)
//	if err := comp.Start(ctx); err != nil {
//	    return err
//	}
//	defer comp.Stop(ctx)
//	client, err := proxy.New(cfg, table, proxy.WithTransport(comp.Transport()))
//
// When cfg.Tracing.Enabled is set and no provider option is given, New
// starts OTLP tracer and meter providers and Close shuts them down.
package proxy
