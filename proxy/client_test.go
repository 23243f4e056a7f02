package proxy

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/kbukum/declhttp/apitest"
	"github.com/kbukum/declhttp/call"
	"github.com/kbukum/declhttp/codec"
	"github.com/kbukum/declhttp/config"
	"github.com/kbukum/declhttp/descriptor"
	"github.com/kbukum/declhttp/errors"
	"github.com/kbukum/declhttp/logger"
	"github.com/kbukum/declhttp/observability"
	"github.com/kbukum/declhttp/stream"
	"github.com/kbukum/declhttp/transport"
	"github.com/kbukum/declhttp/transport/transporttest"
)

type user struct {
	Login string `json:"login"`
	ID    int    `json:"id"`
}

type userList struct {
	TotalCount int    `json:"total_count"`
	Items      []user `json:"items"`
}

var table = descriptor.MustTable(
	descriptor.Get("Users", "/search/users", descriptor.Value[userList](), descriptor.Fields("q", "sort")...),
	descriptor.Get("UsersAsync", "/search/users", descriptor.Callback[userList](), descriptor.Fields("q", "sort")...),
	descriptor.Get("UsersStream", "/search/users", descriptor.Stream[userList](), descriptor.Fields("q", "sort")...),
)

const testBaseURL = "https://api.example.test"

func newRecorded(t *testing.T, rec *transporttest.Recorder) *Client {
	t.Helper()
	c, err := New(config.ClientConfig{BaseURL: testBaseURL}, table,
		WithTransport(rec), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func newLive(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(config.ClientConfig{
		BaseURL:   baseURL,
		Transport: transport.Config{Timeout: 2 * time.Second},
	}, table, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(config.ClientConfig{BaseURL: testBaseURL}, nil); !errors.IsContractViolation(err) {
		t.Errorf("expected contract violation for nil table, got %v", err)
	}
	if _, err := New(config.ClientConfig{}, table, WithLogger(logger.Nop())); !errors.IsContractViolation(err) {
		t.Errorf("expected contract violation for missing base URL, got %v", err)
	}
}

func TestNew_SnapshotsConfig(t *testing.T) {
	cfg := config.ClientConfig{BaseURL: testBaseURL + "/"}
	rec := transporttest.New(transporttest.Body(`{"total_count":0}`))
	c, err := New(cfg, table, WithTransport(rec), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	cfg.BaseURL = "https://elsewhere.example.test"

	if _, err := c.Invoke(context.Background(), "Users", "foo", "stars"); err != nil {
		t.Fatal(err)
	}
	if got := rec.Requests()[0].URL; got != "https://api.example.test/search/users?q=foo&sort=stars" {
		t.Errorf("unexpected URL %s", got)
	}
	if c.BaseURL() != testBaseURL {
		t.Errorf("unexpected base URL %s", c.BaseURL())
	}
}

func TestInvoke_BuildsURL(t *testing.T) {
	rec := transporttest.New(transporttest.Body(`{"total_count":1,"items":[{"login":"octocat","id":1}]}`))
	c := newRecorded(t, rec)

	got, err := c.Invoke(context.Background(), "Users", "foo", "stars")
	if err != nil {
		t.Fatal(err)
	}
	users, ok := got.(userList)
	if !ok || users.Items[0].Login != "octocat" {
		t.Fatalf("unexpected result %#v", got)
	}
	if url := rec.Requests()[0].URL; url != "https://api.example.test/search/users?q=foo&sort=stars" {
		t.Errorf("unexpected URL %s", url)
	}
}

func TestInvoke_ArityMismatch(t *testing.T) {
	rec := transporttest.New(transporttest.Body(`{}`))
	c := newRecorded(t, rec)

	for _, name := range []string{"Users", "UsersAsync", "UsersStream"} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Invoke(context.Background(), name, "foo")
			if !errors.IsContractViolation(err) {
				t.Fatalf("expected contract violation, got %v", err)
			}
		})
	}
	if rec.Count() != 0 {
		t.Errorf("transport must not be touched, got %d requests", rec.Count())
	}
}

func TestInvoke_UnknownMethod(t *testing.T) {
	rec := transporttest.New(transporttest.Body(`{}`))
	c := newRecorded(t, rec)

	_, err := c.Invoke(context.Background(), "Repos", "foo")
	if !errors.IsContractViolation(err) {
		t.Fatalf("expected contract violation, got %v", err)
	}
	e, _ := errors.AsAppError(err)
	if e.Details[errors.DetailMethod] != "Repos" {
		t.Errorf("expected method detail, got %v", e.Details)
	}
	if rec.Count() != 0 {
		t.Errorf("transport must not be touched, got %d requests", rec.Count())
	}
}

func TestTyped_KindAndPayloadMismatch(t *testing.T) {
	rec := transporttest.New(transporttest.Body(`{}`))
	c := newRecorded(t, rec)
	ctx := context.Background()

	if _, err := Value[userList](ctx, c, "UsersAsync", "foo", "stars"); !errors.IsContractViolation(err) {
		t.Errorf("Value on a callback method: expected contract violation, got %v", err)
	}
	if _, err := Call[userList](ctx, c, "UsersStream", "foo", "stars"); !errors.IsContractViolation(err) {
		t.Errorf("Call on a stream method: expected contract violation, got %v", err)
	}
	if _, err := Stream[[]user](ctx, c, "UsersStream", "foo", "stars"); !errors.IsContractViolation(err) {
		t.Errorf("Stream with the wrong payload: expected contract violation, got %v", err)
	}
	if rec.Count() != 0 {
		t.Errorf("transport must not be touched, got %d requests", rec.Count())
	}
}

func TestValue_Live(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := newLive(t, srv.URL())

	users, err := Value[userList](context.Background(), c, "Users", "foo", "stars")
	if err != nil {
		t.Fatal(err)
	}
	if users.TotalCount != 2 || len(users.Items) != 2 {
		t.Errorf("unexpected users %+v", users)
	}
	hit, _ := srv.LastHit()
	if hit.RawQuery != "q=foo&sort=stars" {
		t.Errorf("unexpected query %s", hit.RawQuery)
	}
	if ua := hit.Header.Get("User-Agent"); ua == "" {
		t.Error("expected a User-Agent header")
	}
}

func TestValue_ConnectionError(t *testing.T) {
	srv := apitest.New()
	url := srv.URL()
	srv.Close()
	c := newLive(t, url)

	users, err := Value[userList](context.Background(), c, "Users", "foo", "stars")
	if !errors.IsTransportFailure(err) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	e, _ := errors.AsAppError(err)
	if e.Reason() != errors.ReasonConnection {
		t.Errorf("expected connection reason, got %s", e.Reason())
	}
	if users.TotalCount != 0 || users.Items != nil {
		t.Errorf("no value expected, got %+v", users)
	}
}

func TestValue_StatusAndDecodeFailures(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := newLive(t, srv.URL())
	ctx := context.Background()

	srv.Respond(http.StatusUnprocessableEntity, `{"message":"Validation Failed"}`)
	_, err := Value[userList](ctx, c, "Users", "", "stars")
	if e, ok := errors.AsAppError(err); !ok || e.Reason() != errors.ReasonClient || e.Status() != 422 {
		t.Errorf("expected client failure with status 422, got %v", err)
	}

	srv.Respond(http.StatusOK, `not json`)
	if _, err := Value[userList](ctx, c, "Users", "foo", "stars"); !errors.IsDecodeFailure(err) {
		t.Errorf("expected decode failure, got %v", err)
	}
}

func TestCall_Live(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := newLive(t, srv.URL())

	h, err := Call[userList](context.Background(), c, "UsersAsync", "foo", "stars")
	if err != nil {
		t.Fatal(err)
	}
	if srv.Hits() != 0 {
		t.Fatalf("no request expected before enqueue, got %d", srv.Hits())
	}

	got := make(chan userList, 1)
	if err := h.Enqueue(call.Funcs(
		func(u userList) { got <- u },
		func(err error) { t.Errorf("unexpected failure %v", err) },
	)); err != nil {
		t.Fatal(err)
	}
	select {
	case u := <-got:
		if u.TotalCount != 2 {
			t.Errorf("unexpected value %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}
	if h.State() != call.StateSucceeded {
		t.Errorf("expected succeeded, got %s", h.State())
	}
}

func TestCall_CancelBeforeResponse(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.Delay(200 * time.Millisecond)
	c := newLive(t, srv.URL())

	h, err := Call[userList](context.Background(), c, "UsersAsync", "foo", "stars")
	if err != nil {
		t.Fatal(err)
	}
	fired := make(chan struct{}, 2)
	_ = h.Enqueue(call.Funcs(
		func(userList) { fired <- struct{}{} },
		func(error) { fired <- struct{}{} },
	))
	h.Cancel()
	h.Cancel()

	select {
	case <-fired:
		t.Fatal("no callback expected after cancel")
	case <-time.After(300 * time.Millisecond):
	}
	if h.State() != call.StateCancelled {
		t.Errorf("expected cancelled, got %s", h.State())
	}
	if _, err := h.Await(context.Background()); !errors.IsCancelled(err) {
		t.Errorf("expected cancelled from Await, got %v", err)
	}
}

func TestStream_NeverSubscribed(t *testing.T) {
	rec := transporttest.New(transporttest.Body(`{}`))
	c := newRecorded(t, rec)

	s, err := Stream[userList](context.Background(), c, "UsersStream", "foo", "stars")
	if err != nil {
		t.Fatal(err)
	}
	if s == nil {
		t.Fatal("expected a stream")
	}
	if rec.Count() != 0 {
		t.Errorf("expected no requests, got %d", rec.Count())
	}
}

func TestStream_TwoSubscriptionsLive(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := newLive(t, srv.URL())

	s, err := Stream[userList](context.Background(), c, "UsersStream", "foo", "stars")
	if err != nil {
		t.Fatal(err)
	}

	var completed int
	for i := 0; i < 2; i++ {
		sub := s.Subscribe(stream.Observe(
			func(u userList) {
				if u.TotalCount != 2 {
					t.Errorf("unexpected value %+v", u)
				}
			},
			func(err error) { t.Errorf("unexpected error %v", err) },
			func() { completed++ },
		))
		select {
		case <-sub.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("subscription did not finish")
		}
	}
	if completed != 2 {
		t.Errorf("expected 2 completions, got %d", completed)
	}
	if srv.Hits() != 2 {
		t.Errorf("expected exactly two requests, got %d", srv.Hits())
	}
}

func TestDispatch_NonBlockingForDeferredKinds(t *testing.T) {
	rec := transporttest.New(transporttest.Body(`{}`))
	rec.Hold()
	defer rec.Release()
	c := newRecorded(t, rec)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Invoke(context.Background(), "UsersAsync", "foo", "stars")
		_, _ = c.Invoke(context.Background(), "UsersStream", "foo", "stars")
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback and stream dispatch must return without waiting on the transport")
	}
}

func TestMethods(t *testing.T) {
	c := newRecorded(t, transporttest.New(transporttest.Body(`{}`)))
	got := c.Methods()
	if len(got) != 3 || got[0] != "Users" || got[2] != "UsersStream" {
		t.Errorf("unexpected methods %v", got)
	}
}

func TestValue_CodecTypeMismatch(t *testing.T) {
	rec := transporttest.New(transporttest.Body(`{}`))
	wrong := codec.Func(func([]byte, reflect.Type) (any, error) { return "text", nil })
	c, err := New(config.ClientConfig{BaseURL: testBaseURL}, table,
		WithTransport(rec), WithCodec(wrong), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = Value[userList](context.Background(), c, "Users", "foo", "stars")
	if !errors.IsDecodeFailure(err) {
		t.Fatalf("expected decode failure, got %v", err)
	}
	cause := stderrors.Unwrap(err)
	if cause == nil || !strings.Contains(cause.Error(), "delivered string") {
		t.Errorf("expected the delivered type in the cause, got %v", cause)
	}
}

func TestNew_TracingFromConfig(t *testing.T) {
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	cfg := config.ClientConfig{
		BaseURL: testBaseURL,
		Tracing: observability.Config{
			Enabled:  true,
			Insecure: true,
			Endpoint: strings.TrimPrefix(collector.URL, "http://"),
		},
	}
	c, err := New(cfg, table, WithTransport(transporttest.New(transporttest.Body(`{}`))), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := c.telemetry
	if p == nil {
		t.Fatal("expected providers built from the tracing configuration")
	}

	_, span := p.TracerProvider.Tracer("test").Start(context.Background(), "before-close")
	if !span.IsRecording() {
		t.Error("expected a recording span while the client is open")
	}
	span.End()

	c.Close()
	if c.telemetry != nil {
		t.Error("Close should release the providers")
	}
	_, span = p.TracerProvider.Tracer("test").Start(context.Background(), "after-close")
	if span.IsRecording() {
		t.Error("expected providers to be shut down by Close")
	}
	c.Close()
}

func TestNew_TracingProviderOptionWins(t *testing.T) {
	cfg := config.ClientConfig{
		BaseURL: testBaseURL,
		Tracing: observability.Config{Enabled: true, Endpoint: "127.0.0.1:1"},
	}
	c, err := New(cfg, table,
		WithTransport(transporttest.New(transporttest.Body(`{}`))),
		WithTracerProvider(tracenoop.NewTracerProvider()),
		WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	if c.telemetry != nil {
		t.Error("a provider passed as an option must not be replaced")
	}
}

func TestNew_FromStartedComponent(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	comp := transport.NewComponent(transport.Config{Name: "search", Timeout: 2 * time.Second})
	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = comp.Stop(ctx) }()

	c, err := New(config.ClientConfig{BaseURL: srv.URL()}, table,
		WithTransport(comp.Transport()), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	users, err := Value[userList](ctx, c, "Users", "foo", "stars")
	if err != nil {
		t.Fatal(err)
	}
	if len(users.Items) != 2 {
		t.Errorf("unexpected users %+v", users)
	}
	if h := comp.Health(ctx); h.Status != transport.StatusHealthy {
		t.Errorf("expected healthy component, got %+v", h)
	}
}
