package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/kbukum/declhttp/errors"
	"github.com/kbukum/declhttp/logger"
	"github.com/kbukum/declhttp/request"
	"github.com/kbukum/declhttp/version"
)

// HTTP is a Transport backed by net/http.
type HTTP struct {
	client  *http.Client
	config  Config
	breaker *Breaker
	limiter *rate.Limiter
	log     *logger.Logger
}

var _ Transport = (*HTTP)(nil)

// Option customises an HTTP transport.
type Option func(*HTTP)

// WithHTTPClient replaces the underlying client. Its Timeout is left as is.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTP) { t.client = c }
}

// WithLogger sets the logger used for retry and breaker events.
func WithLogger(l *logger.Logger) Option {
	return func(t *HTTP) { t.log = l.WithComponent("transport") }
}

// NewHTTP creates an HTTP transport.
func NewHTTP(cfg Config, opts ...Option) (*HTTP, error) {
	cfg = cfg.Clone()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}

	t := &HTTP{
		client: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.Timeout,
		},
		config: cfg,
		log:    logger.Nop(),
	}
	if cfg.CircuitBreaker != nil {
		t.breaker = NewBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimit != nil {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.Rate), cfg.RateLimit.Burst)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Execute implements Transport.
func (t *HTTP) Execute(ctx context.Context, req request.Built) ([]byte, error) {
	if t.config.Retry == nil {
		return t.attempt(ctx, req)
	}

	r := t.config.Retry
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialInterval
	b.MaxInterval = r.MaxInterval

	tries := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		tries++
		body, err := t.attempt(ctx, req)
		if err != nil && !errors.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		if err != nil {
			t.log.Debug("retrying request", logger.Fields(
				logger.FieldURL, req.URL,
				"attempt", tries,
				logger.FieldError, err.Error(),
			))
		}
		return body, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.MaxAttempts))
	if _, ok := errors.AsAppError(err); err != nil && !ok {
		// backoff reports an expired context with the bare context error.
		return nil, contextFailure(ctx, err)
	}
	return body, err
}

// Enqueue implements Transport. The request runs on its own goroutine under
// a context detached from ctx's cancellation; only the returned handle
// aborts it.
func (t *HTTP) Enqueue(ctx context.Context, req request.Built, done func([]byte, error)) Handle {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &asyncHandle{cancel: cancel}
	go func() {
		defer cancel()
		body, err := t.Execute(ctx, req)
		h.finish(func() { done(body, err) })
	}()
	return h
}

// Close releases idle connections.
func (t *HTTP) Close() {
	t.client.CloseIdleConnections()
}

// Available reports whether requests would currently be attempted.
func (t *HTTP) Available() bool {
	return t.breaker == nil || t.breaker.State() != BreakerOpen
}

// Config returns the effective configuration.
func (t *HTTP) Config() Config {
	return t.config
}

// attempt performs one request through the rate limiter and breaker.
func (t *HTTP) attempt(ctx context.Context, req request.Built) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, contextFailure(ctx, err)
			}
			return nil, errors.TransportFailure(errors.ReasonRateLimit, err)
		}
	}
	if t.breaker == nil {
		return t.roundTrip(ctx, req)
	}

	var body []byte
	err := t.breaker.Execute(func() error {
		var execErr error
		body, execErr = t.roundTrip(ctx, req)
		return execErr
	})
	if e, ok := errors.AsAppError(err); ok && e.Reason() == errors.ReasonCircuitOpen {
		t.log.Warn("circuit open, request rejected", logger.Fields(logger.FieldURL, req.URL))
	}
	return body, err
}

func (t *HTTP) roundTrip(ctx context.Context, req request.Built) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, errors.TransportFailure(errors.ReasonClient, fmt.Errorf("create request: %w", err))
	}
	for k, v := range t.config.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.config.UserAgent)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, contextFailure(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, contextFailure(ctx, fmt.Errorf("read response body: %w", err))
	}
	if err := ClassifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// ClassifyStatus converts a non-2xx status into a TRANSPORT_FAILURE error.
// It returns nil for 2xx statuses.
func ClassifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.StatusFailure(errors.ReasonAuth, status, body)
	case status == http.StatusNotFound:
		return errors.StatusFailure(errors.ReasonNotFound, status, body)
	case status == http.StatusTooManyRequests:
		return errors.StatusFailure(errors.ReasonRateLimit, status, body)
	case status >= 500:
		return errors.StatusFailure(errors.ReasonServer, status, body)
	default:
		return errors.StatusFailure(errors.ReasonClient, status, body)
	}
}

// contextFailure classifies an error from the network layer.
func contextFailure(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return errors.Cancelled().WithCause(err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.TransportFailure(errors.ReasonTimeout, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.TransportFailure(errors.ReasonTimeout, err)
	}
	return errors.TransportFailure(errors.ReasonConnection, err)
}

// asyncHandle guards done so that it never runs once Cancel has returned.
type asyncHandle struct {
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled bool
	finished  bool
}

func (h *asyncHandle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.cancel()
}

// finish runs deliver unless the handle was cancelled first. Holding mu
// while delivering makes Cancel wait for an in-progress delivery.
func (h *asyncHandle) finish(deliver func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || h.finished {
		return
	}
	h.finished = true
	deliver()
}
