// Package transporttest provides a scripted, counting Transport for tests.
package transporttest

import (
	"context"
	"sync"

	"github.com/kbukum/declhttp/errors"
	"github.com/kbukum/declhttp/request"
	"github.com/kbukum/declhttp/transport"
)

// Response is one scripted outcome.
type Response struct {
	Body []byte
	Err  error
}

// Body returns a successful response with the given body.
func Body(s string) Response { return Response{Body: []byte(s)} }

// Fail returns a failed response.
func Fail(err error) Response { return Response{Err: err} }

// Recorder records every request and answers from a script. When the
// script is exhausted the fallback response is used.
type Recorder struct {
	mu       sync.Mutex
	fallback Response
	script   []Response
	requests []request.Built
	cancels  int
	gate     chan struct{}
}

var _ transport.Transport = (*Recorder)(nil)

// New creates a recorder answering with fallback.
func New(fallback Response) *Recorder {
	return &Recorder{fallback: fallback}
}

// Push queues responses used, in order, before the fallback.
func (r *Recorder) Push(responses ...Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.script = append(r.script, responses...)
}

// Hold makes requests wait until Release is called or they are cancelled.
func (r *Recorder) Hold() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
}

// Release lets held requests complete.
func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gate != nil {
		close(r.gate)
		r.gate = nil
	}
}

// Count returns the number of requests received.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// Requests returns a copy of the requests received.
func (r *Recorder) Requests() []request.Built {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]request.Built(nil), r.requests...)
}

// Cancels returns how many enqueued requests were cancelled.
func (r *Recorder) Cancels() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancels
}

// Execute implements transport.Transport.
func (r *Recorder) Execute(ctx context.Context, req request.Built) ([]byte, error) {
	resp, gate := r.next(req)
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, errors.Cancelled().WithCause(ctx.Err())
		}
	}
	return resp.Body, resp.Err
}

// Enqueue implements transport.Transport.
func (r *Recorder) Enqueue(_ context.Context, req request.Built, done func([]byte, error)) transport.Handle {
	resp, gate := r.next(req)
	h := &handle{r: r, stop: make(chan struct{})}
	go func() {
		if gate != nil {
			select {
			case <-gate:
			case <-h.stop:
				return
			}
		}
		h.deliver(func() { done(resp.Body, resp.Err) })
	}()
	return h
}

func (r *Recorder) next(req request.Built) (Response, <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	resp := r.fallback
	if len(r.script) > 0 {
		resp = r.script[0]
		r.script = r.script[1:]
	}
	return resp, r.gate
}

type handle struct {
	r    *Recorder
	stop chan struct{}

	mu        sync.Mutex
	cancelled bool
}

func (h *handle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return
	}
	h.cancelled = true
	close(h.stop)

	h.r.mu.Lock()
	h.r.cancels++
	h.r.mu.Unlock()
}

func (h *handle) deliver(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.cancelled {
		fn()
	}
}
