package call

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kbukum/declhttp/errors"
)

// Canceler aborts the work started for a call.
type Canceler interface {
	Cancel()
}

// CancelFunc adapts a function to Canceler.
type CancelFunc func()

// Cancel implements Canceler.
func (f CancelFunc) Cancel() { f() }

// StartFunc starts the underlying request and returns a way to abort it.
// complete reports the decoded value or the failure; calls after the
// first, or after cancellation, are discarded.
type StartFunc func(complete func(value any, err error)) Canceler

// handle is the untyped state shared by every typed view of one call.
type handle struct {
	id    string
	state atomic.Int32
	start StartFunc

	mu         sync.Mutex
	canceler   Canceler
	cancelOnce sync.Once

	deliver func(value any, err error)
	done    chan struct{}
	value   any
	err     error
}

// Call is a handle to one request. It is created Idle; Enqueue starts it.
type Call[T any] struct {
	h *handle
}

// New creates an Idle call that runs start when enqueued.
func New[T any](start StartFunc) *Call[T] {
	return &Call[T]{h: &handle{
		id:    uuid.NewString(),
		start: start,
		done:  make(chan struct{}),
	}}
}

// Retype returns a T-typed view of c. Both views share the same state, so
// cancelling either cancels the call. Values are converted with a type
// assertion when delivered.
func Retype[T, U any](c *Call[U]) *Call[T] {
	return &Call[T]{h: c.h}
}

// ID returns the call's unique identifier.
func (c *Call[T]) ID() string { return c.h.id }

// State returns the current state.
func (c *Call[T]) State() State { return State(c.h.state.Load()) }

// Done is closed once the call reaches a terminal state.
func (c *Call[T]) Done() <-chan struct{} { return c.h.done }

// Enqueue starts the call and registers cb to receive its outcome.
//
// Enqueueing a cancelled call is a no-op and cb never fires. Enqueueing a
// call that was already started is a ContractViolation.
func (c *Call[T]) Enqueue(cb Callback[T]) error {
	if cb == nil {
		return errors.ContractViolation("call %s: nil callback", c.h.id)
	}
	h := c.h
	if !h.state.CompareAndSwap(int32(StateIdle), int32(StateInFlight)) {
		if s := State(h.state.Load()); s != StateCancelled {
			return errors.ContractViolation("call %s already enqueued (state %s)", h.id, s)
		}
		return nil
	}

	h.deliver = func(value any, err error) {
		if err != nil {
			cb.OnFailure(err)
			return
		}
		v, convErr := as[T](value)
		if convErr != nil {
			cb.OnFailure(convErr)
			return
		}
		cb.OnSuccess(v)
	}

	can := h.start(h.complete)

	h.mu.Lock()
	h.canceler = can
	cancelled := State(h.state.Load()) == StateCancelled
	h.mu.Unlock()
	if cancelled {
		h.abort(can)
	}
	return nil
}

// Cancel moves an Idle or InFlight call to Cancelled and aborts the
// request. Cancelling a terminal call has no effect.
func (c *Call[T]) Cancel() {
	h := c.h
	for {
		s := State(h.state.Load())
		if s.Terminal() {
			return
		}
		if !h.state.CompareAndSwap(int32(s), int32(StateCancelled)) {
			continue
		}
		h.err = errors.Cancelled()
		close(h.done)
		if s == StateInFlight {
			h.mu.Lock()
			can := h.canceler
			h.mu.Unlock()
			h.abort(can)
		}
		return
	}
}

// Await blocks until the call finishes or ctx ends. It does not cancel the
// call when ctx ends. A cancelled call reports a CANCELLED error.
func (c *Call[T]) Await(ctx context.Context) (T, error) {
	var zero T
	if c.State() == StateIdle {
		return zero, errors.ContractViolation("call %s awaited before it was enqueued", c.h.id)
	}
	select {
	case <-c.h.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if c.State() != StateSucceeded {
		return zero, c.h.err
	}
	return as[T](c.h.value)
}

// complete records the outcome unless the call already left InFlight.
func (h *handle) complete(value any, err error) {
	to := StateSucceeded
	if err != nil {
		to = StateFailed
	}
	if !h.state.CompareAndSwap(int32(StateInFlight), int32(to)) {
		return
	}
	h.value, h.err = value, err
	close(h.done)
	h.deliver(value, err)
}

func (h *handle) abort(can Canceler) {
	if can == nil {
		return
	}
	h.cancelOnce.Do(can.Cancel)
}

// as converts an untyped delivered value to T.
func as[T any](value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	v, ok := value.(T)
	if !ok {
		target := reflect.TypeFor[T]()
		return zero, errors.DecodeFailure(target, fmt.Errorf("delivered %T, want %s", value, target))
	}
	return v, nil
}
