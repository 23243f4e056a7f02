package stream

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/kbukum/declhttp/call"
	"github.com/kbukum/declhttp/errors"
)

// Stream is a cold source of at most one value.
type Stream[T any] struct {
	newCall func() (*call.Call[T], error)

	// shared is set when the caller also holds the call and may cancel it.
	shared bool
}

// New returns a stream that calls newCall once per subscription.
func New[T any](newCall func() *call.Call[T]) *Stream[T] {
	return &Stream[T]{newCall: func() (*call.Call[T], error) { return newCall(), nil }}
}

// FromCall adapts an existing call handle into a stream. A handle runs only
// once, so only the first subscription enqueues it; later subscriptions
// fail with a ContractViolation. Cancelling the handle directly ends the
// subscription with a CANCELLED error.
func FromCall[T any](c *call.Call[T]) *Stream[T] {
	var used atomic.Bool
	return &Stream[T]{shared: true, newCall: func() (*call.Call[T], error) {
		if used.Swap(true) {
			return nil, errors.ContractViolation("call %s already backs a subscription", c.ID())
		}
		return c, nil
	}}
}

// Retype returns a T-typed view of s. Each subscription to the view
// subscribes to s.
func Retype[T, U any](s *Stream[U]) *Stream[T] {
	return &Stream[T]{shared: s.shared, newCall: func() (*call.Call[T], error) {
		c, err := s.newCall()
		if err != nil {
			return nil, err
		}
		return call.Retype[T](c), nil
	}}
}

// Subscribe starts a new request and delivers its outcome to obs.
func (s *Stream[T]) Subscribe(obs Observer[T]) *Subscription {
	if obs == nil {
		obs = Observe[T](nil, nil, nil)
	}
	sub := &Subscription{done: make(chan struct{})}

	c, err := s.newCall()
	if err != nil {
		obs.OnError(err)
		sub.finish(err)
		return sub
	}
	sub.call = c

	err = c.Enqueue(call.Funcs(
		func(v T) {
			obs.OnNext(v)
			obs.OnComplete()
			sub.finish(nil)
		},
		func(err error) {
			obs.OnError(err)
			sub.finish(err)
		},
	))
	if err == nil && c.State() == call.StateCancelled {
		// A call cancelled before subscription is never started.
		err = errors.Cancelled()
	}
	if err != nil {
		obs.OnError(err)
		sub.finish(err)
		return sub
	}
	if s.shared {
		go sub.watch(c, func(err error) { obs.OnError(err) })
	}
	return sub
}

// First subscribes and waits for the single value. When ctx ends first the
// subscription is cancelled and ctx's error returned.
func (s *Stream[T]) First(ctx context.Context) (T, error) {
	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	sub := s.Subscribe(Observe(
		func(v T) { ch <- result{value: v} },
		func(err error) { ch <- result{err: err} },
		nil,
	))

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		sub.Cancel()
		var zero T
		return zero, ctx.Err()
	}
}

// All returns an iterator over the stream's elements. Each iteration
// subscribes anew and yields the value, or a zero value with the error.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		v, err := s.First(ctx)
		yield(v, err)
	}
}

// Subscription controls one subscription to a stream.
type Subscription struct {
	call interface{ Cancel() }

	cancelOnce   sync.Once
	unsubscribed atomic.Bool
	finishOnce   sync.Once
	done       chan struct{}

	mu  sync.Mutex
	err error
}

// Cancel unsubscribes and cancels the underlying call exactly once. It is
// safe to call after the subscription finished.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		s.unsubscribed.Store(true)
		if s.call != nil {
			s.call.Cancel()
		}
		s.finish(errors.Cancelled())
	})
}

// Done is closed when the subscription completes, fails or is cancelled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the failure that ended the subscription, a CANCELLED error
// if it was cancelled first, or nil.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// watch ends the subscription when c is cancelled by its holder.
func (s *Subscription) watch(c interface {
	Done() <-chan struct{}
	State() call.State
}, onError func(error)) {
	select {
	case <-c.Done():
		if c.State() == call.StateCancelled && !s.unsubscribed.Load() {
			err := errors.Cancelled()
			s.finishWith(err, func() { onError(err) })
		}
	case <-s.done:
	}
}

func (s *Subscription) finish(err error) { s.finishWith(err, nil) }

// finishWith records err and closes Done once. notify runs only for the
// outcome that wins.
func (s *Subscription) finishWith(err error, notify func()) {
	s.finishOnce.Do(func() {
		if notify != nil {
			notify()
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}
