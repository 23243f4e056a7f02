package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/declhttp/call"
	"github.com/kbukum/declhttp/errors"
)

// source counts requests and completes each one according to respond.
type source struct {
	requests atomic.Int32
	cancels  atomic.Int32
	respond  func(n int32, complete func(any, error))
}

func (s *source) stream() *Stream[any] {
	return New(func() *call.Call[any] {
		return call.New[any](func(complete func(any, error)) call.Canceler {
			n := s.requests.Add(1)
			if s.respond != nil {
				s.respond(n, complete)
			}
			return call.CancelFunc(func() { s.cancels.Add(1) })
		})
	})
}

type events struct {
	mu       sync.Mutex
	next     []string
	errs     []error
	complete int
}

func (e *events) observer() Observer[string] {
	return Observe(
		func(v string) { e.mu.Lock(); e.next = append(e.next, v); e.mu.Unlock() },
		func(err error) { e.mu.Lock(); e.errs = append(e.errs, err); e.mu.Unlock() },
		func() { e.mu.Lock(); e.complete++; e.mu.Unlock() },
	)
}

func TestStream_ColdUntilSubscribed(t *testing.T) {
	src := &source{}
	_ = Retype[string](src.stream())
	if got := src.requests.Load(); got != 0 {
		t.Errorf("expected no requests before subscribe, got %d", got)
	}
}

func TestStream_SubscribeSuccess(t *testing.T) {
	src := &source{respond: func(_ int32, complete func(any, error)) { complete("v", nil) }}
	s := Retype[string](src.stream())

	ev := &events{}
	sub := s.Subscribe(ev.observer())
	<-sub.Done()

	if len(ev.next) != 1 || ev.next[0] != "v" {
		t.Fatalf("expected one element, got %v", ev.next)
	}
	if ev.complete != 1 {
		t.Errorf("expected one completion, got %d", ev.complete)
	}
	if len(ev.errs) != 0 {
		t.Errorf("unexpected errors %v", ev.errs)
	}
	if sub.Err() != nil {
		t.Errorf("unexpected Err %v", sub.Err())
	}
}

func TestStream_SubscribeFailure(t *testing.T) {
	src := &source{respond: func(_ int32, complete func(any, error)) {
		complete(nil, errors.StatusFailure(errors.ReasonServer, 500, nil))
	}}
	s := Retype[string](src.stream())

	ev := &events{}
	sub := s.Subscribe(ev.observer())
	<-sub.Done()

	if len(ev.errs) != 1 || !errors.IsTransportFailure(ev.errs[0]) {
		t.Fatalf("expected one transport failure, got %v", ev.errs)
	}
	if len(ev.next) != 0 || ev.complete != 0 {
		t.Errorf("no element or completion expected, got %v/%d", ev.next, ev.complete)
	}
	if !errors.IsTransportFailure(sub.Err()) {
		t.Errorf("expected Err to report the failure, got %v", sub.Err())
	}
}

func TestStream_TwoSubscriptionsTwoRequests(t *testing.T) {
	src := &source{respond: func(_ int32, complete func(any, error)) { complete("v", nil) }}
	s := Retype[string](src.stream())

	<-s.Subscribe(nil).Done()
	<-s.Subscribe(nil).Done()
	if got := src.requests.Load(); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
}

func TestStream_CancelInFlight(t *testing.T) {
	var pending func(any, error)
	src := &source{respond: func(_ int32, complete func(any, error)) { pending = complete }}
	s := Retype[string](src.stream())

	ev := &events{}
	sub := s.Subscribe(ev.observer())
	sub.Cancel()
	sub.Cancel()

	if got := src.cancels.Load(); got != 1 {
		t.Errorf("expected exactly one call cancel, got %d", got)
	}
	pending("late", nil)
	if len(ev.next) != 0 || len(ev.errs) != 0 || ev.complete != 0 {
		t.Errorf("no events expected after cancel, got %+v", ev)
	}
	if !errors.IsCancelled(sub.Err()) {
		t.Errorf("expected cancelled Err, got %v", sub.Err())
	}
}

func TestStream_CancelAfterCompletionIsInert(t *testing.T) {
	src := &source{respond: func(_ int32, complete func(any, error)) { complete("v", nil) }}
	s := Retype[string](src.stream())

	sub := s.Subscribe(nil)
	<-sub.Done()
	sub.Cancel()

	if got := src.cancels.Load(); got != 0 {
		t.Errorf("transport must not be cancelled after completion, got %d", got)
	}
	if sub.Err() != nil {
		t.Errorf("completed subscription keeps nil Err, got %v", sub.Err())
	}
}

func TestStream_First(t *testing.T) {
	src := &source{respond: func(_ int32, complete func(any, error)) {
		go func() {
			time.Sleep(5 * time.Millisecond)
			complete("async", nil)
		}()
	}}
	v, err := Retype[string](src.stream()).First(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "async" {
		t.Errorf("unexpected value %q", v)
	}
}

func TestStream_FirstContextCancels(t *testing.T) {
	src := &source{}
	s := Retype[string](src.stream())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.First(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if got := src.cancels.Load(); got != 1 {
		t.Errorf("expected the subscription to be cancelled, got %d cancels", got)
	}
}

func TestStream_All(t *testing.T) {
	src := &source{respond: func(_ int32, complete func(any, error)) { complete("only", nil) }}
	s := Retype[string](src.stream())

	var got []string
	for v, err := range s.All(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
	}
	if len(got) != 1 || got[0] != "only" {
		t.Errorf("expected a single element, got %v", got)
	}
}

func TestStream_ConcurrentSubscriptions(t *testing.T) {
	src := &source{respond: func(n int32, complete func(any, error)) {
		go complete(n, nil)
	}}
	s := Retype[int32](src.stream())

	var g errgroup.Group
	seen := make([]int32, 16)
	for i := range seen {
		g.Go(func() error {
			v, err := s.First(context.Background())
			seen[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := src.requests.Load(); got != int32(len(seen)) {
		t.Fatalf("expected %d requests, got %d", len(seen), got)
	}
	unique := make(map[int32]bool)
	for _, v := range seen {
		unique[v] = true
	}
	if len(unique) != len(seen) {
		t.Errorf("each subscription should see its own request, got %v", seen)
	}
}

func TestFromCall(t *testing.T) {
	var complete func(any, error)
	c := call.New[any](func(done func(any, error)) call.Canceler {
		complete = done
		return call.CancelFunc(func() {})
	})
	s := Retype[string](FromCall(c))
	if c.State() != call.StateIdle {
		t.Fatalf("adapting must not start the call, got %s", c.State())
	}

	ev := &events{}
	sub := s.Subscribe(ev.observer())
	if c.State() != call.StateInFlight {
		t.Fatalf("subscribing should enqueue the call, got %s", c.State())
	}
	complete("from-call", nil)
	<-sub.Done()
	if len(ev.next) != 1 || ev.next[0] != "from-call" {
		t.Errorf("unexpected elements %v", ev.next)
	}

	second := s.Subscribe(nil)
	<-second.Done()
	if !errors.IsContractViolation(second.Err()) {
		t.Errorf("expected contract violation on resubscribe, got %v", second.Err())
	}
}

func TestFromCall_CancelSubscriptionCancelsCall(t *testing.T) {
	c := call.New[string](func(func(any, error)) call.Canceler {
		return call.CancelFunc(func() {})
	})
	sub := FromCall(c).Subscribe(nil)
	sub.Cancel()
	if c.State() != call.StateCancelled {
		t.Errorf("expected cancelled call, got %s", c.State())
	}
}

func TestFromCall_AlreadyCancelled(t *testing.T) {
	var started atomic.Bool
	c := call.New[string](func(func(any, error)) call.Canceler {
		started.Store(true)
		return call.CancelFunc(func() {})
	})
	c.Cancel()

	ev := &events{}
	sub := FromCall(c).Subscribe(ev.observer())
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription to a cancelled call did not terminate")
	}
	if !errors.IsCancelled(sub.Err()) {
		t.Errorf("expected cancelled, got %v", sub.Err())
	}
	if len(ev.errs) != 1 || !errors.IsCancelled(ev.errs[0]) {
		t.Errorf("expected one cancelled error, got %v", ev.errs)
	}
	if len(ev.next) != 0 || ev.complete != 0 {
		t.Errorf("no element or completion expected, got %v / %d", ev.next, ev.complete)
	}
	if started.Load() {
		t.Error("a cancelled call must not start")
	}

	v, err := FromCall(c).First(context.Background())
	if !errors.IsCancelled(err) || v != "" {
		t.Errorf("First: expected cancelled, got %q, %v", v, err)
	}
}

func TestFromCall_HolderCancelsInFlight(t *testing.T) {
	c := call.New[string](func(func(any, error)) call.Canceler {
		return call.CancelFunc(func() {})
	})
	ev := &events{}
	sub := FromCall(c).Subscribe(ev.observer())
	if c.State() != call.StateInFlight {
		t.Fatalf("expected in-flight call, got %s", c.State())
	}

	c.Cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelling the call did not end the subscription")
	}
	if !errors.IsCancelled(sub.Err()) {
		t.Errorf("expected cancelled, got %v", sub.Err())
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.errs) != 1 || !errors.IsCancelled(ev.errs[0]) {
		t.Errorf("expected one cancelled error, got %v", ev.errs)
	}
}

func TestFromCall_UnsubscribeIsSilent(t *testing.T) {
	c := call.New[string](func(func(any, error)) call.Canceler {
		return call.CancelFunc(func() {})
	})
	ev := &events{}
	sub := FromCall(c).Subscribe(ev.observer())
	sub.Cancel()
	<-sub.Done()
	// Give the watcher a chance to observe the cancelled call.
	time.Sleep(20 * time.Millisecond)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.errs) != 0 {
		t.Errorf("unsubscribing must not report an error, got %v", ev.errs)
	}
}
