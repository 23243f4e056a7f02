package transport

import (
	"sync"
	"time"

	"github.com/kbukum/declhttp/errors"
)

// BreakerState is the state of a circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker opens after MaxFailures consecutive countable failures and lets a
// single probe through once Cooldown has elapsed. Only retryable transport
// failures count; a 404 says nothing about the health of the server.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultBreakerFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultBreakerCooldown
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the circuit is open.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return errors.TransportFailure(errors.ReasonCircuitOpen, nil)
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	half := b.current() == BreakerHalfOpen
	b.probing = false
	switch {
	case errors.IsCancelled(err):
		return
	case err == nil || !errors.IsRetryable(err):
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if half || b.failures >= b.cfg.MaxFailures {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// current resolves an expired open state to half-open. Callers hold mu.
func (b *Breaker) current() BreakerState {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.state = BreakerHalfOpen
		b.probing = false
	}
	return b.state
}
