package provider

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the state of the feed circuit breaker.
type BreakerState int

const (
	BreakerClosed   BreakerState = 0 // fetches go through
	BreakerOpen     BreakerState = 1 // fetches fail fast
	BreakerHalfOpen BreakerState = 2 // one trial fetch allowed
)

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

// ErrCircuitOpen is returned while the breaker refuses to contact the provider.
var ErrCircuitOpen = errors.New("provider circuit breaker is open")

// CircuitBreaker stops hammering a provider that keeps failing. After
// maxFailures consecutive failed fetches it opens and rejects fetches for
// cooldown; the next fetch after that is a trial whose outcome closes or
// reopens the breaker. It never retries anything itself.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	now         func() time.Time

	// OnStateChange, if set, is called with the lock held on every transition.
	OnStateChange func(from, to BreakerState)
}

// NewCircuitBreaker returns a closed breaker. maxFailures <= 0 disables it.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:       BreakerClosed,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Do runs fn unless the breaker is open. While a half-open trial is in
// flight every other call is rejected with ErrCircuitOpen.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if cb.maxFailures <= 0 {
		return fn()
	}

	cb.mu.Lock()
	trial := false
	switch cb.state {
	case BreakerHalfOpen:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case BreakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transition(BreakerHalfOpen)
		trial = true
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Only the trial decides how a half-open breaker leaves that state.
	if cb.state == BreakerHalfOpen && !trial {
		return err
	}

	if err == nil {
		if cb.state != BreakerClosed {
			cb.transition(BreakerClosed)
		}
		cb.failures = 0
		return nil
	}

	cb.failures++
	if trial || cb.failures >= cb.maxFailures {
		cb.openedAt = cb.now()
		cb.transition(BreakerOpen)
	}
	return err
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) transition(to BreakerState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == BreakerClosed {
		cb.failures = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
