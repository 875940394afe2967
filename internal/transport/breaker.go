package transport

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// StateClosed lets every call through
	StateClosed CircuitState = iota
	// StateOpen refuses calls until the reset timeout has elapsed
	StateOpen
	// StateHalfOpen lets calls through; the next failure reopens the circuit
	StateHalfOpen
)

// String returns the string representation of CircuitState
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops hammering an upstream that keeps failing.
// A threshold below 1 disables it.
type CircuitBreaker struct {
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
}

// NewCircuitBreaker creates a circuit breaker that opens after threshold
// consecutive failures and half-opens after resetTimeout
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        StateClosed,
	}
}

// Allow returns ErrCircuitOpen while the circuit is open
func (cb *CircuitBreaker) Allow() error {
	if cb == nil || cb.threshold < 1 {
		return nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked()
	if cb.state == StateOpen {
		return ErrCircuitOpen
	}
	return nil
}

// Record feeds the outcome of a call into the breaker
func (cb *CircuitBreaker) Record(err error) {
	if cb == nil || cb.threshold < 1 {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failures = 0
		cb.state = StateClosed
		return
	}

	cb.failures++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failures >= cb.threshold {
		cb.state = StateOpen
	}
}

// State returns the current state, moving Open to HalfOpen once the reset timeout has elapsed
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked()
	return cb.state
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// advanceLocked must be called with cb.mu held
func (cb *CircuitBreaker) advanceLocked() {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.resetTimeout {
		cb.state = StateHalfOpen
		cb.failures = 0
	}
}
