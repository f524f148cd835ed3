package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// String returns the string representation of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half-open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerSettings configures a Breaker.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold uint32
	// Timeout is the period of the open state until a probe is allowed.
	Timeout time.Duration
	// OnStateChange is called whenever the state changes.
	OnStateChange func(name string, from, to BreakerState)
}

// Breaker guards a flaky dependency: after FailureThreshold consecutive
// failures calls are rejected for Timeout, then a single probe decides
// whether to close the circuit again.
type Breaker struct {
	name     string
	settings BreakerSettings

	mu            sync.Mutex
	state         BreakerState
	consecutive   uint32
	openedAt      time.Time
	probeInFlight bool
}

// NewBreaker creates a circuit breaker with the given settings.
func NewBreaker(name string, settings BreakerSettings) *Breaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.Timeout == 0 {
		settings.Timeout = 60 * time.Second
	}
	return &Breaker{
		name:     name,
		settings: settings,
		state:    BreakerClosed,
	}
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// Do runs op if the breaker accepts it and records the outcome.
func (b *Breaker) Do(op func() error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}
	err := op()
	b.afterCall(err == nil)
	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState(time.Now()) {
	case BreakerOpen:
		return ErrCircuitOpen
	case BreakerHalfOpen:
		if b.probeInFlight {
			return ErrCircuitOpen
		}
		b.probeInFlight = true
	}
	return nil
}

func (b *Breaker) afterCall(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)
	b.probeInFlight = false

	if success {
		b.consecutive = 0
		if state != BreakerClosed {
			b.setState(BreakerClosed, now)
		}
		return
	}

	b.consecutive++
	if state == BreakerHalfOpen || b.consecutive >= b.settings.FailureThreshold {
		b.setState(BreakerOpen, now)
	}
}

// currentState must be called with the lock held.
func (b *Breaker) currentState(now time.Time) BreakerState {
	if b.state == BreakerOpen && now.Sub(b.openedAt) >= b.settings.Timeout {
		b.setState(BreakerHalfOpen, now)
	}
	return b.state
}

// setState must be called with the lock held.
func (b *Breaker) setState(state BreakerState, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	if state == BreakerOpen {
		b.openedAt = now
		b.consecutive = 0
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
