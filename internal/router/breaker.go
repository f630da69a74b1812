package router

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by Allow while the breaker rejects calls.
var ErrBreakerOpen = errors.New("model breaker is open")

// BreakerState is the current mode of the model breaker.
type BreakerState int

const (
	// BreakerClosed passes all calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen lets probe calls through to test recovery.
	BreakerHalfOpen
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

// Breaker guards the model classifier against a flapping upstream. After
// maxFailures consecutive failures it opens for cooldown; the first call
// after the cooldown probes the upstream, and probeSuccesses consecutive
// successful probes close it again. The heuristic fallback means an open
// breaker degrades classification quality, never availability.
type Breaker struct {
	mu sync.RWMutex

	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time

	maxFailures    int
	probeSuccesses int
	cooldown       time.Duration
}

// NewBreaker builds a Breaker. Non-positive arguments fall back to
// 5 failures, 2 probe successes and a 30 second cooldown.
func NewBreaker(maxFailures, probeSuccesses int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if probeSuccesses <= 0 {
		probeSuccesses = 2
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		state:          BreakerClosed,
		maxFailures:    maxFailures,
		probeSuccesses: probeSuccesses,
		cooldown:       cooldown,
	}
}

// Allow reports whether a call may proceed, transitioning Open to HalfOpen
// once the cooldown has elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) <= b.cooldown {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.successes = 0
	}
	return nil
}

// Success records a successful call.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.probeSuccesses {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
		}
	case BreakerClosed:
		b.failures = 0
	}
}

// Failure records a failed call. A failed probe reopens immediately.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.openedAt = time.Now()

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.maxFailures {
			b.state = BreakerOpen
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.successes = 0
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}
