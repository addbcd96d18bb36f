package fetch

import (
	"sync"
	"time"

	"arbscan/internal/domain"
)

// BreakerState is the circuit breaker's current position.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// maxCoolDownFactor caps the cool-down backoff applied on consecutive
// re-opens.
const maxCoolDownFactor = 8

// Breaker is a consecutive-failure circuit breaker. After threshold failures
// it opens and fails calls fast until the cool-down elapses; then exactly one
// trial call is let through (half-open). A trial success closes the circuit,
// a trial failure re-opens it with the cool-down doubled, capped at 8x the
// base. State is guarded by a mutex so concurrent callers cannot race the
// failure counter.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	coolDown  time.Duration

	state         BreakerState
	failures      int
	openedAt      time.Time
	reopens       int // consecutive re-opens, drives cool-down backoff
	trialInFlight bool

	now func() time.Time
}

// NewBreaker creates a closed Breaker that opens after threshold consecutive
// failures and stays open for coolDown before allowing a trial call.
func NewBreaker(threshold int, coolDown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		coolDown:  coolDown,
		state:     BreakerClosed,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. While open it returns
// domain.ErrCircuitOpen without any side effect; once the cool-down has
// elapsed it admits a single trial call and holds further callers off until
// that trial resolves.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.currentCoolDown() {
			return domain.ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.trialInFlight = true
		return nil
	case BreakerHalfOpen:
		if b.trialInFlight {
			return domain.ErrCircuitOpen
		}
		b.trialInFlight = true
		return nil
	}
	return nil
}

// RecordSuccess resets the breaker to closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.reopens = 0
	b.trialInFlight = false
}

// CancelTrial returns an admitted trial slot without resolving it, used when
// the caller aborts between Allow and the request. The breaker goes back to
// Open with the cool-down unchanged, so the next caller is offered the trial
// instead of everyone failing fast behind a slot nobody holds.
func (b *Breaker) CancelTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerHalfOpen && b.trialInFlight {
		b.state = BreakerOpen
		b.trialInFlight = false
	}
}

// RecordFailure counts one failed call. In the closed state it opens the
// circuit once the threshold is reached; in the half-open state it re-opens
// immediately with the cool-down backed off.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.reopens++
		b.open()
	case BreakerClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.open()
		}
	case BreakerOpen:
		// Late failure from a call admitted before opening; nothing to do.
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) open() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.failures = 0
	b.trialInFlight = false
}

func (b *Breaker) currentCoolDown() time.Duration {
	factor := 1
	for i := 0; i < b.reopens && factor < maxCoolDownFactor; i++ {
		factor *= 2
	}
	return b.coolDown * time.Duration(factor)
}
