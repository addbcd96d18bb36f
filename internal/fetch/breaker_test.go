package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

// fakeClock drives a breaker's notion of time from the test.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())
	require.NoError(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), domain.ErrCircuitOpen)
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(1, time.Minute)
	b.now = clock.now

	b.RecordFailure()
	assert.ErrorIs(t, b.Allow(), domain.ErrCircuitOpen)

	clock.advance(time.Minute)
	require.NoError(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())

	// Only one trial may be in flight while the first resolves.
	assert.ErrorIs(t, b.Allow(), domain.ErrCircuitOpen)

	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreakerCancelTrialReturnsToOpen(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(1, time.Minute)
	b.now = clock.now

	b.RecordFailure()
	clock.advance(time.Minute)
	require.NoError(t, b.Allow())
	require.Equal(t, BreakerHalfOpen, b.State())

	// The caller aborts before making the call; the slot must come back.
	b.CancelTrial()
	assert.Equal(t, BreakerOpen, b.State())

	// The released trial goes to the next caller, and a success still closes
	// the circuit.
	require.NoError(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())

	// No-op outside an in-flight trial.
	b.CancelTrial()
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerTrialFailureDoublesCoolDown(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(1, time.Minute)
	b.now = clock.now

	b.RecordFailure()
	clock.advance(time.Minute)
	require.NoError(t, b.Allow()) // trial admitted
	b.RecordFailure()             // trial fails, re-opens with 2x cool-down
	assert.Equal(t, BreakerOpen, b.State())

	clock.advance(time.Minute)
	assert.ErrorIs(t, b.Allow(), domain.ErrCircuitOpen)

	clock.advance(time.Minute)
	assert.NoError(t, b.Allow())
}

func TestBreakerCoolDownBackoffCapped(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(1, time.Minute)
	b.now = clock.now

	// Fail the initial call and then four consecutive trials; factor would be
	// 16 without the cap.
	b.RecordFailure()
	for i := 0; i < 4; i++ {
		clock.advance(16 * time.Minute)
		require.NoError(t, b.Allow())
		b.RecordFailure()
	}

	clock.advance(8*time.Minute - time.Second)
	assert.ErrorIs(t, b.Allow(), domain.ErrCircuitOpen)

	clock.advance(time.Second)
	assert.NoError(t, b.Allow())
}

func TestBreakerZeroThresholdClamped(t *testing.T) {
	b := NewBreaker(0, time.Minute)
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
}
