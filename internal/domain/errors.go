package domain

import "errors"

var (
	// ErrNotFound means the requested record or symbol has no data. For
	// metadata lookups this is cached as a negative result, not surfaced as a
	// failure.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited means the upstream throttled us (HTTP 429) and retries
	// were exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrServiceUnavailable means the upstream kept failing (5xx or network
	// errors) through all retries.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrCircuitOpen means the circuit breaker is open and the call was
	// failed fast without a network attempt.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrSourceUnavailable means a single venue adapter failed or timed out;
	// the batch degrades but continues without that venue.
	ErrSourceUnavailable = errors.New("quote source unavailable")
	// ErrDataIntegrity means a record carried non-finite or out-of-range
	// numbers and was dropped rather than repaired.
	ErrDataIntegrity = errors.New("data integrity violation")
)
