package domain

import (
	"context"
	"time"
)

// CandidateCache is the hot tier of the resolver cache. Entries are replaced,
// not mutated, on refresh and expire after their TTL.
type CandidateCache interface {
	// Set caches the candidate set for a symbol. An empty set is a valid
	// negative entry.
	Set(ctx context.Context, symbol string, cands []ChainCandidate, ttl time.Duration) error
	// Get returns the cached candidates for a symbol, or ErrNotFound on a
	// miss. A cached negative entry returns an empty, non-nil slice.
	Get(ctx context.Context, symbol string) ([]ChainCandidate, error)
}

// QuoteCache holds the latest aggregated quote per (venue, symbol) for
// observability and ad hoc queries.
type QuoteCache interface {
	SetBatch(ctx context.Context, quotes []Quote) error
	Get(ctx context.Context, venue, symbol string) (Quote, error)
}

// OpportunityArchiver moves opportunity rows older than the cutoff to cold
// storage and returns how many were archived.
type OpportunityArchiver interface {
	ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error)
}
