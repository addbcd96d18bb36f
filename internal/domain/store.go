package domain

import (
	"context"
	"time"
)

// OpportunityStore is the persistence sink for detected opportunities. Writes
// are at-least-once; duplicate-key rejections are tolerated by callers.
type OpportunityStore interface {
	// InsertBatch stores a cycle's opportunities. A failure here is a
	// PersistenceFailure and must be surfaced to the cycle's caller.
	InsertBatch(ctx context.Context, opps []Opportunity) error
	// QueryRecent returns opportunities observed within the given window,
	// newest first.
	QueryRecent(ctx context.Context, window time.Duration, limit int) ([]Opportunity, error)
	// QueryIncompleteEnrichment returns records still awaiting chain
	// identity that were observed before olderThan, oldest first.
	QueryIncompleteEnrichment(ctx context.Context, olderThan time.Time, limit int) ([]Opportunity, error)
	// UpdateEnrichment writes the chain identity fields of a previously
	// stored record after a successful re-resolution.
	UpdateEnrichment(ctx context.Context, opp Opportunity) error
	// QueryBefore returns opportunities observed before the cutoff in a
	// stable oldest-first order. Used by the archiver.
	QueryBefore(ctx context.Context, cutoff time.Time, limit int) ([]Opportunity, error)
	// DeleteByID removes the given opportunities and returns the number
	// deleted. The archiver uses it to drop exactly the records it uploaded.
	DeleteByID(ctx context.Context, ids []string) (int64, error)
}

// APICall is one logged request to a third-party metadata API, kept for quota
// tracking.
type APICall struct {
	APIName    string
	Endpoint   string
	StatusCode int
	Success    bool
	Latency    time.Duration
	Error      string
	CalledAt   time.Time
}

// ContractStore is the persistent tier of the resolver cache plus the
// negative-lookup and API-call bookkeeping tables.
type ContractStore interface {
	// SaveCandidates replaces the cached candidate set for a symbol with the
	// given TTL. An empty set records a negative result.
	SaveCandidates(ctx context.Context, symbol string, cands []ChainCandidate, ttl time.Duration) error
	// GetCandidates returns the unexpired cached candidates for a symbol.
	// It returns ErrNotFound when nothing is cached or the entry expired.
	// A cached negative result returns an empty, non-nil slice.
	GetCandidates(ctx context.Context, symbol string) ([]ChainCandidate, error)
	// SaveFailedLookup records that resolution failed for a symbol so
	// repeated lookups can be suppressed until retryAfter.
	SaveFailedLookup(ctx context.Context, symbol, reason string, retryAfter time.Time) error
	// FailedLookupActive reports whether a failed lookup for the symbol is
	// still within its retry-after window.
	FailedLookupActive(ctx context.Context, symbol string) (bool, error)
	// SaveVenueListing pins a venue's listing of a symbol to a chain identity.
	SaveVenueListing(ctx context.Context, listing VenueListing) error
	// ListVenueListings returns all confirmed listing identities.
	ListVenueListings(ctx context.Context) ([]VenueListing, error)
	// LogAPICall appends one API call record.
	LogAPICall(ctx context.Context, call APICall) error
}
