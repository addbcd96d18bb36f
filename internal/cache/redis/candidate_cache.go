package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"arbscan/internal/domain"
)

// CandidateCache implements domain.CandidateCache using Redis string keys
// with native TTLs. It is the hot tier of the resolver cache; the candidate
// set is stored as a JSON array so a cached negative result ("[]") is
// distinguishable from a miss.
type CandidateCache struct {
	c *Client
}

// NewCandidateCache creates a CandidateCache backed by the given Client.
func NewCandidateCache(c *Client) *CandidateCache {
	return &CandidateCache{c: c}
}

// Set caches the candidate set for a symbol with the given TTL, replacing
// any previous entry. An empty set is stored as a negative entry.
func (cc *CandidateCache) Set(ctx context.Context, symbol string, cands []domain.ChainCandidate, ttl time.Duration) error {
	if cands == nil {
		cands = []domain.ChainCandidate{}
	}
	payload, err := json.Marshal(cands)
	if err != nil {
		return fmt.Errorf("redis: marshal candidates %s: %w", symbol, err)
	}
	if err := cc.c.rdb.Set(ctx, cc.c.key("candidates", symbol), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set candidates %s: %w", symbol, err)
	}
	return nil
}

// Get returns the cached candidate set for a symbol. It returns
// domain.ErrNotFound on a miss; a cached negative entry returns an empty,
// non-nil slice.
func (cc *CandidateCache) Get(ctx context.Context, symbol string) ([]domain.ChainCandidate, error) {
	payload, err := cc.c.rdb.Get(ctx, cc.c.key("candidates", symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get candidates %s: %w", symbol, err)
	}

	cands := []domain.ChainCandidate{}
	if err := json.Unmarshal(payload, &cands); err != nil {
		return nil, fmt.Errorf("redis: decode candidates %s: %w", symbol, err)
	}
	return cands, nil
}

// Compile-time interface check.
var _ domain.CandidateCache = (*CandidateCache)(nil)
