package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbscan/internal/domain"
)

// ContractStore implements domain.ContractStore using PostgreSQL. It is the
// persistent tier of the resolver cache: candidate sets per symbol (with TTL
// and explicit negative entries), suppressed failed lookups, confirmed venue
// listings, and the API call log.
type ContractStore struct {
	pool *pgxpool.Pool
}

// NewContractStore creates a ContractStore backed by the given pool.
func NewContractStore(pool *pgxpool.Pool) *ContractStore {
	return &ContractStore{pool: pool}
}

// SaveCandidates replaces the cached candidate set for a symbol. The set is
// written transactionally: the contract_lookups row records the set (and its
// TTL) while contract_candidates holds the members, so a reader never sees a
// half-replaced set.
func (s *ContractStore) SaveCandidates(ctx context.Context, symbol string, cands []domain.ChainCandidate, ttl time.Duration) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save candidates: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	expiresAt := time.Now().UTC().Add(ttl)

	if _, err := tx.Exec(ctx,
		"DELETE FROM contract_candidates WHERE symbol = $1", symbol); err != nil {
		return fmt.Errorf("postgres: clear candidates %s: %w", symbol, err)
	}

	for _, cand := range cands {
		if _, err := tx.Exec(ctx, `
			INSERT INTO contract_candidates (
				symbol, chain_id, contract_address, token_name, image_url,
				liquidity_usd, verified, expires_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
			symbol, cand.ChainID, cand.ContractAddress, cand.TokenName, cand.ImageURL,
			cand.LiquidityUSD, cand.Verified, expiresAt,
		); err != nil {
			return fmt.Errorf("postgres: insert candidate %s/%s: %w", symbol, cand.Key(), err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO contract_lookups (symbol, candidates, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (symbol) DO UPDATE
		SET candidates = EXCLUDED.candidates,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()`,
		symbol, len(cands), expiresAt,
	); err != nil {
		return fmt.Errorf("postgres: upsert lookup %s: %w", symbol, err)
	}

	// A fresh result supersedes any recorded failure.
	if _, err := tx.Exec(ctx,
		"DELETE FROM failed_lookups WHERE symbol = $1", symbol); err != nil {
		return fmt.Errorf("postgres: clear failed lookup %s: %w", symbol, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit save candidates %s: %w", symbol, err)
	}
	return nil
}

// GetCandidates returns the unexpired cached candidate set for a symbol, or
// domain.ErrNotFound when nothing usable is cached. A cached negative result
// returns an empty, non-nil slice.
func (s *ContractStore) GetCandidates(ctx context.Context, symbol string) ([]domain.ChainCandidate, error) {
	var count int
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx,
		"SELECT candidates, expires_at FROM contract_lookups WHERE symbol = $1",
		symbol,
	).Scan(&count, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get lookup %s: %w", symbol, err)
	}
	if time.Now().UTC().After(expiresAt) {
		return nil, domain.ErrNotFound
	}
	if count == 0 {
		return []domain.ChainCandidate{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, contract_address, token_name, image_url, liquidity_usd, verified
		FROM contract_candidates
		WHERE symbol = $1
		ORDER BY liquidity_usd DESC, chain_id, contract_address`,
		symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: get candidates %s: %w", symbol, err)
	}
	defer rows.Close()

	cands := make([]domain.ChainCandidate, 0, count)
	for rows.Next() {
		var cand domain.ChainCandidate
		if err := rows.Scan(
			&cand.ChainID, &cand.ContractAddress, &cand.TokenName,
			&cand.ImageURL, &cand.LiquidityUSD, &cand.Verified,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan candidate %s: %w", symbol, err)
		}
		cands = append(cands, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate candidates %s: %w", symbol, err)
	}
	return cands, nil
}

// SaveFailedLookup records a resolution failure so repeated lookups are
// suppressed until retryAfter.
func (s *ContractStore) SaveFailedLookup(ctx context.Context, symbol, reason string, retryAfter time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO failed_lookups (symbol, reason, retry_after, failed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (symbol) DO UPDATE
		SET reason = EXCLUDED.reason,
			retry_after = EXCLUDED.retry_after,
			failed_at = NOW()`,
		symbol, reason, retryAfter,
	)
	if err != nil {
		return fmt.Errorf("postgres: save failed lookup %s: %w", symbol, err)
	}
	return nil
}

// FailedLookupActive reports whether a recorded failure for the symbol is
// still within its retry-after window.
func (s *ContractStore) FailedLookupActive(ctx context.Context, symbol string) (bool, error) {
	var retryAfter time.Time
	err := s.pool.QueryRow(ctx,
		"SELECT retry_after FROM failed_lookups WHERE symbol = $1", symbol,
	).Scan(&retryAfter)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: check failed lookup %s: %w", symbol, err)
	}
	return time.Now().UTC().Before(retryAfter), nil
}

// SaveVenueListing pins a venue's listing of a symbol to a chain identity.
func (s *ContractStore) SaveVenueListing(ctx context.Context, listing domain.VenueListing) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO venue_listings (venue, symbol, chain_id, contract_address, verified, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (venue, symbol) DO UPDATE
		SET chain_id = EXCLUDED.chain_id,
			contract_address = EXCLUDED.contract_address,
			verified = EXCLUDED.verified,
			updated_at = NOW()`,
		listing.Venue, listing.Symbol,
		listing.Candidate.ChainID, listing.Candidate.ContractAddress, listing.Candidate.Verified,
	)
	if err != nil {
		return fmt.Errorf("postgres: save venue listing %s/%s: %w", listing.Venue, listing.Symbol, err)
	}
	return nil
}

// ListVenueListings returns all confirmed listing identities.
func (s *ContractStore) ListVenueListings(ctx context.Context) ([]domain.VenueListing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT venue, symbol, chain_id, contract_address, verified
		FROM venue_listings`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list venue listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.VenueListing
	for rows.Next() {
		var l domain.VenueListing
		if err := rows.Scan(
			&l.Venue, &l.Symbol,
			&l.Candidate.ChainID, &l.Candidate.ContractAddress, &l.Candidate.Verified,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan venue listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate venue listings: %w", err)
	}
	return listings, nil
}

// LogAPICall appends one API call record.
func (s *ContractStore) LogAPICall(ctx context.Context, call domain.APICall) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_call_log (api_name, endpoint, status_code, success, latency_ms, error, called_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		call.APIName, call.Endpoint, call.StatusCode, call.Success,
		call.Latency.Milliseconds(), call.Error, call.CalledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: log api call: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ContractStore = (*ContractStore)(nil)
