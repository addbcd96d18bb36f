package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbscan/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, symbol, buy_venue, sell_venue, buy_price, sell_price,
	profit_percent, profit_amount, volume,
	blockchain, contract_address, chain_id, contract_verified,
	enrichment_complete, observed_at`

// InsertBatch stores a cycle's opportunities in one batch. Duplicate-key
// conflicts are skipped so at-least-once writes stay idempotent.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	const query = `
		INSERT INTO opportunities (
			id, symbol, buy_venue, sell_venue, buy_price, sell_price,
			profit_percent, profit_amount, volume,
			blockchain, contract_address, chain_id, contract_verified,
			enrichment_complete, observed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14, $15
		)
		ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, opp := range opps {
		batch.Queue(query,
			opp.ID, opp.Symbol, opp.BuyVenue, opp.SellVenue, opp.BuyPrice, opp.SellPrice,
			opp.ProfitPercent, opp.ProfitAmount, opp.Volume,
			opp.Blockchain, opp.ContractAddress, opp.ChainID, opp.ContractVerified,
			opp.EnrichmentComplete, opp.ObservedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range opps {
		if _, err := results.Exec(); err != nil {
			var pgErr *pgconn.PgError
			// 23505 unique_violation: tolerated for idempotent re-writes.
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				continue
			}
			return fmt.Errorf("postgres: insert opportunities: %w", err)
		}
	}
	return nil
}

// QueryRecent returns opportunities observed within the window, newest
// first.
func (s *OpportunityStore) QueryRecent(ctx context.Context, window time.Duration, limit int) ([]domain.Opportunity, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM opportunities
		WHERE observed_at >= $1
		ORDER BY observed_at DESC, profit_percent DESC
		LIMIT $2`, oppSelectCols)

	since := time.Now().UTC().Add(-window)
	rows, err := s.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query recent opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// QueryIncompleteEnrichment returns records still awaiting chain identity
// observed before olderThan, oldest first.
func (s *OpportunityStore) QueryIncompleteEnrichment(ctx context.Context, olderThan time.Time, limit int) ([]domain.Opportunity, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM opportunities
		WHERE NOT enrichment_complete AND observed_at < $1
		ORDER BY observed_at ASC
		LIMIT $2`, oppSelectCols)

	rows, err := s.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query incomplete enrichment: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// UpdateEnrichment writes back the chain identity fields after a successful
// re-resolution.
func (s *OpportunityStore) UpdateEnrichment(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		UPDATE opportunities
		SET blockchain = $2, contract_address = $3, chain_id = $4,
			contract_verified = $5, enrichment_complete = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		opp.ID, opp.Blockchain, opp.ContractAddress, opp.ChainID,
		opp.ContractVerified, opp.EnrichmentComplete,
	)
	if err != nil {
		return fmt.Errorf("postgres: update enrichment %s: %w", opp.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update enrichment %s: %w", opp.ID, domain.ErrNotFound)
	}
	return nil
}

// QueryBefore returns opportunities observed before the cutoff, oldest
// first. The id tiebreak keeps paging stable across rows sharing one
// observed_at.
func (s *OpportunityStore) QueryBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Opportunity, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM opportunities
		WHERE observed_at < $1
		ORDER BY observed_at ASC, id ASC
		LIMIT $2`, oppSelectCols)

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query opportunities before %v: %w", cutoff, err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// DeleteByID removes the given opportunities.
func (s *OpportunityStore) DeleteByID(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM opportunities WHERE id = ANY($1)", ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities by id: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOpportunities(rows pgx.Rows) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		err := rows.Scan(
			&opp.ID, &opp.Symbol, &opp.BuyVenue, &opp.SellVenue, &opp.BuyPrice, &opp.SellPrice,
			&opp.ProfitPercent, &opp.ProfitAmount, &opp.Volume,
			&opp.Blockchain, &opp.ContractAddress, &opp.ChainID, &opp.ContractVerified,
			&opp.EnrichmentComplete, &opp.ObservedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
