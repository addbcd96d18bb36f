// Package enricher attaches chain identities to detected opportunities. It
// runs as a best-effort, bounded pass per cycle and as a periodic sweep that
// re-attempts enrichment for stored records whose identity is still unknown.
package enricher

import (
	"context"
	"log/slog"
	"time"

	"arbscan/internal/domain"
)

// SymbolResolver is the slice of the resolver the enricher needs.
type SymbolResolver interface {
	Resolve(ctx context.Context, symbol string) ([]domain.ChainCandidate, error)
}

// Config holds enrichment parameters.
type Config struct {
	// BatchSize bounds how many of the newest opportunities are enriched per
	// cycle; the rest wait for the sweep.
	BatchSize int
	// ReResolveAge is how old an incomplete record must be before the sweep
	// re-attempts it.
	ReResolveAge time.Duration
	// SweepBatchSize bounds one sweep's workload.
	SweepBatchSize int
}

// Enricher resolves chain identities for opportunities.
type Enricher struct {
	resolver  SymbolResolver
	store     domain.OpportunityStore
	contracts domain.ContractStore
	cfg       Config
	logger    *slog.Logger
}

// New creates an Enricher. store may be nil when running without
// persistence, in which case Sweep is a no-op. contracts, when non-nil,
// receives confirmed venue listing identities so future detection cycles can
// use them for same-ticker dedup.
func New(resolver SymbolResolver, store domain.OpportunityStore, contracts domain.ContractStore, cfg Config, logger *slog.Logger) *Enricher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 100
	}
	return &Enricher{
		resolver:  resolver,
		store:     store,
		contracts: contracts,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "enricher")),
	}
}

// EnrichBatch enriches up to BatchSize of the given opportunities in place
// and returns the full slice. Opportunities past the bound, and those whose
// symbol cannot be resolved or is ambiguous this cycle, keep
// EnrichmentComplete=false and are picked up later by the sweep. Enrichment
// never fails the pipeline.
func (e *Enricher) EnrichBatch(ctx context.Context, opps []domain.Opportunity) []domain.Opportunity {
	bound := len(opps)
	if bound > e.cfg.BatchSize {
		bound = e.cfg.BatchSize
	}

	enriched := 0
	for i := 0; i < bound; i++ {
		if ctx.Err() != nil {
			break
		}
		if opps[i].EnrichmentComplete {
			continue
		}
		if e.Enrich(ctx, &opps[i]) {
			enriched++
		}
	}

	e.logger.InfoContext(ctx, "enrichment pass complete",
		slog.Int("total", len(opps)),
		slog.Int("attempted", bound),
		slog.Int("enriched", enriched),
	)
	return opps
}

// Enrich resolves one opportunity's symbol and applies the identity when a
// unique, unambiguous candidate exists. It reports whether enrichment
// completed. A symbol spread over multiple chains with no way to tell which
// chain each venue's listing refers to is left incomplete.
func (e *Enricher) Enrich(ctx context.Context, opp *domain.Opportunity) bool {
	cands, err := e.resolver.Resolve(ctx, opp.Symbol)
	if err != nil {
		// Metadata unavailable this cycle; the sweep will retry.
		e.logger.DebugContext(ctx, "resolve failed",
			slog.String("symbol", opp.Symbol),
			slog.String("error", err.Error()),
		)
		return false
	}

	cand, ok := uniqueCandidate(cands)
	if !ok {
		e.logger.DebugContext(ctx, "identity ambiguous or unknown",
			slog.String("symbol", opp.Symbol),
			slog.Int("candidates", len(cands)),
		)
		return false
	}

	opp.ApplyIdentity(cand)
	e.saveListings(ctx, opp, cand)
	return true
}

// saveListings pins both venues' listings of the symbol to the confirmed
// identity so the detector can reject same-ticker collisions next cycle.
func (e *Enricher) saveListings(ctx context.Context, opp *domain.Opportunity, cand domain.ChainCandidate) {
	if e.contracts == nil {
		return
	}
	for _, venue := range []string{opp.BuyVenue, opp.SellVenue} {
		listing := domain.VenueListing{Venue: venue, Symbol: opp.Symbol, Candidate: cand}
		if err := e.contracts.SaveVenueListing(ctx, listing); err != nil {
			e.logger.WarnContext(ctx, "venue listing write failed",
				slog.String("venue", venue),
				slog.String("symbol", opp.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Sweep re-attempts enrichment for stored incomplete records older than
// ReResolveAge and writes back the ones that now resolve. It returns how
// many records were completed.
func (e *Enricher) Sweep(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, nil
	}

	olderThan := time.Now().UTC().Add(-e.cfg.ReResolveAge)
	opps, err := e.store.QueryIncompleteEnrichment(ctx, olderThan, e.cfg.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range opps {
		if ctx.Err() != nil {
			break
		}
		if !e.Enrich(ctx, &opps[i]) {
			continue
		}
		if err := e.store.UpdateEnrichment(ctx, opps[i]); err != nil {
			e.logger.WarnContext(ctx, "enrichment write-back failed",
				slog.String("id", opps[i].ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		completed++
	}

	if len(opps) > 0 {
		e.logger.InfoContext(ctx, "enrichment sweep complete",
			slog.Int("candidates", len(opps)),
			slog.Int("completed", completed),
		)
	}
	return completed, nil
}

// uniqueCandidate returns the single high-confidence identity for a
// candidate set. Multiple candidates on the same chain and contract collapse
// to one; candidates on different chains are ambiguous.
func uniqueCandidate(cands []domain.ChainCandidate) (domain.ChainCandidate, bool) {
	if len(cands) == 0 {
		return domain.ChainCandidate{}, false
	}
	first := cands[0]
	for _, c := range cands[1:] {
		if !c.SameAsset(first) {
			return domain.ChainCandidate{}, false
		}
	}
	return first, true
}
