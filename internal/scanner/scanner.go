// Package scanner drives the scan pipeline: aggregate quotes across venues,
// detect fee-adjusted opportunities, enrich them with chain identity, persist
// the batch, and alert. It also owns the background sweep and archive loops.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscan/internal/aggregator"
	"arbscan/internal/detector"
	"arbscan/internal/domain"
	"arbscan/internal/enricher"
	"arbscan/internal/notify"
)

// Config controls the scan cadence and background maintenance loops.
type Config struct {
	// Interval is the pause between scan cycles.
	Interval time.Duration

	// CycleBudget bounds the wall-clock time of one cycle; a cycle that
	// exceeds it is cancelled and its partial results are dropped.
	CycleBudget time.Duration

	// SweepEvery is the pause between enrichment sweep runs; zero disables
	// the sweep loop.
	SweepEvery time.Duration

	// ArchiveCron schedules retention archiving in the standard 5-field cron
	// format; empty disables the archive loop.
	ArchiveCron string

	// RetentionDays is how long opportunities stay in the primary store
	// before the archive loop moves them to cold storage.
	RetentionDays int
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.CycleBudget <= 0 {
		c.CycleBudget = c.Interval
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
}

// Scanner wires the pipeline stages together and runs them on a schedule.
type Scanner struct {
	agg       *aggregator.Aggregator
	det       *detector.Detector
	enr       *enricher.Enricher
	store     domain.OpportunityStore
	contracts domain.ContractStore
	quotes    domain.QuoteCache          // optional
	alerts    *notify.AlertManager       // optional
	archiver  domain.OpportunityArchiver // optional

	cfg     Config
	logger  *slog.Logger
	trigger chan struct{}
}

// New creates a Scanner. The quote cache, alert manager, and archiver are
// optional; pass nil to disable the corresponding side effect.
func New(
	agg *aggregator.Aggregator,
	det *detector.Detector,
	enr *enricher.Enricher,
	store domain.OpportunityStore,
	contracts domain.ContractStore,
	quotes domain.QuoteCache,
	alerts *notify.AlertManager,
	archiver domain.OpportunityArchiver,
	cfg Config,
	logger *slog.Logger,
) *Scanner {
	cfg.applyDefaults()
	return &Scanner{
		agg:       agg,
		det:       det,
		enr:       enr,
		store:     store,
		contracts: contracts,
		quotes:    quotes,
		alerts:    alerts,
		archiver:  archiver,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "scanner")),
		trigger:   make(chan struct{}, 1),
	}
}

// Trigger requests an immediate scan cycle without waiting for the next tick.
// Safe to call from any goroutine; coalesces if a trigger is already pending.
func (s *Scanner) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run starts the scan loop and the background maintenance loops, blocking
// until ctx is cancelled. A failed cycle, persistence included, is logged and
// the loop waits for the next tick; venue and enrichment failures degrade the
// cycle instead.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("scanner starting",
		slog.Duration("interval", s.cfg.Interval),
		slog.Duration("cycle_budget", s.cfg.CycleBudget),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.scanLoop(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("scan loop: %w", err)
	})

	if s.cfg.SweepEvery > 0 {
		g.Go(func() error {
			s.sweepLoop(ctx)
			return nil
		})
	}

	if s.cfg.ArchiveCron != "" && s.archiver != nil {
		g.Go(func() error {
			err := s.archiveLoop(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archive loop: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("scanner stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("scanner stopped cleanly")
	return nil
}

func (s *Scanner) scanLoop(ctx context.Context) error {
	// First cycle runs immediately.
	s.runCycle(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-s.trigger:
			s.logger.Info("on-demand scan triggered")
		}
		s.runCycle(ctx)
	}
}

// runCycle keeps the loop alive across a failed cycle: a transient store
// outage costs one cycle's results, not the daemon.
func (s *Scanner) runCycle(ctx context.Context) {
	if err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scan cycle failed, skipping to next tick",
			slog.String("error", err.Error()))
	}
}

// RunCycle executes one scan cycle within the configured wall-clock budget.
// It returns an error only when persistence fails; everything upstream of the
// store degrades gracefully.
func (s *Scanner) RunCycle(ctx context.Context) error {
	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.CycleBudget)
	defer cancel()

	started := time.Now()

	quotesByVenue := s.agg.Aggregate(cycleCtx)
	if len(quotesByVenue) == 0 {
		s.logger.Warn("no venue produced quotes, skipping cycle")
		return nil
	}
	s.cacheQuotes(cycleCtx, quotesByVenue)

	listings, err := s.loadListings(cycleCtx)
	if err != nil {
		// Detection still works without confirmed identities; records come
		// out provisional and the sweep completes them later.
		s.logger.Warn("loading venue listings failed",
			slog.String("error", err.Error()))
		listings = nil
	}

	opps := s.det.Detect(quotesByVenue, listings)
	opps = s.enr.EnrichBatch(cycleCtx, opps)
	opps = s.det.Sanitize(opps)

	if err := s.store.InsertBatch(cycleCtx, opps); err != nil {
		return fmt.Errorf("scanner: persist cycle: %w", err)
	}

	if s.alerts != nil && len(opps) > 0 {
		if err := s.alerts.AlertOpportunities(cycleCtx, opps); err != nil {
			s.logger.Warn("alert delivery failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("scan cycle complete",
		slog.Int("venues", len(quotesByVenue)),
		slog.Int("opportunities", len(opps)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (s *Scanner) cacheQuotes(ctx context.Context, quotesByVenue map[string][]domain.Quote) {
	if s.quotes == nil {
		return
	}
	var all []domain.Quote
	for _, qs := range quotesByVenue {
		all = append(all, qs...)
	}
	if err := s.quotes.SetBatch(ctx, all); err != nil {
		s.logger.Warn("quote cache write failed", slog.String("error", err.Error()))
	}
}

func (s *Scanner) loadListings(ctx context.Context) (map[domain.ListingKey]domain.ChainCandidate, error) {
	listings, err := s.contracts.ListVenueListings(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ListingKey]domain.ChainCandidate, len(listings))
	for _, l := range listings {
		out[domain.ListingKey{Venue: l.Venue, Symbol: l.Symbol}] = l.Candidate
	}
	return out, nil
}

func (s *Scanner) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updated, err := s.enr.Sweep(ctx)
			if err != nil {
				s.logger.Warn("enrichment sweep failed", slog.String("error", err.Error()))
				continue
			}
			if updated > 0 {
				s.logger.Info("enrichment sweep complete", slog.Int("updated", updated))
			}
		}
	}
}
