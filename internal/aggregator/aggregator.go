// Package aggregator fans out to all configured venue adapters concurrently
// and collects their quote sets. A single failing or slow venue degrades the
// batch, never fails it.
package aggregator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscan/internal/domain"
)

// Config holds aggregation parameters.
type Config struct {
	// AdapterTimeout bounds each adapter's fetch independently.
	AdapterTimeout time.Duration
	// MaxConcurrent bounds how many adapters fetch at once. Zero means one
	// goroutine per adapter.
	MaxConcurrent int
}

// Aggregator collects quotes from all venues for one cycle.
type Aggregator struct {
	adapters []domain.VenueAdapter
	cfg      Config
	logger   *slog.Logger
}

// New creates an Aggregator over the given adapters.
func New(adapters []domain.VenueAdapter, cfg Config, logger *slog.Logger) *Aggregator {
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 10 * time.Second
	}
	return &Aggregator{
		adapters: adapters,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "aggregator")),
	}
}

// Aggregate invokes every adapter concurrently, each under its own timeout,
// and returns quotes keyed by venue. Venues that failed or timed out are
// absent from the map; their absence is logged as a degraded source. No
// retries happen at this layer.
func (a *Aggregator) Aggregate(ctx context.Context) map[string][]domain.Quote {
	results := make(map[string][]domain.Quote, len(a.adapters))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.MaxConcurrent > 0 {
		g.SetLimit(a.cfg.MaxConcurrent)
	}

	for _, adapter := range a.adapters {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.AdapterTimeout)
			defer cancel()

			quotes, err := adapter.FetchQuotes(fetchCtx)
			if err != nil {
				// Degraded source for this cycle only; the batch continues.
				a.logger.WarnContext(ctx, "venue degraded",
					slog.String("venue", adapter.Name()),
					slog.String("error", err.Error()),
					slog.String("cause", domain.ErrSourceUnavailable.Error()),
				)
				return nil
			}
			if len(quotes) == 0 {
				a.logger.WarnContext(ctx, "venue returned no quotes",
					slog.String("venue", adapter.Name()),
				)
				return nil
			}

			mu.Lock()
			results[adapter.Name()] = quotes
			mu.Unlock()
			return nil
		})
	}

	// Adapter goroutines never return errors; Wait only joins them.
	_ = g.Wait()

	a.logger.InfoContext(ctx, "aggregation complete",
		slog.Int("venues_total", len(a.adapters)),
		slog.Int("venues_ok", len(results)),
	)
	return results
}
