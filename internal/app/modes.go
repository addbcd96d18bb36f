package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscan/internal/notify"
)

// okxWarmup gives the OKX stream time to populate its snapshot before a
// single-shot cycle runs.
const okxWarmup = 3 * time.Second

// ScanMode runs continuous scanning: the OKX stream (when enabled), the scan
// loop, the enrichment sweep, and retention archiving, until ctx is
// cancelled.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering scan mode")
	a.notifyLifecycle(ctx, deps, "Scanner started", "continuous scan mode")

	g, ctx := errgroup.WithContext(ctx)

	if deps.OKX != nil {
		g.Go(func() error {
			err := deps.OKX.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("okx stream: %w", err)
		})
	}

	g.Go(func() error {
		return deps.Scanner.Run(ctx)
	})

	err := g.Wait()
	if err != nil && ctx.Err() == nil {
		a.notifyError(context.Background(), deps, "Scanner stopped", err)
	}
	return err
}

// OnceMode runs exactly one scan cycle and exits. Useful for cron-driven
// deployments and smoke tests.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering once mode")

	if deps.OKX != nil {
		go func() { _ = deps.OKX.Run(ctx) }()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(okxWarmup):
		}
	}

	if err := deps.Scanner.RunCycle(ctx); err != nil {
		a.notifyError(ctx, deps, "Scan cycle failed", err)
		return err
	}
	return nil
}

// SweepMode runs one enrichment sweep over persisted records still missing
// chain identity, then exits.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering sweep mode")

	updated, err := deps.Enricher.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("app: sweep: %w", err)
	}
	a.logger.InfoContext(ctx, "sweep complete", slog.Int("updated", updated))
	return nil
}

// ArchiveMode runs one retention archive pass, then exits. Requires S3 to be
// enabled.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires s3 to be enabled")
	}

	cutoff := time.Now().UTC().Add(-time.Duration(a.cfg.Scanner.RetentionDays) * 24 * time.Hour)
	archived, err := deps.Archiver.ArchiveOpportunities(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}
	a.logger.InfoContext(ctx, "archive complete",
		slog.Int64("archived", archived),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

func (a *App) notifyLifecycle(ctx context.Context, deps *Dependencies, title, message string) {
	if deps.Notifier == nil {
		return
	}
	if err := deps.Notifier.Notify(ctx, notify.Notification{
		Event: notify.EventLifecycle, Title: title, Body: message,
	}); err != nil {
		a.logger.Warn("lifecycle notification failed", slog.String("error", err.Error()))
	}
}

func (a *App) notifyError(ctx context.Context, deps *Dependencies, title string, cause error) {
	if deps.Notifier == nil {
		return
	}
	if err := deps.Notifier.Notify(ctx, notify.Notification{
		Event: notify.EventError, Title: title, Body: cause.Error(),
	}); err != nil {
		a.logger.Warn("error notification failed", slog.String("error", err.Error()))
	}
}
