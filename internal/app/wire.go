package app

import (
	"context"
	"fmt"
	"log/slog"

	"arbscan/internal/aggregator"
	s3blob "arbscan/internal/blob/s3"
	"arbscan/internal/cache/redis"
	"arbscan/internal/config"
	"arbscan/internal/detector"
	"arbscan/internal/domain"
	"arbscan/internal/enricher"
	"arbscan/internal/exchange"
	"arbscan/internal/fetch"
	"arbscan/internal/notify"
	"arbscan/internal/resolver"
	"arbscan/internal/scanner"
	"arbscan/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	OpportunityStore domain.OpportunityStore
	ContractStore    domain.ContractStore

	// Caches (nil when Redis is disabled)
	CandidateCache domain.CandidateCache
	QuoteCache     domain.QuoteCache

	// Cold storage (nil when S3 is disabled)
	Archiver domain.OpportunityArchiver

	// Pipeline stages
	Aggregator *aggregator.Aggregator
	Detector   *detector.Detector
	Resolver   *resolver.Resolver
	Enricher   *enricher.Enricher
	Scanner    *scanner.Scanner

	// Streaming adapters that need their own Run goroutine.
	OKX *exchange.OKX

	// Notifications
	Notifier *notify.Notifier
	Alerts   *notify.AlertManager
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.OpportunityStore = postgres.NewOpportunityStore(pool)
	contractStore := postgres.NewContractStore(pool)
	deps.ContractStore = contractStore

	// --- Redis (optional hot tier) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.CandidateCache = redis.NewCandidateCache(redisClient)
		deps.QuoteCache = redis.NewQuoteCache(redisClient)
	}

	// --- Metadata fetch client + resolver ---
	fetchClient := fetch.New("dexscreener", fetch.Config{
		RequestsPerMinute: cfg.Fetch.RequestsPerMinute,
		MinInterval:       cfg.Fetch.MinInterval.Duration,
		FailureThreshold:  cfg.Fetch.FailureThreshold,
		CoolDown:          cfg.Fetch.CoolDown.Duration,
		MaxRetries:        cfg.Fetch.MaxRetries,
		BaseBackoff:       cfg.Fetch.BaseBackoff.Duration,
		MaxBackoff:        cfg.Fetch.MaxBackoff.Duration,
		CacheTTL:          cfg.Fetch.CacheTTL.Duration,
		Timeout:           cfg.Fetch.Timeout.Duration,
	}, logger, fetch.WithRecorder(contractStore))

	deps.Resolver = resolver.New(fetchClient, contractStore, deps.CandidateCache, resolver.Config{
		BaseURL:         cfg.Resolver.BaseURL,
		QuoteSpellings:  cfg.Resolver.QuoteSpellings,
		CacheTTL:        cfg.Resolver.CacheTTL.Duration,
		NegativeTTL:     cfg.Resolver.NegativeTTL.Duration,
		MinLiquidityUSD: cfg.Resolver.MinLiquidityUSD,
	}, logger)

	// --- Venue adapters ---
	var adapters []domain.VenueAdapter
	if cfg.Venues.Binance.Enabled {
		adapters = append(adapters, exchange.NewBinance(exchange.BinanceConfig{
			BaseURL: cfg.Venues.Binance.BaseURL,
			Pairs:   cfg.Venues.Pairs,
			Timeout: cfg.Aggregator.AdapterTimeout.Duration,
		}))
	}
	if cfg.Venues.Gateio.Enabled {
		adapters = append(adapters, exchange.NewGate(exchange.GateConfig{
			BaseURL: cfg.Venues.Gateio.BaseURL,
			Pairs:   cfg.Venues.Pairs,
			Timeout: cfg.Aggregator.AdapterTimeout.Duration,
		}))
	}
	if cfg.Venues.OKX.Enabled {
		okx := exchange.NewOKX(exchange.OKXConfig{
			WSURL: cfg.Venues.OKX.WSURL,
			Pairs: cfg.Venues.Pairs,
		}, logger)
		closers = append(closers, okx.Close)
		deps.OKX = okx
		adapters = append(adapters, okx)
	}

	deps.Aggregator = aggregator.New(adapters, aggregator.Config{
		AdapterTimeout: cfg.Aggregator.AdapterTimeout.Duration,
		MaxConcurrent:  cfg.Aggregator.MaxConcurrent,
	}, logger)

	deps.Detector = detector.New(detector.Config{
		MinProfitPercent: cfg.Detector.MinProfitPercent,
		MaxProfitPercent: cfg.Detector.MaxProfitPercent,
		MinVolume:        cfg.Detector.MinVolume,
		FeePercent:       cfg.Venues.FeePercent,
	}, logger)

	deps.Enricher = enricher.New(deps.Resolver, deps.OpportunityStore, contractStore, enricher.Config{
		BatchSize:      cfg.Enricher.BatchSize,
		ReResolveAge:   cfg.Enricher.ReResolveAge.Duration,
		SweepBatchSize: cfg.Enricher.SweepBatchSize,
	}, logger)

	// --- S3 cold storage (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3Client, deps.OpportunityStore, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	if len(senders) > 0 {
		deps.Alerts = notify.NewAlertManager(deps.Notifier,
			cfg.Notify.AlertThresholdPercent, cfg.Notify.AlertCooldown.Duration)
	}

	// --- Scanner ---
	archiveCron := ""
	if deps.Archiver != nil {
		archiveCron = cfg.Scanner.ArchiveCron
	}
	deps.Scanner = scanner.New(
		deps.Aggregator,
		deps.Detector,
		deps.Enricher,
		deps.OpportunityStore,
		deps.ContractStore,
		deps.QuoteCache,
		deps.Alerts,
		deps.Archiver,
		scanner.Config{
			Interval:      cfg.Scanner.Interval.Duration,
			CycleBudget:   cfg.Scanner.CycleBudget.Duration,
			SweepEvery:    cfg.Scanner.SweepEvery.Duration,
			ArchiveCron:   archiveCron,
			RetentionDays: cfg.Scanner.RetentionDays,
		},
		logger,
	)

	return deps, cleanup, nil
}
