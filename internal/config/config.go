// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Venues     VenuesConfig     `toml:"venues"`
	Detector   DetectorConfig   `toml:"detector"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Fetch      FetchConfig      `toml:"fetch"`
	Resolver   ResolverConfig   `toml:"resolver"`
	Enricher   EnricherConfig   `toml:"enricher"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// VenuesConfig selects which venues are scanned and which pairs they trade.
type VenuesConfig struct {
	// Pairs are normalized "BASE/QUOTE" spellings watched on every venue.
	Pairs []string `toml:"pairs"`

	Binance VenueEndpoint `toml:"binance"`
	Gateio  VenueEndpoint `toml:"gateio"`
	OKX     VenueEndpoint `toml:"okx"`

	// FeePercent is the per-venue taker fee in percent (0.1 = 0.1%). Venues
	// missing from the map trade fee-free in the profit model.
	FeePercent map[string]float64 `toml:"fee_percent"`
}

// VenueEndpoint holds one venue's toggle and endpoint override.
type VenueEndpoint struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	WSURL   string `toml:"ws_url"`
}

// DetectorConfig holds the detection thresholds.
type DetectorConfig struct {
	MinProfitPercent float64 `toml:"min_profit_percent"`
	MaxProfitPercent float64 `toml:"max_profit_percent"`
	MinVolume        float64 `toml:"min_volume"`
}

// AggregatorConfig holds per-cycle quote collection parameters.
type AggregatorConfig struct {
	AdapterTimeout duration `toml:"adapter_timeout"`
	MaxConcurrent  int      `toml:"max_concurrent"`
}

// FetchConfig holds the resilient metadata client parameters.
type FetchConfig struct {
	RequestsPerMinute int      `toml:"requests_per_minute"`
	MinInterval       duration `toml:"min_interval"`
	FailureThreshold  int      `toml:"failure_threshold"`
	CoolDown          duration `toml:"cool_down"`
	MaxRetries        int      `toml:"max_retries"`
	BaseBackoff       duration `toml:"base_backoff"`
	MaxBackoff        duration `toml:"max_backoff"`
	CacheTTL          duration `toml:"cache_ttl"`
	Timeout           duration `toml:"timeout"`
}

// ResolverConfig holds chain-identity resolution parameters.
type ResolverConfig struct {
	BaseURL         string   `toml:"base_url"`
	QuoteSpellings  []string `toml:"quote_spellings"`
	CacheTTL        duration `toml:"cache_ttl"`
	NegativeTTL     duration `toml:"negative_ttl"`
	MinLiquidityUSD float64  `toml:"min_liquidity_usd"`
}

// EnricherConfig holds enrichment parameters.
type EnricherConfig struct {
	BatchSize      int      `toml:"batch_size"`
	ReResolveAge   duration `toml:"re_resolve_age"`
	SweepBatchSize int      `toml:"sweep_batch_size"`
}

// ScannerConfig holds the scan cadence and maintenance loops.
type ScannerConfig struct {
	Interval      duration `toml:"interval"`
	CycleBudget   duration `toml:"cycle_budget"`
	SweepEvery    duration `toml:"sweep_every"`
	ArchiveCron   string   `toml:"archive_cron"`
	RetentionDays int      `toml:"retention_days"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// disabled the resolver runs without its hot tier and quotes are not cached.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds cold-storage parameters. Optional; when disabled aged
// records stay in PostgreSQL.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials and alert thresholds.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`

	// AlertThresholdPercent is the net profit floor for operator alerts;
	// AlertCooldown suppresses repeat alerts per route.
	AlertThresholdPercent float64  `toml:"alert_threshold_percent"`
	AlertCooldown         duration `toml:"alert_cooldown"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Venues: VenuesConfig{
			Pairs: []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"},
			Binance: VenueEndpoint{
				Enabled: true,
				BaseURL: "https://api.binance.com",
			},
			Gateio: VenueEndpoint{
				Enabled: true,
				BaseURL: "https://api.gateio.ws",
			},
			OKX: VenueEndpoint{
				Enabled: false,
				WSURL:   "wss://ws.okx.com:8443/ws/v5/public",
			},
			FeePercent: map[string]float64{
				"binance": 0.1,
				"gateio":  0.2,
				"okx":     0.1,
			},
		},
		Detector: DetectorConfig{
			MinProfitPercent: 0.5,
			MaxProfitPercent: 110,
			MinVolume:        0,
		},
		Aggregator: AggregatorConfig{
			AdapterTimeout: duration{10 * time.Second},
			MaxConcurrent:  0,
		},
		Fetch: FetchConfig{
			RequestsPerMinute: 60,
			MinInterval:       duration{500 * time.Millisecond},
			FailureThreshold:  5,
			CoolDown:          duration{60 * time.Second},
			MaxRetries:        3,
			BaseBackoff:       duration{time.Second},
			MaxBackoff:        duration{30 * time.Second},
			CacheTTL:          duration{5 * time.Minute},
			Timeout:           duration{10 * time.Second},
		},
		Resolver: ResolverConfig{
			BaseURL:         "https://api.dexscreener.com/latest/dex",
			QuoteSpellings:  []string{"USDT", "USDC", "USD"},
			CacheTTL:        duration{24 * time.Hour},
			NegativeTTL:     duration{10 * time.Minute},
			MinLiquidityUSD: 10_000,
		},
		Enricher: EnricherConfig{
			BatchSize:      25,
			ReResolveAge:   duration{15 * time.Minute},
			SweepBatchSize: 100,
		},
		Scanner: ScannerConfig{
			Interval:      duration{30 * time.Second},
			CycleBudget:   duration{25 * time.Second},
			SweepEvery:    duration{10 * time.Minute},
			ArchiveCron:   "0 3 * * *",
			RetentionDays: 30,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbscan",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbscan-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events:                []string{"opportunity", "error"},
			AlertThresholdPercent: 2.0,
			AlertCooldown:         duration{15 * time.Minute},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":    true, // continuous scanning with sweep and archive loops
	"once":    true, // one scan cycle, then exit
	"sweep":   true, // one enrichment sweep run, then exit
	"archive": true, // one retention archive run, then exit
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, once, sweep, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Venues
	if len(c.Venues.Pairs) == 0 {
		errs = append(errs, "venues: pairs must not be empty")
	}
	for _, pair := range c.Venues.Pairs {
		if !strings.Contains(pair, "/") {
			errs = append(errs, fmt.Sprintf("venues: pair %q must be spelled BASE/QUOTE", pair))
		}
	}
	enabled := 0
	for _, v := range []VenueEndpoint{c.Venues.Binance, c.Venues.Gateio, c.Venues.OKX} {
		if v.Enabled {
			enabled++
		}
	}
	if enabled < 2 {
		errs = append(errs, "venues: at least two venues must be enabled for cross-venue detection")
	}
	for venue, fee := range c.Venues.FeePercent {
		if fee < 0 {
			errs = append(errs, fmt.Sprintf("venues: fee_percent for %q must not be negative", venue))
		}
	}

	// Detector
	if c.Detector.MinProfitPercent < 0 {
		errs = append(errs, "detector: min_profit_percent must not be negative")
	}
	if c.Detector.MaxProfitPercent <= c.Detector.MinProfitPercent {
		errs = append(errs, "detector: max_profit_percent must exceed min_profit_percent")
	}
	if c.Detector.MinVolume < 0 {
		errs = append(errs, "detector: min_volume must not be negative")
	}

	// Fetch
	if c.Fetch.RequestsPerMinute < 1 {
		errs = append(errs, "fetch: requests_per_minute must be >= 1")
	}
	if c.Fetch.FailureThreshold < 1 {
		errs = append(errs, "fetch: failure_threshold must be >= 1")
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, "fetch: max_retries must not be negative")
	}

	// Resolver
	if c.Resolver.BaseURL == "" {
		errs = append(errs, "resolver: base_url must not be empty")
	}
	if len(c.Resolver.QuoteSpellings) == 0 {
		errs = append(errs, "resolver: quote_spellings must not be empty")
	}
	if c.Resolver.MinLiquidityUSD < 0 {
		errs = append(errs, "resolver: min_liquidity_usd must not be negative")
	}

	// Scanner
	if c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, "scanner: interval must be > 0")
	}
	if c.Scanner.RetentionDays < 1 {
		errs = append(errs, "scanner: retention_days must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Notify
	if (c.Notify.TelegramToken != "") != (c.Notify.TelegramChatID != "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if c.Notify.AlertThresholdPercent < 0 {
		errs = append(errs, "notify: alert_threshold_percent must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
