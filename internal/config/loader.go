package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBSCAN_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBSCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Venues ──
	setStringSlice(&cfg.Venues.Pairs, "ARBSCAN_VENUES_PAIRS")
	setBool(&cfg.Venues.Binance.Enabled, "ARBSCAN_VENUES_BINANCE_ENABLED")
	setStr(&cfg.Venues.Binance.BaseURL, "ARBSCAN_VENUES_BINANCE_BASE_URL")
	setBool(&cfg.Venues.Gateio.Enabled, "ARBSCAN_VENUES_GATEIO_ENABLED")
	setStr(&cfg.Venues.Gateio.BaseURL, "ARBSCAN_VENUES_GATEIO_BASE_URL")
	setBool(&cfg.Venues.OKX.Enabled, "ARBSCAN_VENUES_OKX_ENABLED")
	setStr(&cfg.Venues.OKX.WSURL, "ARBSCAN_VENUES_OKX_WS_URL")

	// ── Detector ──
	setFloat64(&cfg.Detector.MinProfitPercent, "ARBSCAN_DETECTOR_MIN_PROFIT_PERCENT")
	setFloat64(&cfg.Detector.MaxProfitPercent, "ARBSCAN_DETECTOR_MAX_PROFIT_PERCENT")
	setFloat64(&cfg.Detector.MinVolume, "ARBSCAN_DETECTOR_MIN_VOLUME")

	// ── Aggregator ──
	setDuration(&cfg.Aggregator.AdapterTimeout, "ARBSCAN_AGGREGATOR_ADAPTER_TIMEOUT")
	setInt(&cfg.Aggregator.MaxConcurrent, "ARBSCAN_AGGREGATOR_MAX_CONCURRENT")

	// ── Fetch ──
	setInt(&cfg.Fetch.RequestsPerMinute, "ARBSCAN_FETCH_REQUESTS_PER_MINUTE")
	setDuration(&cfg.Fetch.MinInterval, "ARBSCAN_FETCH_MIN_INTERVAL")
	setInt(&cfg.Fetch.FailureThreshold, "ARBSCAN_FETCH_FAILURE_THRESHOLD")
	setDuration(&cfg.Fetch.CoolDown, "ARBSCAN_FETCH_COOL_DOWN")
	setInt(&cfg.Fetch.MaxRetries, "ARBSCAN_FETCH_MAX_RETRIES")
	setDuration(&cfg.Fetch.BaseBackoff, "ARBSCAN_FETCH_BASE_BACKOFF")
	setDuration(&cfg.Fetch.MaxBackoff, "ARBSCAN_FETCH_MAX_BACKOFF")
	setDuration(&cfg.Fetch.CacheTTL, "ARBSCAN_FETCH_CACHE_TTL")
	setDuration(&cfg.Fetch.Timeout, "ARBSCAN_FETCH_TIMEOUT")

	// ── Resolver ──
	setStr(&cfg.Resolver.BaseURL, "ARBSCAN_RESOLVER_BASE_URL")
	setStringSlice(&cfg.Resolver.QuoteSpellings, "ARBSCAN_RESOLVER_QUOTE_SPELLINGS")
	setDuration(&cfg.Resolver.CacheTTL, "ARBSCAN_RESOLVER_CACHE_TTL")
	setDuration(&cfg.Resolver.NegativeTTL, "ARBSCAN_RESOLVER_NEGATIVE_TTL")
	setFloat64(&cfg.Resolver.MinLiquidityUSD, "ARBSCAN_RESOLVER_MIN_LIQUIDITY_USD")

	// ── Enricher ──
	setInt(&cfg.Enricher.BatchSize, "ARBSCAN_ENRICHER_BATCH_SIZE")
	setDuration(&cfg.Enricher.ReResolveAge, "ARBSCAN_ENRICHER_RE_RESOLVE_AGE")
	setInt(&cfg.Enricher.SweepBatchSize, "ARBSCAN_ENRICHER_SWEEP_BATCH_SIZE")

	// ── Scanner ──
	setDuration(&cfg.Scanner.Interval, "ARBSCAN_SCANNER_INTERVAL")
	setDuration(&cfg.Scanner.CycleBudget, "ARBSCAN_SCANNER_CYCLE_BUDGET")
	setDuration(&cfg.Scanner.SweepEvery, "ARBSCAN_SCANNER_SWEEP_EVERY")
	setStr(&cfg.Scanner.ArchiveCron, "ARBSCAN_SCANNER_ARCHIVE_CRON")
	setInt(&cfg.Scanner.RetentionDays, "ARBSCAN_SCANNER_RETENTION_DAYS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBSCAN_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ARBSCAN_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBSCAN_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBSCAN_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBSCAN_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBSCAN_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBSCAN_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBSCAN_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBSCAN_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBSCAN_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBSCAN_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBSCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBSCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBSCAN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBSCAN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBSCAN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBSCAN_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARBSCAN_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBSCAN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBSCAN_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBSCAN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBSCAN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBSCAN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBSCAN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBSCAN_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBSCAN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBSCAN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBSCAN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBSCAN_NOTIFY_EVENTS")
	setFloat64(&cfg.Notify.AlertThresholdPercent, "ARBSCAN_NOTIFY_ALERT_THRESHOLD_PERCENT")
	setDuration(&cfg.Notify.AlertCooldown, "ARBSCAN_NOTIFY_ALERT_COOLDOWN")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBSCAN_MODE")
	setStr(&cfg.LogLevel, "ARBSCAN_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
