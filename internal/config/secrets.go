package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	redact(&out.Redis.Password)

	// S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices and maps so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Venues.Pairs != nil {
		out.Venues.Pairs = make([]string, len(cfg.Venues.Pairs))
		copy(out.Venues.Pairs, cfg.Venues.Pairs)
	}
	if cfg.Venues.FeePercent != nil {
		out.Venues.FeePercent = make(map[string]float64, len(cfg.Venues.FeePercent))
		for k, v := range cfg.Venues.FeePercent {
			out.Venues.FeePercent[k] = v
		}
	}
	if cfg.Resolver.QuoteSpellings != nil {
		out.Resolver.QuoteSpellings = make([]string, len(cfg.Resolver.QuoteSpellings))
		copy(out.Resolver.QuoteSpellings, cfg.Resolver.QuoteSpellings)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
