// Package fetch provides the resilient HTTP client used for all third-party
// metadata calls. Every upstream host gets one Client, which funnels calls
// through a rate limiter, a circuit breaker, retry with exponential backoff,
// and a TTL response cache. A cache hit bypasses all three protections.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"arbscan/internal/domain"
)

// Config holds the tunable parameters of a Client.
type Config struct {
	// RequestsPerMinute is the rate limiter's budget per rolling 60s window.
	RequestsPerMinute int
	// MinInterval is the minimum spacing between consecutive requests.
	MinInterval time.Duration
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit breaker.
	FailureThreshold int
	// CoolDown is how long the breaker stays open before a trial call.
	CoolDown time.Duration
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseBackoff is the first retry delay; it doubles per retry up to
	// MaxBackoff.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// CacheTTL is the response cache lifetime. Zero disables caching.
	CacheTTL time.Duration
	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration
}

// CallRecorder receives one record per network attempt, for quota tracking.
// Recording failures are logged and otherwise ignored.
type CallRecorder interface {
	LogAPICall(ctx context.Context, call domain.APICall) error
}

// Client is a resilient GET client for one upstream host.
type Client struct {
	name       string
	httpClient *http.Client
	limiter    *RateLimiter
	breaker    *Breaker
	cache      *ResponseCache
	cfg        Config
	recorder   CallRecorder
	logger     *slog.Logger

	// calls counts actual network attempts (cache hits excluded).
	calls atomic.Int64

	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests to stub
// transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRecorder attaches an API call recorder.
func WithRecorder(r CallRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a Client for the named upstream. The name appears in logs and
// API call records.
func New(name string, cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	c := &Client{
		name:       name,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    NewRateLimiter(cfg.RequestsPerMinute, cfg.MinInterval),
		breaker:    NewBreaker(cfg.FailureThreshold, cfg.CoolDown),
		cache:      NewResponseCache(cfg.CacheTTL),
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "fetch"), slog.String("upstream", name)),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calls returns the number of network attempts made so far.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() BreakerState {
	return c.breaker.State()
}

// Get issues a GET to rawURL with the given query parameters and returns the
// response body. Successful responses are cached by normalized request
// identity; a hit short-circuits the limiter, breaker, and retry loop.
//
// Failures surface typed: domain.ErrRateLimited after exhausting retries on
// 429, domain.ErrServiceUnavailable for persistent 5xx or network errors,
// domain.ErrNotFound for 404, domain.ErrCircuitOpen when failed fast. Any
// other non-2xx status is returned as an untyped error.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	key := cacheKey(rawURL, params)
	if body, ok := c.cache.Get(key); ok {
		return body, nil
	}

	fullURL := rawURL
	if len(params) > 0 {
		fullURL = rawURL + "?" + params.Encode()
	}

	backoff := c.cfg.BaseBackoff
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, fmt.Errorf("fetch %s: backoff wait: %w", c.name, err)
			}
			backoff *= 2
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
		}

		// Never retry once the circuit is open: a trial failure re-opens the
		// breaker and the next Allow fails fast out of the loop.
		if err := c.breaker.Allow(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("fetch %s: %w (last error: %v)", c.name, err, lastErr)
			}
			return nil, fmt.Errorf("fetch %s: %w", c.name, err)
		}

		if err := c.limiter.Acquire(ctx); err != nil {
			// Aborting here would strand an admitted half-open trial.
			c.breaker.CancelTrial()
			return nil, err
		}

		body, status, err := c.do(ctx, fullURL)
		switch {
		case err != nil:
			c.breaker.RecordFailure()
			lastErr = fmt.Errorf("fetch %s: %v: %w", c.name, err, domain.ErrServiceUnavailable)
			c.logger.WarnContext(ctx, "request failed",
				slog.String("url", rawURL),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)

		case status >= 200 && status < 300:
			c.breaker.RecordSuccess()
			c.cache.Set(key, body)
			return body, nil

		case status == http.StatusTooManyRequests:
			// Throttling still proves the upstream is alive, so it counts as
			// a breaker success; we just back off and retry.
			c.breaker.RecordSuccess()
			lastErr = fmt.Errorf("fetch %s: status 429: %w", c.name, domain.ErrRateLimited)
			c.logger.WarnContext(ctx, "rate limited by upstream",
				slog.String("url", rawURL),
				slog.Int("attempt", attempt+1),
			)

		case status == http.StatusNotFound:
			c.breaker.RecordSuccess()
			return nil, fmt.Errorf("fetch %s: %s: %w", c.name, rawURL, domain.ErrNotFound)

		case status >= 400 && status < 500:
			// Client errors other than 429 are never retried.
			c.breaker.RecordSuccess()
			return nil, fmt.Errorf("fetch %s: unexpected status %d for %s", c.name, status, rawURL)

		default:
			c.breaker.RecordFailure()
			lastErr = fmt.Errorf("fetch %s: status %d: %w", c.name, status, domain.ErrServiceUnavailable)
			c.logger.WarnContext(ctx, "upstream error",
				slog.String("url", rawURL),
				slog.Int("status", status),
				slog.Int("attempt", attempt+1),
			)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("fetch %s: all attempts failed: %w", c.name, domain.ErrServiceUnavailable)
	}
	return nil, lastErr
}

// do performs one network attempt and records it.
func (c *Client) do(ctx context.Context, fullURL string) (body []byte, status int, err error) {
	c.calls.Add(1)
	start := time.Now()

	defer func() {
		if c.recorder == nil {
			return
		}
		call := domain.APICall{
			APIName:    c.name,
			Endpoint:   fullURL,
			StatusCode: status,
			Success:    err == nil && status >= 200 && status < 300,
			Latency:    time.Since(start),
			CalledAt:   start.UTC(),
		}
		if err != nil {
			call.Error = err.Error()
		}
		if logErr := c.recorder.LogAPICall(ctx, call); logErr != nil {
			c.logger.DebugContext(ctx, "api call log failed", slog.String("error", logErr.Error()))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// cacheKey normalizes the request identity; url.Values.Encode sorts keys so
// parameter order does not fragment the cache.
func cacheKey(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}
	return rawURL + "?" + params.Encode()
}
