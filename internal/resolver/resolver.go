// Package resolver turns a token symbol into candidate chain identities
// using a DexScreener-style pair search API behind the resilient fetch
// client, with a persistent cache tier, an in-memory hot tier, and negative
// caching of misses.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"arbscan/internal/domain"
)

// Fetcher is the slice of the fetch client the resolver needs.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error)
}

// Config holds resolver parameters.
type Config struct {
	// BaseURL is the metadata API root, e.g. "https://api.dexscreener.com/latest/dex".
	BaseURL string
	// QuoteSpellings are the quote currencies tried when searching for a
	// symbol's trading pairs, in order.
	QuoteSpellings []string
	// CacheTTL is the lifetime of successful resolutions in both tiers.
	CacheTTL time.Duration
	// NegativeTTL is the (shorter) lifetime of cached misses, so delisted
	// symbols do not hammer the upstream.
	NegativeTTL time.Duration
	// MinLiquidityUSD filters out dust pools when picking candidates.
	MinLiquidityUSD float64
}

// Metrics are the resolver's monotonic counters.
type Metrics struct {
	StoreHits    int64
	HotHits      int64
	Misses       int64
	NetworkCalls int64
}

// Resolver resolves symbols to chain candidates.
type Resolver struct {
	fetcher Fetcher
	store   domain.ContractStore
	hot     domain.CandidateCache
	cfg     Config
	logger  *slog.Logger

	storeHits    atomic.Int64
	hotHits      atomic.Int64
	misses       atomic.Int64
	networkCalls atomic.Int64
}

// New creates a Resolver. store and hot may be nil, in which case the
// corresponding tier is skipped.
func New(fetcher Fetcher, store domain.ContractStore, hot domain.CandidateCache, cfg Config, logger *slog.Logger) *Resolver {
	if len(cfg.QuoteSpellings) == 0 {
		cfg.QuoteSpellings = []string{"USDT", "USDC", "USD"}
	}
	return &Resolver{
		fetcher: fetcher,
		store:   store,
		hot:     hot,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "resolver")),
	}
}

// Metrics returns a snapshot of the resolver's counters.
func (r *Resolver) Metrics() Metrics {
	return Metrics{
		StoreHits:    r.storeHits.Load(),
		HotHits:      r.hotHits.Load(),
		Misses:       r.misses.Load(),
		NetworkCalls: r.networkCalls.Load(),
	}
}

// Resolve returns the chain candidates for a symbol, deduplicated by
// (chain, contract). The symbol may be a bare ticker ("PEPE") or a pair
// ("PEPE/USDT"); only the base ticker is resolved.
//
// Lookup order: persistent cache, hot cache, then the network across the
// configured quote spellings. An empty result with a nil error means the
// symbol is confirmed to have no metadata (and the miss has been cached); a
// non-nil error means metadata is unavailable this cycle.
func (r *Resolver) Resolve(ctx context.Context, symbol string) ([]domain.ChainCandidate, error) {
	base := baseTicker(symbol)
	if base == "" {
		return nil, fmt.Errorf("resolver: empty symbol")
	}

	// Native coins resolve without a lookup; they have no contract address.
	if chain, ok := nativeHome[base]; ok {
		return []domain.ChainCandidate{{
			ChainID:   chain,
			TokenName: base,
			Verified:  true,
		}}, nil
	}

	if r.store != nil {
		cands, err := r.store.GetCandidates(ctx, base)
		if err == nil {
			r.storeHits.Add(1)
			return cands, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.WarnContext(ctx, "persistent cache read failed",
				slog.String("symbol", base),
				slog.String("error", err.Error()),
			)
		}
	}

	if r.hot != nil {
		cands, err := r.hot.Get(ctx, base)
		if err == nil {
			r.hotHits.Add(1)
			return cands, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.WarnContext(ctx, "hot cache read failed",
				slog.String("symbol", base),
				slog.String("error", err.Error()),
			)
		}
	}

	// Suppress repeated failing lookups while a recorded failure is fresh.
	if r.store != nil {
		active, err := r.store.FailedLookupActive(ctx, base)
		if err != nil {
			r.logger.WarnContext(ctx, "failed-lookup check failed",
				slog.String("symbol", base),
				slog.String("error", err.Error()),
			)
		} else if active {
			return []domain.ChainCandidate{}, nil
		}
	}

	r.misses.Add(1)
	return r.resolveNetwork(ctx, base)
}

// resolveNetwork queries the search endpoint for each quote spelling and
// merges the results.
func (r *Resolver) resolveNetwork(ctx context.Context, base string) ([]domain.ChainCandidate, error) {
	byKey := make(map[string]domain.ChainCandidate)
	responded := false
	var lastErr error

	for _, quote := range r.cfg.QuoteSpellings {
		r.networkCalls.Add(1)

		params := url.Values{}
		params.Set("q", base+"/"+quote)

		body, err := r.fetcher.Get(ctx, r.cfg.BaseURL+"/search", params)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				responded = true
				continue
			}
			lastErr = err
			r.logger.WarnContext(ctx, "search request failed",
				slog.String("symbol", base),
				slog.String("quote", quote),
				slog.String("error", err.Error()),
			)
			continue
		}
		responded = true

		cands, err := parseSearch(body, base, r.cfg.MinLiquidityUSD)
		if err != nil {
			lastErr = err
			r.logger.WarnContext(ctx, "search response malformed",
				slog.String("symbol", base),
				slog.String("error", err.Error()),
			)
			continue
		}

		// Dedup across spellings; keep the deepest pool per identity.
		for _, cand := range cands {
			key := cand.Key()
			if cur, ok := byKey[key]; !ok || cand.LiquidityUSD > cur.LiquidityUSD {
				byKey[key] = cand
			}
		}
	}

	if !responded {
		// No spelling produced a usable response; record the failure so the
		// next cycles do not hammer the upstream for this symbol.
		if r.store != nil {
			retryAfter := time.Now().UTC().Add(r.cfg.NegativeTTL)
			reason := "unavailable"
			if lastErr != nil {
				reason = lastErr.Error()
			}
			if err := r.store.SaveFailedLookup(ctx, base, reason, retryAfter); err != nil {
				r.logger.WarnContext(ctx, "failed-lookup write failed",
					slog.String("symbol", base),
					slog.String("error", err.Error()),
				)
			}
		}
		if lastErr == nil {
			lastErr = domain.ErrServiceUnavailable
		}
		return nil, fmt.Errorf("resolver: %s: %w", base, lastErr)
	}

	cands := make([]domain.ChainCandidate, 0, len(byKey))
	for _, cand := range byKey {
		cands = append(cands, cand)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].LiquidityUSD != cands[j].LiquidityUSD {
			return cands[i].LiquidityUSD > cands[j].LiquidityUSD
		}
		return cands[i].Key() < cands[j].Key()
	})

	ttl := r.cfg.CacheTTL
	if len(cands) == 0 {
		ttl = r.cfg.NegativeTTL
	}
	r.writeBack(ctx, base, cands, ttl)

	return cands, nil
}

// writeBack stores a resolution in both cache tiers.
func (r *Resolver) writeBack(ctx context.Context, base string, cands []domain.ChainCandidate, ttl time.Duration) {
	if r.hot != nil {
		if err := r.hot.Set(ctx, base, cands, ttl); err != nil {
			r.logger.WarnContext(ctx, "hot cache write failed",
				slog.String("symbol", base),
				slog.String("error", err.Error()),
			)
		}
	}
	if r.store != nil {
		if err := r.store.SaveCandidates(ctx, base, cands, ttl); err != nil {
			r.logger.WarnContext(ctx, "persistent cache write failed",
				slog.String("symbol", base),
				slog.String("error", err.Error()),
			)
		}
	}
}

// baseTicker extracts the uppercased base ticker from a symbol or pair.
func baseTicker(symbol string) string {
	base := symbol
	if i := strings.IndexByte(symbol, '/'); i >= 0 {
		base = symbol[:i]
	}
	return strings.ToUpper(strings.TrimSpace(base))
}
