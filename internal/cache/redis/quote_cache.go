package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"arbscan/internal/domain"
)

// quoteTTL bounds how long a venue snapshot stays visible; a venue that
// stops reporting ages out rather than serving stale markets forever.
const quoteTTL = 5 * time.Minute

// QuoteCache implements domain.QuoteCache using Redis hashes. Each
// (venue, symbol) quote is stored as a hash under the client's namespace at
// "quote:{venue}:{symbol}".
type QuoteCache struct {
	c *Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{c: c}
}

// SetBatch stores the latest quotes using a pipeline.
func (qc *QuoteCache) SetBatch(ctx context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	pipe := qc.c.rdb.Pipeline()
	for _, q := range quotes {
		key := qc.c.key("quote", q.Venue, q.Symbol)
		fields := map[string]interface{}{
			"bid":    strconv.FormatFloat(q.Bid, 'f', -1, 64),
			"ask":    strconv.FormatFloat(q.Ask, 'f', -1, 64),
			"volume": strconv.FormatFloat(q.Volume, 'f', -1, 64),
			"ts":     strconv.FormatInt(q.ObservedAt.UnixNano(), 10),
		}
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, quoteTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quotes pipeline: %w", err)
	}
	return nil
}

// Get retrieves the latest quote for a (venue, symbol). It returns
// domain.ErrNotFound when the key does not exist.
func (qc *QuoteCache) Get(ctx context.Context, venue, symbol string) (domain.Quote, error) {
	vals, err := qc.c.rdb.HGetAll(ctx, qc.c.key("quote", venue, symbol)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s/%s: %w", venue, symbol, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrNotFound
	}

	q := domain.Quote{Venue: venue, Symbol: symbol}
	if q.Bid, err = strconv.ParseFloat(vals["bid"], 64); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse bid %s/%s: %w", venue, symbol, err)
	}
	if q.Ask, err = strconv.ParseFloat(vals["ask"], 64); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse ask %s/%s: %w", venue, symbol, err)
	}
	if q.Volume, err = strconv.ParseFloat(vals["volume"], 64); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse volume %s/%s: %w", venue, symbol, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse ts %s/%s: %w", venue, symbol, err)
	}
	q.ObservedAt = time.Unix(0, tsNano)

	return q, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
