package domain

import (
	"context"
	"time"
)

// Quote is one venue's current market for one trading pair. Quotes are
// immutable once produced and live for a single aggregation cycle.
type Quote struct {
	Venue      string  // venue identifier, e.g. "binance"
	Symbol     string  // normalized pair, e.g. "BTC/USDT"
	Bid        float64 // best bid price
	Ask        float64 // best ask price
	Volume     float64 // 24h base volume
	ObservedAt time.Time
}

// Valid reports whether the quote carries usable numbers. Sources are not
// trusted to enforce bid <= ask, but prices and volume must be positive and
// finite.
func (q Quote) Valid() bool {
	return q.Venue != "" && q.Symbol != "" &&
		isFinitePositive(q.Bid) && isFinitePositive(q.Ask) &&
		q.Volume >= 0 && !isNonFinite(q.Volume)
}

// VenueAdapter normalizes one venue's raw price feed into Quotes. All
// venue-specific parsing stays behind this interface; the core never sees a
// raw payload.
type VenueAdapter interface {
	// Name returns the venue identifier used as Quote.Venue.
	Name() string
	// FetchQuotes returns the venue's current quotes for its configured
	// symbols, or an error if the feed is unavailable.
	FetchQuotes(ctx context.Context) ([]Quote, error)
}
