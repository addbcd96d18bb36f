// Package detector turns one cycle's aggregated quotes into ranked,
// deduplicated cross-venue opportunities. Detection is pure computation:
// quotes in, opportunities out, no I/O beyond logging.
package detector

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"arbscan/internal/domain"
)

// Config holds the detection thresholds. All values are externally supplied;
// the documented fallbacks only kick in when a field is zero.
type Config struct {
	// MinProfitPercent is the net profit floor for a pair to be kept.
	MinProfitPercent float64
	// MaxProfitPercent is a sanity cutoff against feed glitches (mismatched
	// decimals and the like). Pairs above it are rejected and logged, never
	// clamped.
	MaxProfitPercent float64
	// MinVolume is the floor on min(buy volume, sell volume).
	MinVolume float64
	// FeePercent is the per-venue taker fee in percent (0.1 = 0.1%).
	FeePercent map[string]float64
}

// Detector evaluates all profitable cross-venue pairs per symbol.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Detector with the given thresholds.
func New(cfg Config, logger *slog.Logger) *Detector {
	if cfg.MaxProfitPercent <= 0 {
		cfg.MaxProfitPercent = 110
	}
	return &Detector{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "detector")),
	}
}

// ProfitPercent computes the net cross-venue profit in percent for buying at
// buyAsk on the buy venue and selling at sellBid on the sell venue, with
// each venue's fee rate given as a fraction (0.001 = 0.1%):
//
//	((sellBid − buyAsk) − (buyAsk·buyFee + sellBid·sellFee)) / buyAsk × 100
func ProfitPercent(buyAsk, sellBid, buyFee, sellFee float64) float64 {
	gross := sellBid - buyAsk
	fees := buyAsk*buyFee + sellBid*sellFee
	return (gross - fees) / buyAsk * 100
}

// Detect evaluates every ordered venue pair per symbol and returns the
// surviving opportunities sorted descending by profit percent (ties broken
// by symbol, then buy venue, then sell venue, so output is deterministic
// for deterministic input).
//
// listings carries confirmed chain identities per (venue, symbol). When both
// sides of a pair have a confirmed identity and they disagree, the pair is a
// same-ticker different-asset collision and is discarded. When identity is
// unknown on either side the pair is provisionally accepted with
// EnrichmentComplete=false for later re-validation.
func (d *Detector) Detect(quotesByVenue map[string][]domain.Quote, listings map[domain.ListingKey]domain.ChainCandidate) []domain.Opportunity {
	bySymbol := groupBySymbol(quotesByVenue, d.logger)

	var opps []domain.Opportunity
	for symbol, venueQuotes := range bySymbol {
		if len(venueQuotes) < 2 {
			continue
		}
		venues := sortedVenues(venueQuotes)

		for _, buyVenue := range venues {
			for _, sellVenue := range venues {
				if buyVenue == sellVenue {
					continue
				}
				opp, ok := d.evaluate(symbol, venueQuotes[buyVenue], venueQuotes[sellVenue], listings)
				if ok {
					opps = append(opps, opp)
				}
			}
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.ProfitPercent != b.ProfitPercent {
			return a.ProfitPercent > b.ProfitPercent
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.BuyVenue != b.BuyVenue {
			return a.BuyVenue < b.BuyVenue
		}
		return a.SellVenue < b.SellVenue
	})

	return d.Sanitize(opps)
}

// evaluate applies the profit, band, volume, and chain-identity gates to one
// ordered venue pair.
func (d *Detector) evaluate(symbol string, buy, sell domain.Quote, listings map[domain.ListingKey]domain.ChainCandidate) (domain.Opportunity, bool) {
	buyFee := d.cfg.FeePercent[buy.Venue] / 100
	sellFee := d.cfg.FeePercent[sell.Venue] / 100

	profitPct := ProfitPercent(buy.Ask, sell.Bid, buyFee, sellFee)

	if profitPct < d.cfg.MinProfitPercent {
		return domain.Opportunity{}, false
	}
	if profitPct > d.cfg.MaxProfitPercent {
		// Likely a feed glitch; reject rather than clamp.
		d.logger.Warn("profit above sanity cutoff, rejecting",
			slog.String("symbol", symbol),
			slog.String("buy_venue", buy.Venue),
			slog.String("sell_venue", sell.Venue),
			slog.Float64("profit_percent", profitPct),
			slog.Float64("max_profit_percent", d.cfg.MaxProfitPercent),
		)
		return domain.Opportunity{}, false
	}

	volume := buy.Volume
	if sell.Volume < volume {
		volume = sell.Volume
	}
	if volume < d.cfg.MinVolume {
		return domain.Opportunity{}, false
	}

	opp := domain.Opportunity{
		ID:            uuid.NewString(),
		Symbol:        symbol,
		BuyVenue:      buy.Venue,
		SellVenue:     sell.Venue,
		BuyPrice:      buy.Ask,
		SellPrice:     sell.Bid,
		ProfitPercent: profitPct,
		ProfitAmount:  (sell.Bid - buy.Ask - (buy.Ask*buyFee + sell.Bid*sellFee)) * volume,
		Volume:        volume,
		ObservedAt:    laterOf(buy.ObservedAt, sell.ObservedAt),
	}

	buyID, buyKnown := listings[domain.ListingKey{Venue: buy.Venue, Symbol: symbol}]
	sellID, sellKnown := listings[domain.ListingKey{Venue: sell.Venue, Symbol: symbol}]
	switch {
	case buyKnown && sellKnown:
		if !buyID.SameAsset(sellID) {
			// Same ticker, different asset: not an arbitrage at all.
			d.logger.Info("chain identity mismatch, discarding pair",
				slog.String("symbol", symbol),
				slog.String("buy_venue", buy.Venue),
				slog.String("buy_asset", buyID.Key()),
				slog.String("sell_venue", sell.Venue),
				slog.String("sell_asset", sellID.Key()),
			)
			return domain.Opportunity{}, false
		}
		opp.ApplyIdentity(buyID)
	default:
		// Identity unknown on at least one side: provisional accept, flagged
		// for re-validation once metadata resolves.
		opp.EnrichmentComplete = false
	}

	return opp, true
}

// groupBySymbol indexes quotes as symbol -> venue -> quote, dropping quotes
// with unusable numbers. If a venue reported a symbol more than once the
// freshest quote wins.
func groupBySymbol(quotesByVenue map[string][]domain.Quote, logger *slog.Logger) map[string]map[string]domain.Quote {
	bySymbol := make(map[string]map[string]domain.Quote)
	for venue, quotes := range quotesByVenue {
		for _, q := range quotes {
			if !q.Valid() {
				logger.Warn("dropping invalid quote",
					slog.String("venue", venue),
					slog.String("symbol", q.Symbol),
					slog.Float64("bid", q.Bid),
					slog.Float64("ask", q.Ask),
				)
				continue
			}
			venueQuotes, ok := bySymbol[q.Symbol]
			if !ok {
				venueQuotes = make(map[string]domain.Quote)
				bySymbol[q.Symbol] = venueQuotes
			}
			if cur, ok := venueQuotes[venue]; !ok || q.ObservedAt.After(cur.ObservedAt) {
				venueQuotes[venue] = q
			}
		}
	}
	return bySymbol
}

func sortedVenues(venueQuotes map[string]domain.Quote) []string {
	venues := make([]string, 0, len(venueQuotes))
	for v := range venueQuotes {
		venues = append(venues, v)
	}
	sort.Strings(venues)
	return venues
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
