package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arbscan/internal/domain"
)

const defaultBinanceBaseURL = "https://api.binance.com"

// Binance fetches spot quotes from the Binance 24hr ticker endpoint, which
// carries best bid/ask alongside rolling base volume in one call.
type Binance struct {
	baseURL string
	symbols symbolMap
	client  *http.Client
}

// BinanceConfig configures the Binance adapter.
type BinanceConfig struct {
	BaseURL string
	Pairs   []string
	Timeout time.Duration
}

// NewBinance creates a Binance adapter for the given normalized pairs.
func NewBinance(cfg BinanceConfig) *Binance {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBinanceBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Binance{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		symbols: newSymbolMap(cfg.Pairs, ""),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the venue identifier.
func (b *Binance) Name() string { return "binance" }

type binanceTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
	Volume   string `json:"volume"`
}

// FetchQuotes retrieves the 24hr tickers for the configured pairs.
func (b *Binance) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	syms := b.symbols.venueSymbols()
	if len(syms) == 0 {
		return nil, nil
	}

	// The endpoint takes a JSON array of symbols as a query parameter.
	symsJSON, err := json.Marshal(syms)
	if err != nil {
		return nil, fmt.Errorf("binance: encode symbols: %w", err)
	}
	params := url.Values{}
	params.Set("symbols", string(symsJSON))
	reqURL := b.baseURL + "/api/v3/ticker/24hr?" + params.Encode()

	body, err := b.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var tickers []binanceTicker
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("binance: decode tickers: %w", err)
	}

	now := time.Now().UTC()
	quotes := make([]domain.Quote, 0, len(tickers))
	for _, t := range tickers {
		pair, ok := b.symbols.toNormal[t.Symbol]
		if !ok {
			continue
		}
		bid, okBid := parsePrice(t.BidPrice)
		ask, okAsk := parsePrice(t.AskPrice)
		vol, okVol := parsePrice(t.Volume)
		if !okBid || !okAsk || !okVol {
			continue
		}
		quotes = append(quotes, domain.Quote{
			Venue:      b.Name(),
			Symbol:     pair,
			Bid:        bid,
			Ask:        ask,
			Volume:     vol,
			ObservedAt: now,
		})
	}
	return quotes, nil
}

func (b *Binance) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("binance: build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance: %w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("binance: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance: %w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("binance: read body: %w", err)
	}
	return body, nil
}

// Compile-time interface check.
var _ domain.VenueAdapter = (*Binance)(nil)
