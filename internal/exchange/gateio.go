package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arbscan/internal/domain"
)

const defaultGateBaseURL = "https://api.gateio.ws"

// Gate fetches spot quotes from the Gate.io v4 tickers endpoint. The endpoint
// returns the full market list, so the adapter filters down to the configured
// pairs client-side.
type Gate struct {
	baseURL string
	symbols symbolMap
	client  *http.Client
}

// GateConfig configures the Gate.io adapter.
type GateConfig struct {
	BaseURL string
	Pairs   []string
	Timeout time.Duration
}

// NewGate creates a Gate.io adapter for the given normalized pairs.
func NewGate(cfg GateConfig) *Gate {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGateBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Gate{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		symbols: newSymbolMap(cfg.Pairs, "_"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the venue identifier.
func (g *Gate) Name() string { return "gateio" }

type gateTicker struct {
	CurrencyPair string `json:"currency_pair"`
	HighestBid   string `json:"highest_bid"`
	LowestAsk    string `json:"lowest_ask"`
	BaseVolume   string `json:"base_volume"`
}

// FetchQuotes retrieves the spot tickers and keeps the configured pairs.
func (g *Gate) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	if len(g.symbols.toVenue) == 0 {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/api/v4/spot/tickers", nil)
	if err != nil {
		return nil, fmt.Errorf("gateio: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateio: %w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("gateio: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateio: %w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateio: read body: %w", err)
	}

	var tickers []gateTicker
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("gateio: decode tickers: %w", err)
	}

	now := time.Now().UTC()
	quotes := make([]domain.Quote, 0, len(g.symbols.toVenue))
	for _, t := range tickers {
		pair, ok := g.symbols.toNormal[t.CurrencyPair]
		if !ok {
			continue
		}
		bid, okBid := parsePrice(t.HighestBid)
		ask, okAsk := parsePrice(t.LowestAsk)
		vol, okVol := parsePrice(t.BaseVolume)
		if !okBid || !okAsk || !okVol {
			continue
		}
		quotes = append(quotes, domain.Quote{
			Venue:      g.Name(),
			Symbol:     pair,
			Bid:        bid,
			Ask:        ask,
			Volume:     vol,
			ObservedAt: now,
		})
	}
	return quotes, nil
}

// Compile-time interface check.
var _ domain.VenueAdapter = (*Gate)(nil)
