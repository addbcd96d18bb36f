package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

func binanceTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("symbols"), "BTCUSDT")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBinanceFetchQuotes(t *testing.T) {
	srv := binanceTestServer(t, http.StatusOK, `[
		{"symbol":"BTCUSDT","bidPrice":"50000.10","askPrice":"50000.20","volume":"1234.5"},
		{"symbol":"ETHUSDT","bidPrice":"2000.00","askPrice":"2000.50","volume":"9876.5"},
		{"symbol":"DOGEUSDT","bidPrice":"0.1","askPrice":"0.2","volume":"1"}
	]`)

	b := NewBinance(BinanceConfig{
		BaseURL: srv.URL,
		Pairs:   []string{"BTC/USDT", "ETH/USDT"},
		Timeout: time.Second,
	})
	require.Equal(t, "binance", b.Name())

	quotes, err := b.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2, "unconfigured symbols are ignored")

	byPair := make(map[string]domain.Quote)
	for _, q := range quotes {
		byPair[q.Symbol] = q
	}
	btc := byPair["BTC/USDT"]
	assert.Equal(t, "binance", btc.Venue)
	assert.Equal(t, 50000.10, btc.Bid)
	assert.Equal(t, 50000.20, btc.Ask)
	assert.Equal(t, 1234.5, btc.Volume)
	assert.False(t, btc.ObservedAt.IsZero())
}

func TestBinanceSkipsUnparsableTickers(t *testing.T) {
	srv := binanceTestServer(t, http.StatusOK, `[
		{"symbol":"BTCUSDT","bidPrice":"","askPrice":"50000.20","volume":"1234.5"}
	]`)

	b := NewBinance(BinanceConfig{BaseURL: srv.URL, Pairs: []string{"BTC/USDT"}})
	quotes, err := b.FetchQuotes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestBinanceRateLimited(t *testing.T) {
	srv := binanceTestServer(t, http.StatusTooManyRequests, "")

	b := NewBinance(BinanceConfig{BaseURL: srv.URL, Pairs: []string{"BTC/USDT"}})
	_, err := b.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestBinanceServerError(t *testing.T) {
	srv := binanceTestServer(t, http.StatusBadGateway, "")

	b := NewBinance(BinanceConfig{BaseURL: srv.URL, Pairs: []string{"BTC/USDT"}})
	_, err := b.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestBinanceNoPairsConfigured(t *testing.T) {
	b := NewBinance(BinanceConfig{Pairs: nil})
	quotes, err := b.FetchQuotes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, quotes)
}
