package exchange

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

func newTestOKX() *OKX {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOKX(OKXConfig{Pairs: []string{"BTC/USDT", "ETH/USDT"}}, logger)
}

func okxTick(instID string, bid, ask float64, ts time.Time) okxTicker {
	return okxTicker{
		InstID: instID,
		BidPx:  strconv.FormatFloat(bid, 'f', -1, 64),
		AskPx:  strconv.FormatFloat(ask, 'f', -1, 64),
		Vol24h: "100",
		TS:     strconv.FormatInt(ts.UnixMilli(), 10),
	}
}

func TestOKXApplyUpdatesSnapshot(t *testing.T) {
	o := newTestOKX()
	observed := time.Now().UTC().Truncate(time.Millisecond)

	o.apply(okxTick("BTC-USDT", 50000.1, 50000.3, observed))

	quotes, err := o.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "okx", quotes[0].Venue)
	assert.Equal(t, "BTC/USDT", quotes[0].Symbol)
	assert.Equal(t, 50000.1, quotes[0].Bid)
	assert.Equal(t, 50000.3, quotes[0].Ask)
	assert.Equal(t, observed, quotes[0].ObservedAt)
}

func TestOKXApplyIgnoresUnknownInstrument(t *testing.T) {
	o := newTestOKX()
	o.apply(okxTick("DOGE-USDT", 0.1, 0.2, time.Now()))

	_, err := o.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestOKXApplyIgnoresUnparsableTicker(t *testing.T) {
	o := newTestOKX()
	o.apply(okxTicker{InstID: "BTC-USDT", BidPx: "", AskPx: "1", Vol24h: "1", TS: "1"})

	_, err := o.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestOKXFetchQuotesDropsStaleEntries(t *testing.T) {
	o := newTestOKX()
	o.apply(okxTick("BTC-USDT", 50000, 50001, time.Now().UTC().Add(-3*time.Minute)))
	o.apply(okxTick("ETH-USDT", 2000, 2001, time.Now().UTC()))

	quotes, err := o.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "ETH/USDT", quotes[0].Symbol)
}

func TestOKXFetchQuotesEmptySnapshot(t *testing.T) {
	o := newTestOKX()
	_, err := o.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestOKXLatestTickReplacesPrevious(t *testing.T) {
	o := newTestOKX()
	o.apply(okxTick("BTC-USDT", 50000, 50001, time.Now().UTC()))
	o.apply(okxTick("BTC-USDT", 50100, 50101, time.Now().UTC()))

	quotes, err := o.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, 50100.0, quotes[0].Bid)
}

func TestOKXRunWithoutPairsExits(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := NewOKX(OKXConfig{Pairs: nil}, logger)
	assert.NoError(t, o.Run(context.Background()))
}

func TestOKXCloseStopsRun(t *testing.T) {
	o := newTestOKX()
	o.wsURL = "ws://127.0.0.1:1" // nothing listening; Run stays in its retry loop

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	o.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after Close")
	}
}
