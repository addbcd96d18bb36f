package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSymbolMapSeparators(t *testing.T) {
	pairs := []string{"BTC/USDT", "eth/usdt"}

	binanceStyle := newSymbolMap(pairs, "")
	assert.Equal(t, "BTCUSDT", binanceStyle.toVenue["BTC/USDT"])
	assert.Equal(t, "ETH/USDT", binanceStyle.toNormal["ETHUSDT"], "pairs are upper-cased")

	gateStyle := newSymbolMap(pairs, "_")
	assert.Equal(t, "BTC_USDT", gateStyle.toVenue["BTC/USDT"])

	okxStyle := newSymbolMap(pairs, "-")
	assert.Equal(t, "BTC-USDT", okxStyle.toVenue["BTC/USDT"])
	assert.Equal(t, "BTC/USDT", okxStyle.toNormal["BTC-USDT"])
}

func TestNewSymbolMapSkipsMalformedPairs(t *testing.T) {
	sm := newSymbolMap([]string{"BTCUSDT", "", "  ", "SOL/USDT"}, "-")
	require.Len(t, sm.toVenue, 1)
	assert.Equal(t, "SOL-USDT", sm.toVenue["SOL/USDT"])
}

func TestVenueSymbols(t *testing.T) {
	sm := newSymbolMap([]string{"BTC/USDT", "ETH/USDT"}, "")
	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, sm.venueSymbols())
}

func TestParsePrice(t *testing.T) {
	v, ok := parsePrice("50000.12345678")
	assert.True(t, ok)
	assert.Equal(t, 50000.12345678, v)

	_, ok = parsePrice("")
	assert.False(t, ok)

	_, ok = parsePrice("n/a")
	assert.False(t, ok)
}
