// Package exchange contains the venue adapters. Each adapter normalizes one
// venue's raw feed into domain.Quote values; all venue-specific symbol
// spelling and payload parsing lives here and never leaks into the core.
package exchange

import (
	"strconv"
	"strings"
)

// symbolMap translates between normalized pair spellings ("BTC/USDT") and a
// venue's instrument identifiers, in both directions.
type symbolMap struct {
	toVenue  map[string]string
	toNormal map[string]string
}

// newSymbolMap builds a symbolMap for the given normalized pairs, spelling
// venue instruments by joining base and quote with sep ("" for BTCUSDT, "_"
// for BTC_USDT, "-" for BTC-USDT).
func newSymbolMap(pairs []string, sep string) symbolMap {
	sm := symbolMap{
		toVenue:  make(map[string]string, len(pairs)),
		toNormal: make(map[string]string, len(pairs)),
	}
	for _, pair := range pairs {
		pair = strings.ToUpper(strings.TrimSpace(pair))
		if pair == "" || !strings.Contains(pair, "/") {
			continue
		}
		venueSym := strings.ReplaceAll(pair, "/", sep)
		sm.toVenue[pair] = venueSym
		sm.toNormal[venueSym] = pair
	}
	return sm
}

// venueSymbols returns the venue-side instrument identifiers, for
// subscription or filter lists.
func (sm symbolMap) venueSymbols() []string {
	syms := make([]string, 0, len(sm.toVenue))
	for _, v := range sm.toVenue {
		syms = append(syms, v)
	}
	return syms
}

// parsePrice parses a decimal string from a venue payload; venues quote
// numbers as strings to avoid float truncation in JSON.
func parsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
