package detector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

func storableOpp() domain.Opportunity {
	return domain.Opportunity{
		ID:            "a",
		Symbol:        "ETH/USDT",
		BuyVenue:      "binance",
		SellVenue:     "gateio",
		BuyPrice:      2000,
		SellPrice:     2050,
		ProfitPercent: 2.3,
		ProfitAmount:  115,
		Volume:        50,
	}
}

func TestSanitizeDropsNonFiniteNumbers(t *testing.T) {
	det := New(testConfig(), testLogger())

	nan := storableOpp()
	nan.ProfitPercent = math.NaN()
	inf := storableOpp()
	inf.ProfitAmount = math.Inf(1)
	huge := storableOpp()
	huge.Volume = 1e17 // beyond NUMERIC(24,8)
	good := storableOpp()

	clean := det.Sanitize([]domain.Opportunity{nan, good, inf, huge})
	require.Len(t, clean, 1)
	assert.Equal(t, good, clean[0])
}

func TestSanitizeKeepsBoundaryBelowMax(t *testing.T) {
	det := New(testConfig(), testLogger())

	opp := storableOpp()
	opp.ProfitAmount = 1e16 - 1
	assert.Len(t, det.Sanitize([]domain.Opportunity{opp}), 1)

	opp.ProfitAmount = 1e16 // at the limit is already unstorable
	assert.Empty(t, det.Sanitize([]domain.Opportunity{opp}))
}

func TestSanitizeEmptyInput(t *testing.T) {
	det := New(testConfig(), testLogger())
	assert.Empty(t, det.Sanitize(nil))
}
