package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuoteValid(t *testing.T) {
	good := Quote{Venue: "binance", Symbol: "BTC/USDT", Bid: 1, Ask: 2, Volume: 3, ObservedAt: time.Now()}
	assert.True(t, good.Valid())

	cases := map[string]func(*Quote){
		"missing venue":   func(q *Quote) { q.Venue = "" },
		"missing symbol":  func(q *Quote) { q.Symbol = "" },
		"zero bid":        func(q *Quote) { q.Bid = 0 },
		"negative ask":    func(q *Quote) { q.Ask = -1 },
		"nan bid":         func(q *Quote) { q.Bid = math.NaN() },
		"inf ask":         func(q *Quote) { q.Ask = math.Inf(1) },
		"negative volume": func(q *Quote) { q.Volume = -1 },
	}
	for name, mutate := range cases {
		q := good
		mutate(&q)
		assert.False(t, q.Valid(), name)
	}

	// Zero volume is legal; thin books report it.
	q := good
	q.Volume = 0
	assert.True(t, q.Valid())
}

func TestChainCandidateKeyAndSameAsset(t *testing.T) {
	a := ChainCandidate{ChainID: "Ethereum", ContractAddress: "0xABC"}
	b := ChainCandidate{ChainID: "ethereum", ContractAddress: "0xabc", LiquidityUSD: 99}
	c := ChainCandidate{ChainID: "bsc", ContractAddress: "0xabc"}

	assert.Equal(t, "ethereum:0xabc", a.Key())
	assert.True(t, a.SameAsset(b), "identity comparison is case-insensitive")
	assert.False(t, a.SameAsset(c))
}

func TestChainCandidateNumericID(t *testing.T) {
	assert.Equal(t, "1", ChainCandidate{ChainID: "ethereum"}.NumericID())
	assert.Equal(t, "56", ChainCandidate{ChainID: "BSC"}.NumericID())
	assert.Equal(t, "solana", ChainCandidate{ChainID: "solana"}.NumericID())
}

func TestOpportunityApplyIdentity(t *testing.T) {
	opp := Opportunity{Symbol: "PEPE/USDT"}
	opp.ApplyIdentity(ChainCandidate{
		ChainID:         "ethereum",
		ContractAddress: "0xabc",
		Verified:        true,
	})

	assert.True(t, opp.EnrichmentComplete)
	if assert.NotNil(t, opp.Blockchain) {
		assert.Equal(t, "ethereum", *opp.Blockchain)
	}
	if assert.NotNil(t, opp.ChainID) {
		assert.Equal(t, "1", *opp.ChainID)
	}
	if assert.NotNil(t, opp.ContractVerified) {
		assert.True(t, *opp.ContractVerified)
	}
}

func TestOpportunityNumbersStorable(t *testing.T) {
	good := Opportunity{BuyPrice: 1, SellPrice: 2, ProfitPercent: 3, ProfitAmount: 4, Volume: 5}
	assert.True(t, good.NumbersStorable())

	bad := good
	bad.ProfitAmount = math.NaN()
	assert.False(t, bad.NumbersStorable())

	bad = good
	bad.Volume = 1e16
	assert.False(t, bad.NumbersStorable())

	bad = good
	bad.BuyPrice = math.Inf(-1)
	assert.False(t, bad.NumbersStorable())
}
