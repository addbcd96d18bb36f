package domain

import (
	"math"
	"time"
)

// Opportunity is a detected cross-venue profit candidate: buy on BuyVenue at
// BuyPrice (its ask), sell on SellVenue at SellPrice (its bid). Opportunities
// are created by the detector, optionally mutated once by the enricher before
// persistence, and are immutable historical records afterwards; each cycle's
// batch supersedes the previous one rather than updating it.
type Opportunity struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	BuyVenue      string  `json:"buy_venue"`
	SellVenue     string  `json:"sell_venue"`
	BuyPrice      float64 `json:"buy_price"`
	SellPrice     float64 `json:"sell_price"`
	ProfitPercent float64 `json:"profit_percent"` // net of both venues' fees
	ProfitAmount  float64 `json:"profit_amount"`  // net profit over the tradable volume, in quote units
	Volume        float64 `json:"volume"`         // min(buy volume, sell volume)

	// Chain identity, nil until enrichment resolves it.
	Blockchain       *string `json:"blockchain"`
	ContractAddress  *string `json:"contract_address"`
	ChainID          *string `json:"chain_id"`
	ContractVerified *bool   `json:"contract_verified"`

	// EnrichmentComplete is false while the chain identity of the symbol is
	// unknown or ambiguous; such records are re-attempted by the enrichment
	// sweep.
	EnrichmentComplete bool `json:"enrichment_complete"`

	ObservedAt time.Time `json:"observed_at"`
}

// ApplyIdentity attaches a resolved chain identity to the opportunity and
// marks enrichment complete.
func (o *Opportunity) ApplyIdentity(c ChainCandidate) {
	blockchain := c.ChainID
	contract := c.ContractAddress
	chainID := c.NumericID()
	verified := c.Verified

	o.Blockchain = &blockchain
	o.ContractAddress = &contract
	o.ChainID = &chainID
	o.ContractVerified = &verified
	o.EnrichmentComplete = true
}

// maxStorable is the largest magnitude the persistence layer's NUMERIC(24,8)
// columns can represent. Values at or beyond it are integrity violations.
const maxStorable = 1e16

// NumbersStorable reports whether every numeric field is finite and within
// the representable range of the persistence layer. Out-of-range values are
// rejected, never clamped.
func (o Opportunity) NumbersStorable() bool {
	for _, v := range []float64{o.ProfitPercent, o.ProfitAmount, o.BuyPrice, o.SellPrice, o.Volume} {
		if isNonFinite(v) || math.Abs(v) >= maxStorable {
			return false
		}
	}
	return true
}

func isNonFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func isFinitePositive(v float64) bool {
	return v > 0 && !isNonFinite(v)
}
