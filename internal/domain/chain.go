package domain

import "strings"

// ChainCandidate is one resolver result for a symbol: the token's identity on
// a particular chain. A symbol may be issued on several chains, so a resolve
// can return multiple candidates; uniqueness is keyed by (ChainID, ContractAddress).
type ChainCandidate struct {
	ChainID         string // normalized chain identifier, e.g. "ethereum"
	ContractAddress string // token contract address; empty for native coins
	TokenName       string
	ImageURL        string
	LiquidityUSD    float64
	Verified        bool
}

// Key returns the canonical uniqueness key "chain:address", lowercased.
func (c ChainCandidate) Key() string {
	return strings.ToLower(c.ChainID) + ":" + strings.ToLower(c.ContractAddress)
}

// SameAsset reports whether two candidates denote the same token.
func (c ChainCandidate) SameAsset(other ChainCandidate) bool {
	return c.Key() == other.Key()
}

// evmNumericIDs maps canonical chain identifiers to their EIP-155 numeric
// chain IDs, for chains that have one.
var evmNumericIDs = map[string]string{
	"ethereum":  "1",
	"bsc":       "56",
	"polygon":   "137",
	"arbitrum":  "42161",
	"optimism":  "10",
	"base":      "8453",
	"avalanche": "43114",
	"fantom":    "250",
	"zksync":    "324",
	"scroll":    "534352",
	"linea":     "59144",
	"blast":     "81457",
}

// NumericID returns the EIP-155 chain ID for the candidate's chain, or the
// canonical chain identifier for chains without one.
func (c ChainCandidate) NumericID() string {
	if id, ok := evmNumericIDs[strings.ToLower(c.ChainID)]; ok {
		return id
	}
	return strings.ToLower(c.ChainID)
}

// ListingKey identifies one venue's listing of a symbol. The listing
// directory maps it to the confirmed chain identity of that listing, which is
// what lets the detector tell same-ticker, different-asset pairs apart.
type ListingKey struct {
	Venue  string
	Symbol string
}

// VenueListing is a persisted (venue, symbol) -> chain identity binding.
type VenueListing struct {
	Venue     string
	Symbol    string
	Candidate ChainCandidate
}
