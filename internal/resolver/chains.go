package resolver

import "strings"

// knownChains is the set of chain identifiers the metadata API accepts. The
// upstream requires exact lowercase identifiers; anything else is rejected
// before a request is made.
var knownChains = map[string]bool{
	"ethereum": true, "bsc": true, "polygon": true, "arbitrum": true,
	"optimism": true, "base": true, "avalanche": true, "fantom": true,
	"solana": true, "sui": true, "aptos": true, "zksync": true,
	"scroll": true, "linea": true, "blast": true, "sonic": true,
	"berachain": true,
}

// chainAliases maps common spellings to canonical chain identifiers.
var chainAliases = map[string]string{
	"eth":     "ethereum",
	"ether":   "ethereum",
	"mainnet": "ethereum",
	"bnb":     "bsc",
	"binance": "bsc",
	"matic":   "polygon",
	"poly":    "polygon",
	"arb":     "arbitrum",
	"op":      "optimism",
	"avax":    "avalanche",
	"ftm":     "fantom",
	"sol":     "solana",
}

// nativeHome maps a native coin ticker to the chain it is resolved to when a
// symbol lookup matches a native coin. Native coins have no contract address
// and resolve without a network lookup; bridged replicas on other chains are
// contract tokens and come back from the search API like any other token.
var nativeHome = map[string]string{
	"ETH":   "ethereum",
	"BNB":   "bsc",
	"MATIC": "polygon",
	"AVAX":  "avalanche",
	"FTM":   "fantom",
	"SOL":   "solana",
}

// evmChains marks chains whose contract addresses are 0x-hex and can be
// syntactically validated.
var evmChains = map[string]bool{
	"ethereum": true, "bsc": true, "polygon": true, "arbitrum": true,
	"optimism": true, "base": true, "avalanche": true, "fantom": true,
	"zksync": true, "scroll": true, "linea": true, "blast": true,
}

// NormalizeChain maps a chain spelling to its canonical lowercase identifier.
// It returns false for unknown chains.
func NormalizeChain(chain string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(chain))
	if normalized == "" {
		return "", false
	}
	if alias, ok := chainAliases[normalized]; ok {
		normalized = alias
	}
	if !knownChains[normalized] {
		return "", false
	}
	return normalized, true
}
