package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"arbscan/internal/domain"
)

// searchResponse is the wire shape of the metadata API's pair search
// endpoint.
type searchResponse struct {
	Pairs []apiPair `json:"pairs"`
}

// apiPair is one trading pair as returned by the search endpoint. Only the
// fields the resolver needs are decoded.
type apiPair struct {
	ChainID   string `json:"chainId"`
	DexID     string `json:"dexId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Info struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

// parseSearch decodes a search response and converts matching pairs into
// chain candidates. Pairs are kept only when the base token ticker matches
// the requested symbol, the chain is known, the contract address is
// syntactically valid for its chain, and pool liquidity clears the floor.
func parseSearch(body []byte, baseSymbol string, minLiquidityUSD float64) ([]domain.ChainCandidate, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("resolver: decode search response: %w", err)
	}

	var cands []domain.ChainCandidate
	for _, pair := range resp.Pairs {
		if !strings.EqualFold(pair.BaseToken.Symbol, baseSymbol) {
			continue
		}
		chain, ok := NormalizeChain(pair.ChainID)
		if !ok {
			continue
		}
		if pair.Liquidity.USD < minLiquidityUSD {
			continue
		}
		if !validAddress(chain, pair.BaseToken.Address) {
			continue
		}
		cands = append(cands, domain.ChainCandidate{
			ChainID:         chain,
			ContractAddress: strings.ToLower(pair.BaseToken.Address),
			TokenName:       pair.BaseToken.Name,
			ImageURL:        pair.Info.ImageURL,
			LiquidityUSD:    pair.Liquidity.USD,
		})
	}
	return cands, nil
}

// validAddress checks the contract address syntactically. EVM chains require
// a well-formed 0x-hex address; other chains only require a non-empty value.
func validAddress(chain, address string) bool {
	if address == "" {
		return false
	}
	if evmChains[chain] {
		return common.IsHexAddress(address)
	}
	return true
}
