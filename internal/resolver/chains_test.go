package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeChain(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ethereum", "ethereum", true},
		{"ETH", "ethereum", true},
		{"Mainnet", "ethereum", true},
		{"bnb", "bsc", true},
		{"  Matic  ", "polygon", true},
		{"sol", "solana", true},
		{"base", "base", true},
		{"dogechain", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeChain(tc.in)
		assert.Equal(t, tc.ok, ok, "NormalizeChain(%q)", tc.in)
		assert.Equal(t, tc.want, got, "NormalizeChain(%q)", tc.in)
	}
}
