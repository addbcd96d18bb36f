package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyNamespacing(t *testing.T) {
	c := &Client{ns: defaultNamespace}
	assert.Equal(t, "arbscan:candidates:PEPE", c.key("candidates", "PEPE"))
	assert.Equal(t, "arbscan:quote:binance:ETH/USDT", c.key("quote", "binance", "ETH/USDT"))

	shared := &Client{ns: "staging"}
	assert.Equal(t, "staging:candidates:PEPE", shared.key("candidates", "PEPE"))
}
