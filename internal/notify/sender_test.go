package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

func TestTelegramSendRendersOpportunities(t *testing.T) {
	var got telegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	ts := NewTelegramSender("token123", "chat42")
	ts.baseURL = srv.URL

	err := ts.Send(context.Background(), Notification{
		Event:         EventOpportunity,
		Title:         "Arbitrage",
		Opportunities: []domain.Opportunity{alertOpp("ETH/USDT", "binance", "gateio", 2.5)},
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottoken123/sendMessage", path)
	assert.Equal(t, "chat42", got.ChatID)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)
	assert.Contains(t, got.Text, "*Arbitrage*")
	assert.Contains(t, got.Text, "ETH/USDT: buy binance @ 100.000000, sell gateio @ 103.000000, net 2.50%")
}

func TestTelegramSendPlainBody(t *testing.T) {
	var got telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	ts := NewTelegramSender("token", "chat")
	ts.baseURL = srv.URL

	err := ts.Send(context.Background(), Notification{
		Event: EventLifecycle, Title: "Scanner started", Body: "continuous scan mode",
	})
	require.NoError(t, err)
	assert.Equal(t, "*Scanner started*\ncontinuous scan mode", got.Text)
}

func TestTelegramSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	ts := NewTelegramSender("token", "chat")
	ts.baseURL = srv.URL

	err := ts.Send(context.Background(), Notification{Title: "t", Body: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestDiscordSendBuildsEmbeds(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	chain := "ethereum"
	opp := alertOpp("ETH/USDT", "binance", "gateio", 2.5)
	opp.Blockchain = &chain

	ds := NewDiscordSender(srv.URL)
	err := ds.Send(context.Background(), Notification{
		Event:         EventOpportunity,
		Title:         "Arbitrage",
		Opportunities: []domain.Opportunity{opp},
	})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "Arbitrage", embed.Title)
	assert.Equal(t, colorOpportunity, embed.Color)
	assert.Empty(t, embed.Description)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "ETH/USDT +2.50%", embed.Fields[0].Name)
	assert.Contains(t, embed.Fields[0].Value, "buy binance @ 100.000000")
	assert.Contains(t, embed.Fields[0].Value, "[ethereum]")
}

func TestDiscordSendErrorEvent(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ds := NewDiscordSender(srv.URL)
	err := ds.Send(context.Background(), Notification{
		Event: EventError, Title: "Scanner stopped", Body: "db down",
	})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, colorError, got.Embeds[0].Color)
	assert.Equal(t, "db down", got.Embeds[0].Description)
	assert.Empty(t, got.Embeds[0].Fields)
}
