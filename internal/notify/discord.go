package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embed colors per event type.
const (
	colorOpportunity = 0x2ecc71
	colorError       = 0xe74c3c
	colorNeutral     = 0x95a5a6
)

// DiscordSender delivers notifications via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL. It uses a
// default HTTP client with a 10-second timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Send posts the notification to the webhook as a single embed, colored by
// event type. Opportunity records become one embed field per route.
func (d *DiscordSender) Send(ctx context.Context, n Notification) error {
	embed := discordEmbed{Title: n.Title, Color: embedColor(n.Event)}
	if len(n.Opportunities) > 0 {
		for _, opp := range n.Opportunities {
			value := fmt.Sprintf("buy %s @ %.6f, sell %s @ %.6f",
				opp.BuyVenue, opp.BuyPrice, opp.SellVenue, opp.SellPrice)
			if opp.Blockchain != nil {
				value += fmt.Sprintf(" [%s]", *opp.Blockchain)
			}
			embed.Fields = append(embed.Fields, discordField{
				Name:  fmt.Sprintf("%s %+.2f%%", opp.Symbol, opp.ProfitPercent),
				Value: value,
			})
		}
	} else {
		embed.Description = n.Body
	}

	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

func embedColor(event string) int {
	switch event {
	case EventOpportunity:
		return colorOpportunity
	case EventError:
		return colorError
	default:
		return colorNeutral
	}
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
