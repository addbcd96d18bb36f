package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"arbscan/internal/domain"
)

// Event types used by the scanner.
const (
	EventOpportunity = "opportunity"
	EventError       = "error"
	EventLifecycle   = "lifecycle"
)

// AlertManager turns detected opportunities into operator notifications. It
// suppresses repeat alerts for the same route (symbol, buy venue, sell venue)
// within a cooldown window so a persistent spread does not flood the channel
// every cycle.
type AlertManager struct {
	notifier  *Notifier
	threshold float64
	cooldown  time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time

	now func() time.Time
}

// NewAlertManager creates an AlertManager. Only opportunities at or above
// threshold (net profit percent) are alerted; cooldown bounds repeat alerts
// per route.
func NewAlertManager(notifier *Notifier, threshold float64, cooldown time.Duration) *AlertManager {
	return &AlertManager{
		notifier:  notifier,
		threshold: threshold,
		cooldown:  cooldown,
		lastSent:  make(map[string]time.Time),
		now:       time.Now,
	}
}

// AlertOpportunities sends one notification covering the alertable subset of a
// cycle's opportunities. Routes still in cooldown are skipped silently.
func (am *AlertManager) AlertOpportunities(ctx context.Context, opps []domain.Opportunity) error {
	alertable := am.selectAlertable(opps)
	if len(alertable) == 0 {
		return nil
	}

	lines := make([]string, len(alertable))
	for i, opp := range alertable {
		lines[i] = routeLine(opp)
	}

	return am.notifier.Notify(ctx, Notification{
		Event:         EventOpportunity,
		Title:         fmt.Sprintf("Arbitrage: %d opportunity(ies) ≥ %.2f%%", len(alertable), am.threshold),
		Body:          strings.Join(lines, "\n"),
		Opportunities: alertable,
	})
}

// routeLine renders one opportunity as a single text line.
func routeLine(opp domain.Opportunity) string {
	line := fmt.Sprintf("%s: buy %s @ %.6f, sell %s @ %.6f, net %.2f%%",
		opp.Symbol, opp.BuyVenue, opp.BuyPrice, opp.SellVenue, opp.SellPrice,
		opp.ProfitPercent)
	if opp.Blockchain != nil {
		line += fmt.Sprintf(" [%s]", *opp.Blockchain)
	}
	return line
}

func (am *AlertManager) selectAlertable(opps []domain.Opportunity) []domain.Opportunity {
	now := am.now().UTC()

	am.mu.Lock()
	defer am.mu.Unlock()

	var out []domain.Opportunity
	for _, opp := range opps {
		if opp.ProfitPercent < am.threshold {
			continue
		}
		key := opp.Symbol + "|" + opp.BuyVenue + "|" + opp.SellVenue
		if last, ok := am.lastSent[key]; ok && now.Sub(last) < am.cooldown {
			continue
		}
		am.lastSent[key] = now
		out = append(out, opp)
	}
	return out
}
