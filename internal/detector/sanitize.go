package detector

import (
	"log/slog"

	"arbscan/internal/domain"
)

// Sanitize is the single validation gate before persistence: any opportunity
// carrying a non-finite or out-of-range numeric field is dropped with a
// warning. Values are never clamped to a boundary — a clamped number looks
// plausible but is fabricated.
func (d *Detector) Sanitize(opps []domain.Opportunity) []domain.Opportunity {
	clean := opps[:0]
	for _, opp := range opps {
		if !opp.NumbersStorable() {
			d.logger.Warn("dropping opportunity with unstorable numbers",
				slog.String("symbol", opp.Symbol),
				slog.String("buy_venue", opp.BuyVenue),
				slog.String("sell_venue", opp.SellVenue),
				slog.Float64("profit_percent", opp.ProfitPercent),
				slog.Float64("profit_amount", opp.ProfitAmount),
				slog.String("error", domain.ErrDataIntegrity.Error()),
			)
			continue
		}
		clean = append(clean, opp)
	}
	return clean
}
