package orchestrator

import (
	"fmt"
	"strings"

	"github.com/Alias1177/MarketPulse/models"
)

// formatContext renders the structured report context handed to the
// reasoning collaborator. Plain text keyed lines, no prose.
func formatContext(report *models.MarketStatusReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Instrument: %s\nPrice: %.6f\n", report.Symbol, report.Price)

	if ind := report.Indicators; ind != nil {
		fmt.Fprintf(&sb, "RSI: %.1f | ATR%%: %.2f | TrendSlope%%: %.2f | VolumeRatio: %.2f\n",
			ind.RSI, ind.ATRPercent, ind.TrendSlope, ind.VolumeRatio)
		if ind.MACD != nil {
			fmt.Fprintf(&sb, "MACD hist: %.6f (divergence=%t)\n", ind.MACD.Histogram, ind.MACD.Divergence)
		}
		if ind.MajorSupport != nil {
			fmt.Fprintf(&sb, "Major support: %.6f\n", ind.MajorSupport.Price)
		}
		if ind.MajorResistance != nil {
			fmt.Fprintf(&sb, "Major resistance: %.6f\n", ind.MajorResistance.Price)
		}
	}

	if reg := report.Regime; reg != nil {
		fmt.Fprintf(&sb, "Regime: %s (trend=%s momentum=%s volatility=%s strength=%.0f)\n",
			reg.Regime, reg.TrendDirection, reg.MomentumState, reg.VolatilityLevel, reg.Strength)
	}

	if pat := report.Patterns; pat != nil && len(pat.Matches) > 0 {
		names := make([]string, 0, len(pat.Matches))
		for _, m := range pat.Matches {
			names = append(names, fmt.Sprintf("%s(%s %.0f%%)", m.Name, m.Signal, m.Confidence))
		}
		fmt.Fprintf(&sb, "Patterns: %s | dominant=%s confluence=%.0f\n",
			strings.Join(names, ", "), pat.DominantSignal, pat.Confluence)
	}

	if sent := report.Sentiment; sent != nil {
		fmt.Fprintf(&sb, "Sentiment: %.0f (%s, %s, contrarian=%t)\n",
			sent.Score, sent.Label, sent.Trend, sent.Contrarian)
	}

	if hist := report.History; hist != nil {
		fmt.Fprintf(&sb, "Historical success probability: %.2f (quality %.0f)\n",
			hist.SuccessProbability, hist.QualityScore)
		if len(hist.RiskFactors) > 0 {
			fmt.Fprintf(&sb, "Risk factors: %s\n", strings.Join(hist.RiskFactors, "; "))
		}
		if len(hist.ConfidenceBoosters) > 0 {
			fmt.Fprintf(&sb, "Supporting factors: %s\n", strings.Join(hist.ConfidenceBoosters, "; "))
		}
	}

	return sb.String()
}
