package patterns

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MarketPulse/models"
)

// Engine scans candle series for named chart and candlestick formations.
// It never fails: insufficient data for a family silently skips it and the
// worst case is an empty match list with a neutral dominant signal.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a pattern recognition engine.
func NewEngine() *Engine {
	return &Engine{
		logger: log.With().Str("component", "patterns").Logger(),
	}
}

// Analyze scans the supplied per-timeframe candle arrays and fuses the
// matches into one PatternAnalysis.
func (e *Engine) Analyze(symbol string, byTimeframe map[string][]models.Candle, price float64) *models.PatternAnalysis {
	analysis := &models.PatternAnalysis{
		Symbol:         symbol,
		DominantSignal: models.SignalNeutral,
	}

	for timeframe, candles := range byTimeframe {
		analysis.Matches = append(analysis.Matches, detectChart(candles, price, timeframe)...)
		analysis.Matches = append(analysis.Matches, detectCandlestick(candles, timeframe)...)
	}

	analysis.DominantSignal = dominantSignal(analysis.Matches)
	analysis.Confluence = confluence(analysis.Matches, analysis.DominantSignal)

	e.logger.Debug().Str("symbol", symbol).
		Int("matches", len(analysis.Matches)).
		Str("dominant", analysis.DominantSignal).
		Float64("confluence", analysis.Confluence).
		Msg("Pattern scan complete")
	return analysis
}

// dominantSignal is the direction with the highest confidence-weighted sum.
func dominantSignal(matches []models.PatternMatch) string {
	weights := map[string]float64{}
	for _, m := range matches {
		weights[m.Signal] += m.Confidence
	}

	if weights[models.SignalBullish] == 0 && weights[models.SignalBearish] == 0 {
		return models.SignalNeutral
	}
	if weights[models.SignalBullish] > weights[models.SignalBearish] {
		return models.SignalBullish
	}
	if weights[models.SignalBearish] > weights[models.SignalBullish] {
		return models.SignalBearish
	}
	return models.SignalNeutral
}

// confluence is the confidence-weighted share of matches agreeing with the
// majority signal, 0-100.
func confluence(matches []models.PatternMatch, dominant string) float64 {
	if len(matches) == 0 || dominant == models.SignalNeutral {
		return 0
	}

	var agree, total float64
	for _, m := range matches {
		total += m.Confidence
		if m.Signal == dominant {
			agree += m.Confidence
		}
	}
	if total == 0 {
		return 0
	}
	return agree / total * 100
}
