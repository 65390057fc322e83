package patterns

import (
	"math"

	"github.com/Alias1177/MarketPulse/models"
)

// detectCandlestick runs OHLC ratio tests over the last 1-10 candles of one
// timeframe. Fewer than 5 candles silently skips the family.
func detectCandlestick(candles []models.Candle, timeframe string) []models.PatternMatch {
	if len(candles) < 5 {
		return nil
	}

	var matches []models.PatternMatch

	c1 := candles[len(candles)-5]
	c2 := candles[len(candles)-4]
	c3 := candles[len(candles)-3]
	c4 := candles[len(candles)-2]
	c5 := candles[len(candles)-1]

	body1 := math.Abs(c1.Close - c1.Open)
	body2 := math.Abs(c2.Close - c2.Open)
	body3 := math.Abs(c3.Close - c3.Open)
	body4 := math.Abs(c4.Close - c4.Open)
	body5 := math.Abs(c5.Close - c5.Open)
	avgBody := (body1 + body2 + body3 + body4 + body5) / 5

	bullish3 := c3.Close > c3.Open
	bullish4 := c4.Close > c4.Open
	bullish5 := c5.Close > c5.Open

	upperWick := c5.High - math.Max(c5.Open, c5.Close)
	lowerWick := math.Min(c5.Open, c5.Close) - c5.Low

	add := func(name, signal string, confidence float64, length int) {
		matches = append(matches, models.PatternMatch{
			Family:     models.PatternFamilyCandlestick,
			Name:       name,
			Signal:     signal,
			Confidence: confidence,
			Strength:   confidence / 100,
			Timeframe:  timeframe,
			Length:     length,
		})
	}

	if bullish5 && !bullish4 &&
		c5.Open < c4.Close && c5.Close > c4.Open &&
		body5 > body4*1.2 {
		add("Bullish Engulfing", models.SignalBullish, 70, 2)
	}

	if !bullish5 && bullish4 &&
		c5.Open > c4.Close && c5.Close < c4.Open &&
		body5 > body4*1.2 {
		add("Bearish Engulfing", models.SignalBearish, 70, 2)
	}

	if lowerWick > body5*2 && upperWick < body5*0.5 {
		add("Hammer", models.SignalBullish, 65, 1)
	}

	if upperWick > body5*2 && lowerWick < body5*0.5 {
		add("Shooting Star", models.SignalBearish, 65, 1)
	}

	if bullish3 && bullish4 && bullish5 &&
		body3 > avgBody*0.5 && body4 > avgBody*0.5 && body5 > avgBody*0.5 &&
		c4.Close > c3.Close && c5.Close > c4.Close {
		add("Three White Soldiers", models.SignalBullish, 75, 3)
	}

	if !bullish3 && !bullish4 && !bullish5 &&
		body3 > avgBody*0.5 && body4 > avgBody*0.5 && body5 > avgBody*0.5 &&
		c4.Close < c3.Close && c5.Close < c4.Close {
		add("Three Black Crows", models.SignalBearish, 75, 3)
	}

	if body5 < avgBody*0.3 && (upperWick > body5 || lowerWick > body5) {
		add("Doji", models.SignalNeutral, 55, 1)
	}

	// Star reversals over the last three candles.
	if bullish3 && body3 > avgBody &&
		body4 < avgBody*0.3 && c4.Open > c3.Close &&
		!bullish5 && body5 > avgBody &&
		c5.Close < c3.Open+(c3.Close-c3.Open)/2 {
		add("Evening Star", models.SignalBearish, 72, 3)
	}

	if !bullish3 && body3 > avgBody &&
		body4 < avgBody*0.3 && c4.Open < c3.Close &&
		bullish5 && body5 > avgBody &&
		c5.Close > c3.Open+(c3.Close-c3.Open)/2 {
		add("Morning Star", models.SignalBullish, 72, 3)
	}

	return matches
}
