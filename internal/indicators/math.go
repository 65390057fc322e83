package indicators

import (
	"math"

	"github.com/Alias1177/MarketPulse/models"
)

// CalculateSMA returns the simple moving average of the last period closes.
func CalculateSMA(candles []models.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 0
	}
	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// CalculateEMA returns the exponential moving average of closes, seeded with
// an SMA over the first period values.
func CalculateEMA(candles []models.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 0
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += candles[i].Close
	}
	ema := seed / float64(period)

	multiplier := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(candles); i++ {
		ema = (candles[i].Close-ema)*multiplier + ema
	}
	return ema
}

// emaOver computes an EMA over a plain series, used for the MACD signal line.
func emaOver(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	if len(values) < period {
		// Not enough history for a seeded EMA, fall back to the mean.
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)

	multiplier := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
	}
	return ema
}

// CalculateATR returns the average true range over the last period candles.
func CalculateATR(candles []models.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 0
	}

	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowClose := math.Abs(candles[i].Low - candles[i-1].Close)
		sum += math.Max(highLow, math.Max(highClose, lowClose))
	}
	return sum / float64(period)
}

// CalculateRSI returns the relative strength index from the average
// gain/loss ratio over the last period candles.
func CalculateRSI(candles []models.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 50
	}

	var gains, losses float64
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}

	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - (100 / (1 + rs))
}

// CalculateStochastic returns %K of the stochastic oscillator.
func CalculateStochastic(candles []models.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 50
	}

	highest := candles[len(candles)-period].High
	lowest := candles[len(candles)-period].Low
	for i := len(candles) - period; i < len(candles); i++ {
		if candles[i].High > highest {
			highest = candles[i].High
		}
		if candles[i].Low < lowest {
			lowest = candles[i].Low
		}
	}

	if highest == lowest {
		return 50
	}
	return (candles[len(candles)-1].Close - lowest) / (highest - lowest) * 100
}

// CalculateOBV returns the on-balance volume over the whole series.
func CalculateOBV(candles []models.Candle) float64 {
	var obv float64
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			obv += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			obv -= candles[i].Volume
		}
	}
	return obv
}

// CalculateBollinger returns the band-style volatility envelope
// (upper, middle, lower).
func CalculateBollinger(candles []models.Candle, period int, stdDev float64) (float64, float64, float64) {
	if len(candles) < period || period <= 0 {
		return 0, 0, 0
	}

	middle := CalculateSMA(candles, period)

	var variance float64
	for i := len(candles) - period; i < len(candles); i++ {
		d := candles[i].Close - middle
		variance += d * d
	}
	sigma := math.Sqrt(variance / float64(period))

	return middle + stdDev*sigma, middle, middle - stdDev*sigma
}

// volumeRatio compares the last candle's volume to the rolling average of
// the preceding lookback candles.
func volumeRatio(candles []models.Candle, lookback int) float64 {
	if len(candles) < 2 {
		return 1
	}
	if lookback > len(candles)-1 {
		lookback = len(candles) - 1
	}

	var sum float64
	for i := len(candles) - 1 - lookback; i < len(candles)-1; i++ {
		sum += candles[i].Volume
	}
	avg := sum / float64(lookback)
	if avg == 0 {
		return 1
	}
	return candles[len(candles)-1].Volume / avg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
