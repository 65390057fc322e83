package history

import (
	"github.com/Alias1177/MarketPulse/models"
)

// Encode reduces an indicator snapshot to its categorical fingerprint.
// Bucket edges are deliberately coarse: the fingerprint is a similarity key,
// not a measurement.
func Encode(snap *models.IndicatorSnapshot) models.HistoricalFingerprint {
	fp := models.HistoricalFingerprint{
		Symbol:    snap.Symbol,
		Timestamp: snap.Timestamp,
	}

	switch {
	case snap.RSI < 30:
		fp.RSIBucket = "oversold"
	case snap.RSI < 45:
		fp.RSIBucket = "low"
	case snap.RSI < 55:
		fp.RSIBucket = "neutral"
	case snap.RSI < 70:
		fp.RSIBucket = "high"
	default:
		fp.RSIBucket = "overbought"
	}

	switch {
	case snap.TrendSlope < -3:
		fp.TrendBucket = "strong_down"
	case snap.TrendSlope < -0.5:
		fp.TrendBucket = "down"
	case snap.TrendSlope <= 0.5:
		fp.TrendBucket = "flat"
	case snap.TrendSlope <= 3:
		fp.TrendBucket = "up"
	default:
		fp.TrendBucket = "strong_up"
	}

	switch {
	case snap.VolumeRatio < 0.5:
		fp.VolumeBucket = "dry"
	case snap.VolumeRatio < 1.5:
		fp.VolumeBucket = "normal"
	case snap.VolumeRatio < 2.5:
		fp.VolumeBucket = "elevated"
	default:
		fp.VolumeBucket = "climax"
	}

	switch {
	case snap.ATRPercent < 0.5:
		fp.VolBucket = "quiet"
	case snap.ATRPercent < 1.5:
		fp.VolBucket = "normal"
	case snap.ATRPercent < 3:
		fp.VolBucket = "active"
	default:
		fp.VolBucket = "wild"
	}

	fp.PricePosition = pricePosition(snap)
	return fp
}

func pricePosition(snap *models.IndicatorSnapshot) string {
	if snap.Profile != nil {
		switch {
		case snap.CurrentPrice > snap.Profile.ValueAreaHigh:
			return "above_value"
		case snap.CurrentPrice < snap.Profile.ValueAreaLow:
			return "below_value"
		default:
			return "in_value"
		}
	}
	// Without a profile fall back to the volatility envelope.
	switch {
	case snap.BBUpper > 0 && snap.CurrentPrice > snap.BBUpper:
		return "above_value"
	case snap.BBLower > 0 && snap.CurrentPrice < snap.BBLower:
		return "below_value"
	default:
		return "in_value"
	}
}
