package indicators

import (
	"math"
	"sort"

	"github.com/Alias1177/MarketPulse/models"
)

// CalculateVWAP returns the volume-weighted average price with a
// volume-weighted deviation band. Nil when the series carries no volume.
func CalculateVWAP(candles []models.Candle) *models.VWAPBands {
	var pvSum, volSum float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		pvSum += typical * c.Volume
		volSum += c.Volume
	}
	if volSum == 0 {
		return nil
	}
	vwap := pvSum / volSum

	// Volume-weighted deviation around VWAP.
	var devSum float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		d := typical - vwap
		devSum += d * d * c.Volume
	}
	sigma := math.Sqrt(devSum / volSum)

	return &models.VWAPBands{
		Value: vwap,
		Upper: vwap + 2*sigma,
		Lower: vwap - 2*sigma,
	}
}

type profileBin struct {
	price  float64 // bin midpoint
	volume float64
}

// CalculateMarketProfile buckets closes into adaptive-width volume-weighted
// price bins. Point of control is the highest-volume bin; the value area is
// the minimal bin set covering 70% of traded volume.
func CalculateMarketProfile(candles []models.Candle) *models.MarketProfile {
	if len(candles) < 10 {
		return nil
	}

	low, high := candles[0].Close, candles[0].Close
	var totalVolume float64
	for _, c := range candles {
		if c.Close < low {
			low = c.Close
		}
		if c.Close > high {
			high = c.Close
		}
		totalVolume += c.Volume
	}
	if totalVolume == 0 || high == low {
		return nil
	}

	// Adaptive width: more candles warrant finer bins, capped at 50.
	binCount := len(candles) / 4
	if binCount < 10 {
		binCount = 10
	}
	if binCount > 50 {
		binCount = 50
	}
	width := (high - low) / float64(binCount)

	bins := make([]profileBin, binCount)
	for i := range bins {
		bins[i].price = low + (float64(i)+0.5)*width
	}
	for _, c := range candles {
		idx := int((c.Close - low) / width)
		if idx >= binCount {
			idx = binCount - 1
		}
		bins[idx].volume += c.Volume
	}

	// Point of control.
	pocIdx := 0
	for i, b := range bins {
		if b.volume > bins[pocIdx].volume {
			pocIdx = i
		}
	}

	// Value area: greedily take the highest-volume bins until 70% covered.
	order := make([]int, binCount)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return bins[order[a]].volume > bins[order[b]].volume
	})

	var covered float64
	vaLow, vaHigh := bins[pocIdx].price, bins[pocIdx].price
	for _, idx := range order {
		covered += bins[idx].volume
		if bins[idx].price < vaLow {
			vaLow = bins[idx].price
		}
		if bins[idx].price > vaHigh {
			vaHigh = bins[idx].price
		}
		if covered >= totalVolume*0.7 {
			break
		}
	}

	return &models.MarketProfile{
		PointOfControl: bins[pocIdx].price,
		ValueAreaHigh:  vaHigh,
		ValueAreaLow:   vaLow,
	}
}

// highVolumeBins returns midpoints of bins whose volume exceeds twice the
// per-bin average, feeding the support/resistance clustering.
func highVolumeBins(candles []models.Candle) []float64 {
	if len(candles) < 10 {
		return nil
	}

	low, high := candles[0].Close, candles[0].Close
	var totalVolume float64
	for _, c := range candles {
		if c.Close < low {
			low = c.Close
		}
		if c.Close > high {
			high = c.Close
		}
		totalVolume += c.Volume
	}
	if totalVolume == 0 || high == low {
		return nil
	}

	binCount := 20
	width := (high - low) / float64(binCount)
	volumes := make([]float64, binCount)
	for _, c := range candles {
		idx := int((c.Close - low) / width)
		if idx >= binCount {
			idx = binCount - 1
		}
		volumes[idx] += c.Volume
	}

	avg := totalVolume / float64(binCount)
	var out []float64
	for i, v := range volumes {
		if v > avg*2 {
			out = append(out, low+(float64(i)+0.5)*width)
		}
	}
	return out
}
