package indicators

import (
	"math"
	"sort"

	"github.com/Alias1177/MarketPulse/models"
)

// clusterTolerance groups raw levels lying within ~1% of each other.
const clusterTolerance = 0.01

type rawLevel struct {
	price  float64
	source string
}

// FindKeyLevels derives ranked support/resistance lists from swing extrema,
// market-profile boundaries and high-volume price bins, clustered by price
// proximity and split around the current price. The strongest level on each
// side is the "major" pick.
func FindKeyLevels(candles []models.Candle, price float64, profile *models.MarketProfile) (support, resistance []models.PriceLevel, majorSup, majorRes *models.PriceLevel) {
	var raw []rawLevel

	for _, p := range swingHighs(candles, 2) {
		raw = append(raw, rawLevel{price: p, source: "swing"})
	}
	for _, p := range swingLows(candles, 2) {
		raw = append(raw, rawLevel{price: p, source: "swing"})
	}
	if profile != nil {
		raw = append(raw,
			rawLevel{price: profile.PointOfControl, source: "profile"},
			rawLevel{price: profile.ValueAreaHigh, source: "profile"},
			rawLevel{price: profile.ValueAreaLow, source: "profile"},
		)
	}
	for _, p := range highVolumeBins(candles) {
		raw = append(raw, rawLevel{price: p, source: "volume"})
	}

	if len(raw) == 0 || price <= 0 {
		return nil, nil, nil, nil
	}

	levels := clusterLevels(raw)

	for _, l := range levels {
		if l.Price < price {
			support = append(support, l)
		} else if l.Price > price {
			resistance = append(resistance, l)
		}
	}

	// Rank support descending (nearest first), resistance ascending.
	sort.Slice(support, func(i, j int) bool { return support[i].Price > support[j].Price })
	sort.Slice(resistance, func(i, j int) bool { return resistance[i].Price < resistance[j].Price })

	majorSup = strongest(support)
	majorRes = strongest(resistance)
	return support, resistance, majorSup, majorRes
}

// clusterLevels merges raw levels within clusterTolerance of each other into
// one level whose strength reflects touch count and source mix.
func clusterLevels(raw []rawLevel) []models.PriceLevel {
	sort.Slice(raw, func(i, j int) bool { return raw[i].price < raw[j].price })

	var out []models.PriceLevel
	i := 0
	for i < len(raw) {
		j := i + 1
		sum := raw[i].price
		sources := map[string]bool{raw[i].source: true}
		for j < len(raw) && math.Abs(raw[j].price-raw[i].price) <= raw[i].price*clusterTolerance {
			sum += raw[j].price
			sources[raw[j].source] = true
			j++
		}

		touches := j - i
		strength := clamp(float64(touches)*20+float64(len(sources))*10, 0, 100)
		src := "swing"
		if sources["profile"] {
			src = "profile"
		} else if sources["volume"] {
			src = "volume"
		}

		out = append(out, models.PriceLevel{
			Price:    sum / float64(touches),
			Strength: strength,
			Touches:  touches,
			Source:   src,
		})
		i = j
	}
	return out
}

func strongest(levels []models.PriceLevel) *models.PriceLevel {
	if len(levels) == 0 {
		return nil
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if l.Strength > best.Strength {
			best = l
		}
	}
	return &best
}

// swingHighs returns prices of local maxima with span candles on each side.
func swingHighs(candles []models.Candle, span int) []float64 {
	var out []float64
	for i := span; i < len(candles)-span; i++ {
		isHigh := true
		for k := 1; k <= span; k++ {
			if candles[i].High <= candles[i-k].High || candles[i].High <= candles[i+k].High {
				isHigh = false
				break
			}
		}
		if isHigh {
			out = append(out, candles[i].High)
		}
	}
	return out
}

// swingLows returns prices of local minima with span candles on each side.
func swingLows(candles []models.Candle, span int) []float64 {
	var out []float64
	for i := span; i < len(candles)-span; i++ {
		isLow := true
		for k := 1; k <= span; k++ {
			if candles[i].Low >= candles[i-k].Low || candles[i].Low >= candles[i+k].Low {
				isLow = false
				break
			}
		}
		if isLow {
			out = append(out, candles[i].Low)
		}
	}
	return out
}
