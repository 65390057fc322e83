package patterns

import (
	"math"

	"github.com/Alias1177/MarketPulse/models"
)

// swingPoint is one local extremum used for chart geometry.
type swingPoint struct {
	index int
	price float64
}

func findSwingHighs(candles []models.Candle, span int) []swingPoint {
	var out []swingPoint
	for i := span; i < len(candles)-span; i++ {
		isHigh := true
		for k := 1; k <= span; k++ {
			if candles[i].High <= candles[i-k].High || candles[i].High <= candles[i+k].High {
				isHigh = false
				break
			}
		}
		if isHigh {
			out = append(out, swingPoint{index: i, price: candles[i].High})
		}
	}
	return out
}

func findSwingLows(candles []models.Candle, span int) []swingPoint {
	var out []swingPoint
	for i := span; i < len(candles)-span; i++ {
		isLow := true
		for k := 1; k <= span; k++ {
			if candles[i].Low >= candles[i-k].Low || candles[i].Low >= candles[i+k].Low {
				isLow = false
				break
			}
		}
		if isLow {
			out = append(out, swingPoint{index: i, price: candles[i].Low})
		}
	}
	return out
}

// slopePct returns the least-squares slope of the points, normalized by the
// mean price, in percent per candle.
func slopePct(points []swingPoint) float64 {
	n := float64(len(points))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := float64(p.index)
		sumX += x
		sumY += p.price
		sumXY += x * p.price
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	mean := sumY / n
	if mean == 0 {
		return 0
	}
	return slope / mean * 100
}

// detectChart runs all geometric chart tests over one timeframe. Fewer than
// 20 candles silently skips the family.
func detectChart(candles []models.Candle, price float64, timeframe string) []models.PatternMatch {
	if len(candles) < 20 {
		return nil
	}

	highs := findSwingHighs(candles, 2)
	lows := findSwingLows(candles, 2)

	var matches []models.PatternMatch
	if m := detectTriangle(highs, lows, timeframe); m != nil {
		matches = append(matches, *m)
	}
	if m := detectDoubleTop(highs, candles, price, timeframe); m != nil {
		matches = append(matches, *m)
	}
	if m := detectDoubleBottom(lows, candles, price, timeframe); m != nil {
		matches = append(matches, *m)
	}
	if m := detectHeadAndShoulders(highs, timeframe); m != nil {
		matches = append(matches, *m)
	}
	if m := detectInverseHeadAndShoulders(lows, timeframe); m != nil {
		matches = append(matches, *m)
	}
	if m := detectRectangle(highs, lows, timeframe); m != nil {
		matches = append(matches, *m)
	}
	if m := detectCupAndHandle(candles, timeframe); m != nil {
		matches = append(matches, *m)
	}
	return matches
}

// detectTriangle classifies by the slope signs of recent swing highs/lows.
// Flat means within ±0.05% per candle.
func detectTriangle(highs, lows []swingPoint, timeframe string) *models.PatternMatch {
	if len(highs) < 3 || len(lows) < 3 {
		return nil
	}

	hs := slopePct(highs[len(highs)-3:])
	ls := slopePct(lows[len(lows)-3:])
	const flat = 0.05

	length := lastIndex(highs) - firstOf(highs[len(highs)-3:], lows[len(lows)-3:])

	switch {
	case ls > flat && math.Abs(hs) <= flat:
		return &models.PatternMatch{
			Family: models.PatternFamilyChart, Name: "Ascending Triangle",
			Signal: models.SignalBullish, Confidence: 70, Strength: 0.7,
			Timeframe: timeframe, Length: length,
		}
	case hs < -flat && math.Abs(ls) <= flat:
		return &models.PatternMatch{
			Family: models.PatternFamilyChart, Name: "Descending Triangle",
			Signal: models.SignalBearish, Confidence: 70, Strength: 0.7,
			Timeframe: timeframe, Length: length,
		}
	case hs < -flat && ls > flat:
		return &models.PatternMatch{
			Family: models.PatternFamilyChart, Name: "Symmetrical Triangle",
			Signal: models.SignalNeutral, Confidence: 60, Strength: 0.6,
			Timeframe: timeframe, Length: length,
		}
	}
	return nil
}

// detectDoubleTop looks for two peaks within 2% of each other separated by a
// retracement of at least 3%. Target sits at the intervening valley low.
func detectDoubleTop(highs []swingPoint, candles []models.Candle, price float64, timeframe string) *models.PatternMatch {
	if len(highs) < 2 {
		return nil
	}

	p1 := highs[len(highs)-2]
	p2 := highs[len(highs)-1]
	if p2.index-p1.index < 3 {
		return nil
	}
	if math.Abs(p1.price-p2.price)/p1.price > 0.02 {
		return nil
	}

	valley := p1.price
	for i := p1.index + 1; i < p2.index; i++ {
		if candles[i].Low < valley {
			valley = candles[i].Low
		}
	}
	if (p1.price-valley)/p1.price < 0.03 {
		return nil
	}

	target := valley
	return &models.PatternMatch{
		Family: models.PatternFamilyChart, Name: "Double Top",
		Signal: models.SignalBearish, Confidence: 72, Strength: 0.72,
		Target: &target, Timeframe: timeframe, Length: p2.index - p1.index,
	}
}

func detectDoubleBottom(lows []swingPoint, candles []models.Candle, price float64, timeframe string) *models.PatternMatch {
	if len(lows) < 2 {
		return nil
	}

	t1 := lows[len(lows)-2]
	t2 := lows[len(lows)-1]
	if t2.index-t1.index < 3 {
		return nil
	}
	if math.Abs(t1.price-t2.price)/t1.price > 0.02 {
		return nil
	}

	peak := t1.price
	for i := t1.index + 1; i < t2.index; i++ {
		if candles[i].High > peak {
			peak = candles[i].High
		}
	}
	if (peak-t1.price)/t1.price < 0.03 {
		return nil
	}

	target := peak
	return &models.PatternMatch{
		Family: models.PatternFamilyChart, Name: "Double Bottom",
		Signal: models.SignalBullish, Confidence: 72, Strength: 0.72,
		Target: &target, Timeframe: timeframe, Length: t2.index - t1.index,
	}
}

// detectHeadAndShoulders wants three peaks with shoulders within 3% of each
// other and the head above both by more than 2%.
func detectHeadAndShoulders(highs []swingPoint, timeframe string) *models.PatternMatch {
	if len(highs) < 3 {
		return nil
	}

	left := highs[len(highs)-3]
	head := highs[len(highs)-2]
	right := highs[len(highs)-1]

	if math.Abs(left.price-right.price)/left.price > 0.03 {
		return nil
	}
	if head.price <= left.price*1.02 || head.price <= right.price*1.02 {
		return nil
	}

	return &models.PatternMatch{
		Family: models.PatternFamilyChart, Name: "Head and Shoulders",
		Signal: models.SignalBearish, Confidence: 75, Strength: 0.75,
		Timeframe: timeframe, Length: right.index - left.index,
	}
}

func detectInverseHeadAndShoulders(lows []swingPoint, timeframe string) *models.PatternMatch {
	if len(lows) < 3 {
		return nil
	}

	left := lows[len(lows)-3]
	head := lows[len(lows)-2]
	right := lows[len(lows)-1]

	if math.Abs(left.price-right.price)/left.price > 0.03 {
		return nil
	}
	if head.price >= left.price*0.98 || head.price >= right.price*0.98 {
		return nil
	}

	return &models.PatternMatch{
		Family: models.PatternFamilyChart, Name: "Inverse Head and Shoulders",
		Signal: models.SignalBullish, Confidence: 75, Strength: 0.75,
		Timeframe: timeframe, Length: right.index - left.index,
	}
}

// detectRectangle wants at least two touches on each edge of a band whose
// height is between 3% and 15% of price.
func detectRectangle(highs, lows []swingPoint, timeframe string) *models.PatternMatch {
	if len(highs) < 2 || len(lows) < 2 {
		return nil
	}

	top := (highs[len(highs)-1].price + highs[len(highs)-2].price) / 2
	bottom := (lows[len(lows)-1].price + lows[len(lows)-2].price) / 2
	if bottom <= 0 || top <= bottom {
		return nil
	}

	height := (top - bottom) / bottom
	if height < 0.03 || height > 0.15 {
		return nil
	}

	topTouches := touchesNear(highs, top, 0.01)
	bottomTouches := touchesNear(lows, bottom, 0.01)
	if topTouches < 2 || bottomTouches < 2 {
		return nil
	}

	length := lastIndex(highs) - minInt(highs[0].index, lows[0].index)
	return &models.PatternMatch{
		Family: models.PatternFamilyChart, Name: "Rectangle",
		Signal: models.SignalNeutral, Confidence: 60, Strength: 0.6,
		Timeframe: timeframe, Length: length,
	}
}

// detectCupAndHandle wants rim heights within 5%, a cup depth of 12-50% and
// a handle retracement shallower than 12%.
func detectCupAndHandle(candles []models.Candle, timeframe string) *models.PatternMatch {
	if len(candles) < 30 {
		return nil
	}

	window := candles[len(candles)-30:]
	n := len(window)

	// Cup spans the first ~80% of the window; the handle the rest.
	cupEnd := n * 4 / 5
	leftRim := window[0].High
	rightRim := window[cupEnd-1].High

	if math.Abs(leftRim-rightRim)/leftRim > 0.05 {
		return nil
	}

	bottom := leftRim
	for i := 1; i < cupEnd-1; i++ {
		if window[i].Low < bottom {
			bottom = window[i].Low
		}
	}
	depth := (leftRim - bottom) / leftRim
	if depth < 0.12 || depth > 0.50 {
		return nil
	}

	handleLow := rightRim
	for i := cupEnd; i < n; i++ {
		if window[i].Low < handleLow {
			handleLow = window[i].Low
		}
	}
	if (rightRim-handleLow)/rightRim >= 0.12 {
		return nil
	}

	target := rightRim * (1 + depth)
	return &models.PatternMatch{
		Family: models.PatternFamilyChart, Name: "Cup and Handle",
		Signal: models.SignalBullish, Confidence: 68, Strength: 0.68,
		Target: &target, Timeframe: timeframe, Length: n,
	}
}

func touchesNear(points []swingPoint, level, tolerance float64) int {
	count := 0
	for _, p := range points {
		if level > 0 && math.Abs(p.price-level)/level <= tolerance {
			count++
		}
	}
	return count
}

func lastIndex(points []swingPoint) int {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].index
}

func firstOf(highs, lows []swingPoint) int {
	first := lastIndex(highs)
	if len(highs) > 0 && highs[0].index < first {
		first = highs[0].index
	}
	if len(lows) > 0 && lows[0].index < first {
		first = lows[0].index
	}
	return first
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
