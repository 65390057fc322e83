package regime

import (
	"math"
	"sort"
	"sync"

	"github.com/Alias1177/MarketPulse/models"
)

// sampleSet is the bounded rolling sample history for one instrument.
type sampleSet struct {
	Volatility []float64 `json:"volatility"` // ATR%
	Trend      []float64 `json:"trend"`      // |price vs MA| %
	Volume     []float64 `json:"volume"`     // volume ratio
}

// thresholdTracker owns per-instrument sample histories and derives
// classification cut points from their empirical percentiles.
type thresholdTracker struct {
	mu            sync.Mutex
	samples       map[string]*sampleSet
	maxSamples    int
	minSamples    int
	confidenceCap float64
}

func newThresholdTracker(maxSamples, minSamples int, confidenceCap float64) *thresholdTracker {
	if maxSamples <= 0 {
		maxSamples = 500
	}
	if minSamples <= 0 {
		minSamples = 20
	}
	if confidenceCap <= 0 {
		confidenceCap = 95
	}
	return &thresholdTracker{
		samples:       make(map[string]*sampleSet),
		maxSamples:    maxSamples,
		minSamples:    minSamples,
		confidenceCap: confidenceCap,
	}
}

// observe appends the latest readings, evicting oldest first.
func (t *thresholdTracker) observe(symbol string, volatility, trend, volume float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.samples[symbol]
	if !ok {
		s = &sampleSet{}
		t.samples[symbol] = s
	}

	s.Volatility = appendBounded(s.Volatility, volatility, t.maxSamples)
	s.Trend = appendBounded(s.Trend, math.Abs(trend), t.maxSamples)
	s.Volume = appendBounded(s.Volume, volume, t.maxSamples)
}

func appendBounded(s []float64, v float64, max int) []float64 {
	s = append(s, v)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

// thresholds derives per-instrument cut points. With fewer than minSamples
// observations it falls back to fixed conventional cuts; once enough history
// exists the cuts come from the instrument's own empirical percentile
// distribution.
func (t *thresholdTracker) thresholds(symbol string) models.AdaptiveThresholds {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.samples[symbol]
	n := 0
	if s != nil {
		n = len(s.Volatility)
	}

	th := models.AdaptiveThresholds{
		SampleCount: n,
		Confidence:  t.confidence(n),
	}

	if s == nil || n < t.minSamples {
		return conventionalDefaults(th)
	}

	th.Adaptive = true
	th.VolatilityTiers = percentiles(s.Volatility, []float64{0.10, 0.30, 0.50, 0.70, 0.90, 0.98})

	trendCuts := percentiles(s.Trend, []float64{0.50, 0.85})
	th.TrendWeak = trendCuts[0]
	th.TrendStrong = trendCuts[1]

	volumeCuts := percentiles(s.Volume, []float64{0.30, 0.70})
	th.VolumeLow = volumeCuts[0]
	th.VolumeHigh = volumeCuts[1]

	th.RSIOversold = 30
	th.RSIOverbought = 70
	return th
}

// conventionalDefaults are the fixed cold-start cut points used until an
// instrument accrues enough history for empirical percentiles. Anchored on
// typical intraday scales, independent of the reading being classified.
func conventionalDefaults(th models.AdaptiveThresholds) models.AdaptiveThresholds {
	th.VolatilityTiers = []float64{0.3, 0.6, 1.0, 1.6, 2.5, 4.0} // ATR%
	th.TrendWeak = 0.5
	th.TrendStrong = 2.0
	th.VolumeLow = 0.7
	th.VolumeHigh = 1.5
	th.RSIOversold = 30
	th.RSIOverbought = 70
	return th
}

// confidence rises linearly with sample count up to the cap; monotone
// non-decreasing by construction.
func (t *thresholdTracker) confidence(n int) float64 {
	c := float64(n) / 200.0 * t.confidenceCap
	if c > t.confidenceCap {
		c = t.confidenceCap
	}
	return c
}

// percentiles returns the requested quantiles of the sample set using
// nearest-rank interpolation.
func percentiles(samples []float64, qs []float64) []float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	out := make([]float64, len(qs))
	for i, q := range qs {
		if len(sorted) == 0 {
			continue
		}
		pos := q * float64(len(sorted)-1)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if hi >= len(sorted) {
			hi = len(sorted) - 1
		}
		frac := pos - float64(lo)
		out[i] = sorted[lo]*(1-frac) + sorted[hi]*frac
	}
	return out
}
