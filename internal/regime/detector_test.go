package regime

import (
	"testing"
	"time"

	"github.com/Alias1177/MarketPulse/models"
)

func strongBullSnapshot() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Symbol:       "BTCUSDT",
		Timestamp:    time.Now().UTC(),
		CurrentPrice: 100,
		RSI:          78,
		TrendSlope:   3.0,
		VolumeRatio:  2.5,
		ATRPercent:   1.0,
		SampleCount:  200,
	}
}

func TestAnalyzeFallback(t *testing.T) {
	d := NewDetector(Options{})

	tests := []struct {
		name string
		in   Input
	}{
		{"nil snapshot", Input{Symbol: "BTCUSDT"}},
		{"empty snapshot", Input{Symbol: "BTCUSDT", Snapshot: &models.IndicatorSnapshot{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Analyze(tt.in)
			if got.Regime != models.RegimeRanging {
				t.Errorf("Regime = %q, want ranging", got.Regime)
			}
			if got.TrendDirection != TrendNeutral {
				t.Errorf("TrendDirection = %q, want neutral", got.TrendDirection)
			}
			if got.TransitionProbability != 50 {
				t.Errorf("TransitionProbability = %v, want 50", got.TransitionProbability)
			}
		})
	}
}

func TestAnalyzeBullMarket(t *testing.T) {
	d := NewDetector(Options{})
	got := d.Analyze(Input{Symbol: "BTCUSDT", Snapshot: strongBullSnapshot()})

	if got.Regime != models.RegimeBull && got.Regime != models.RegimeBreakout {
		t.Errorf("Regime = %q, want bull or breakout", got.Regime)
	}
	// Cold-start cuts must read 2.5x volume as confirmation.
	if got.TrendDirection != TrendStrongUp {
		t.Errorf("TrendDirection = %q, want strong_up", got.TrendDirection)
	}
	if got.Strength < 55 {
		t.Errorf("Strength = %v, want >= 55", got.Strength)
	}
	if got.TransitionProbability < 10 || got.TransitionProbability > 90 {
		t.Errorf("TransitionProbability = %v, want within [10, 90]", got.TransitionProbability)
	}
}

func rangingSnapshot(price float64, resistance, support *models.PriceLevel) *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Symbol:          "BTCUSDT",
		Timestamp:       time.Now().UTC(),
		CurrentPrice:    price,
		RSI:             52,
		TrendSlope:      0.1,
		VolumeRatio:     1.0,
		ATRPercent:      1.0,
		SampleCount:     100,
		MajorResistance: resistance,
		MajorSupport:    support,
	}
}

func TestAnalyzeBreakout(t *testing.T) {
	d := NewDetector(Options{MinSamples: 5})

	// Range under a hard ceiling so the detector remembers it.
	ceiling := &models.PriceLevel{Price: 100, Strength: 80, Touches: 4, Source: "swing"}
	for i := 0; i < 30; i++ {
		d.Analyze(Input{Symbol: "BTCUSDT", Snapshot: rangingSnapshot(99, ceiling, nil)})
	}

	// Thrust through the ceiling on elevated volume. The snapshot no longer
	// carries the pierced level as resistance; the cross is detected against
	// the remembered one.
	got := d.Analyze(Input{Symbol: "BTCUSDT", Snapshot: &models.IndicatorSnapshot{
		Symbol:       "BTCUSDT",
		Timestamp:    time.Now().UTC(),
		CurrentPrice: 103.6,
		RSI:          72,
		TrendSlope:   3.5,
		VolumeRatio:  3.0,
		ATRPercent:   1.2,
		SampleCount:  100,
	}})

	if got.Regime != models.RegimeBreakout {
		t.Errorf("Regime = %q, want breakout after piercing resistance on volume", got.Regime)
	}
	if got.Strength < 60 {
		t.Errorf("Strength = %v, want >= 60", got.Strength)
	}
}

func TestAnalyzeBreakdown(t *testing.T) {
	d := NewDetector(Options{MinSamples: 5})

	floor := &models.PriceLevel{Price: 100, Strength: 80, Touches: 4, Source: "swing"}
	for i := 0; i < 30; i++ {
		d.Analyze(Input{Symbol: "BTCUSDT", Snapshot: rangingSnapshot(101, nil, floor)})
	}

	got := d.Analyze(Input{Symbol: "BTCUSDT", Snapshot: &models.IndicatorSnapshot{
		Symbol:       "BTCUSDT",
		Timestamp:    time.Now().UTC(),
		CurrentPrice: 96.4,
		RSI:          28,
		TrendSlope:   -3.5,
		VolumeRatio:  3.0,
		ATRPercent:   1.2,
		SampleCount:  100,
	}})

	if got.Regime != models.RegimeBreakdown {
		t.Errorf("Regime = %q, want breakdown after piercing support on volume", got.Regime)
	}
}

func TestSentimentAdjustsStrength(t *testing.T) {
	agree, oppose := 75.0, 20.0

	plain := NewDetector(Options{}).Analyze(Input{Symbol: "BTCUSDT", Snapshot: strongBullSnapshot()})
	withAgree := NewDetector(Options{}).Analyze(Input{
		Symbol: "BTCUSDT", Snapshot: strongBullSnapshot(), SentimentScore: &agree,
	})
	withOppose := NewDetector(Options{}).Analyze(Input{
		Symbol: "BTCUSDT", Snapshot: strongBullSnapshot(), SentimentScore: &oppose,
	})

	if withAgree.Strength <= plain.Strength {
		t.Errorf("agreeing sentiment: Strength = %v, want > %v", withAgree.Strength, plain.Strength)
	}
	if withOppose.Strength >= plain.Strength {
		t.Errorf("opposing sentiment: Strength = %v, want < %v", withOppose.Strength, plain.Strength)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := NewDetector(Options{})
	b := NewDetector(Options{})
	in := Input{Symbol: "BTCUSDT", Snapshot: strongBullSnapshot()}

	got1 := a.Analyze(in)
	got2 := b.Analyze(in)

	if got1.Regime != got2.Regime || got1.TrendDirection != got2.TrendDirection ||
		got1.Strength != got2.Strength || got1.TransitionProbability != got2.TransitionProbability {
		t.Errorf("Analyze() diverged across identical detectors: %+v vs %+v", got1, got2)
	}
}

func TestTimeframeConfluence(t *testing.T) {
	timeframes := []models.TimeframeTrend{
		{Timeframe: "15m", Direction: "up"},
		{Timeframe: "1h", Direction: "up"},
		{Timeframe: "4h", Direction: "down"},
	}

	got := timeframeConfluence(TrendUp, timeframes)
	want := 2.0 / 3.0 * 100
	if got != want {
		t.Errorf("timeframeConfluence() = %v, want %v", got, want)
	}

	if got := timeframeConfluence(TrendUp, nil); got != 0 {
		t.Errorf("timeframeConfluence() with no timeframes = %v, want 0", got)
	}
}

func TestThresholdConfidenceMonotone(t *testing.T) {
	tracker := newThresholdTracker(500, 20, 95)

	prev := -1.0
	for n := 0; n <= 250; n++ {
		c := tracker.confidence(n)
		if c < prev {
			t.Fatalf("confidence(%d) = %v dropped below %v", n, c, prev)
		}
		prev = c
	}
	if got := tracker.confidence(200); got != 95 {
		t.Errorf("confidence(200) = %v, want the cap 95", got)
	}
	if got := tracker.confidence(1000); got != 95 {
		t.Errorf("confidence(1000) = %v, want capped at 95", got)
	}
}

func TestThresholdsColdStart(t *testing.T) {
	tracker := newThresholdTracker(500, 20, 95)
	th := tracker.thresholds("BTCUSDT")

	if th.Adaptive {
		t.Error("thresholds must not be adaptive without samples")
	}
	if len(th.VolatilityTiers) != 6 {
		t.Fatalf("VolatilityTiers = %d entries, want 6", len(th.VolatilityTiers))
	}
	for i := 1; i < len(th.VolatilityTiers); i++ {
		if th.VolatilityTiers[i] < th.VolatilityTiers[i-1] {
			t.Errorf("tiers not non-decreasing: %v", th.VolatilityTiers)
		}
	}
	// Fixed conventional cuts: the defaults must not move with the sample
	// being classified, and a conventional 1.5x ratio counts as elevated.
	if th.VolumeHigh != 1.5 {
		t.Errorf("VolumeHigh = %v, want 1.5", th.VolumeHigh)
	}
	if th.TrendStrong != 2.0 {
		t.Errorf("TrendStrong = %v, want 2.0", th.TrendStrong)
	}

	tracker.observe("BTCUSDT", 9.0, 9.0, 9.0)
	again := tracker.thresholds("BTCUSDT")
	if again.VolumeHigh != th.VolumeHigh || again.VolatilityTiers[2] != th.VolatilityTiers[2] {
		t.Error("cold-start cuts shifted with the incoming reading")
	}
}

func TestThresholdsAdaptive(t *testing.T) {
	tracker := newThresholdTracker(500, 20, 95)

	for i := 0; i < 100; i++ {
		vol := 0.5 + float64(i)*0.02
		tracker.observe("BTCUSDT", vol, float64(i%5), 1.0+float64(i%10)*0.1)
	}

	th := tracker.thresholds("BTCUSDT")

	if !th.Adaptive {
		t.Fatal("thresholds must be adaptive after 100 samples")
	}
	if th.SampleCount != 100 {
		t.Errorf("SampleCount = %d, want 100", th.SampleCount)
	}
	for i := 1; i < len(th.VolatilityTiers); i++ {
		if th.VolatilityTiers[i] < th.VolatilityTiers[i-1] {
			t.Errorf("tiers not non-decreasing: %v", th.VolatilityTiers)
		}
	}
	if th.TrendWeak > th.TrendStrong {
		t.Errorf("TrendWeak %v > TrendStrong %v", th.TrendWeak, th.TrendStrong)
	}
	if th.VolumeLow > th.VolumeHigh {
		t.Errorf("VolumeLow %v > VolumeHigh %v", th.VolumeLow, th.VolumeHigh)
	}
	if th.Confidence <= 0 || th.Confidence > 95 {
		t.Errorf("Confidence = %v, want in (0, 95]", th.Confidence)
	}
}

func TestPercentiles(t *testing.T) {
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i + 1)
	}

	got := percentiles(samples, []float64{0, 0.5, 1})
	if got[0] != 1 {
		t.Errorf("p0 = %v, want 1", got[0])
	}
	if got[1] != 50.5 {
		t.Errorf("p50 = %v, want 50.5", got[1])
	}
	if got[2] != 100 {
		t.Errorf("p100 = %v, want 100", got[2])
	}
}

func TestClassifyVolatility(t *testing.T) {
	th := models.AdaptiveThresholds{VolatilityTiers: []float64{0.4, 0.7, 1.0, 1.4, 2.0, 3.0}}

	tests := []struct {
		atr  float64
		want string
	}{
		{0.3, VolVeryLow},
		{0.5, VolLow},
		{1.0, VolNormal},
		{1.5, VolHigh},
		{2.5, VolVeryHigh},
		{3.5, VolExtreme},
	}

	for _, tt := range tests {
		if got := classifyVolatility(tt.atr, th); got != tt.want {
			t.Errorf("classifyVolatility(%v) = %q, want %q", tt.atr, got, tt.want)
		}
	}
}
