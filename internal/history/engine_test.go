package history

import (
	"context"
	"testing"
	"time"

	"github.com/Alias1177/MarketPulse/models"
)

func testSnapshot(symbol string) *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Symbol:       symbol,
		Timestamp:    time.Now().UTC(),
		CurrentPrice: 100,
		RSI:          60,
		TrendSlope:   1.2,
		VolumeRatio:  1.0,
		ATRPercent:   1.0,
		SampleCount:  200,
		BBUpper:      105,
		BBMiddle:     100,
		BBLower:      95,
	}
}

func TestFingerprintSelfSimilarity(t *testing.T) {
	fp := Encode(testSnapshot("BTCUSDT"))
	if got := fp.Similarity(fp); got != 1.0 {
		t.Errorf("Similarity(self) = %v, want 1.0", got)
	}
}

func TestEncodeBuckets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.IndicatorSnapshot)
		check  func(models.HistoricalFingerprint) bool
	}{
		{
			name:   "oversold rsi",
			mutate: func(s *models.IndicatorSnapshot) { s.RSI = 20 },
			check:  func(fp models.HistoricalFingerprint) bool { return fp.RSIBucket == "oversold" },
		},
		{
			name:   "climax volume",
			mutate: func(s *models.IndicatorSnapshot) { s.VolumeRatio = 3.0 },
			check:  func(fp models.HistoricalFingerprint) bool { return fp.VolumeBucket == "climax" },
		},
		{
			name:   "price above bands",
			mutate: func(s *models.IndicatorSnapshot) { s.CurrentPrice = 110 },
			check:  func(fp models.HistoricalFingerprint) bool { return fp.PricePosition == "above_value" },
		},
		{
			name: "price in value area",
			mutate: func(s *models.IndicatorSnapshot) {
				s.Profile = &models.MarketProfile{PointOfControl: 100, ValueAreaHigh: 103, ValueAreaLow: 97}
			},
			check: func(fp models.HistoricalFingerprint) bool { return fp.PricePosition == "in_value" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot("BTCUSDT")
			tt.mutate(snap)
			if fp := Encode(snap); !tt.check(fp) {
				t.Errorf("Encode() = %+v failed check", fp)
			}
		})
	}
}

func TestFallback(t *testing.T) {
	fb := Fallback("BTCUSDT")
	if fb.SuccessProbability != 0.5 {
		t.Errorf("SuccessProbability = %v, want 0.5", fb.SuccessProbability)
	}
	if fb.QualityScore != 25 {
		t.Errorf("QualityScore = %v, want 25", fb.QualityScore)
	}
	if fb.VolatilityRegime != "unknown" {
		t.Errorf("VolatilityRegime = %q, want unknown", fb.VolatilityRegime)
	}
}

func TestGetHistoricalContextNilSnapshot(t *testing.T) {
	engine := NewEngine(Options{})
	got := engine.GetHistoricalContext(context.Background(), "BTCUSDT", nil, nil, nil)

	if got.SuccessProbability != 0.5 || got.QualityScore != 25 {
		t.Errorf("nil snapshot context = %+v, want the neutral fallback", got)
	}
}

func TestGetHistoricalContextBounds(t *testing.T) {
	engine := NewEngine(Options{})
	ctx := context.Background()

	// Repeated visits grow the buffer; invariants must hold on every pass.
	for i := 0; i < 30; i++ {
		snap := testSnapshot("BTCUSDT")
		snap.CurrentPrice = 100 + float64(i)
		hc := engine.GetHistoricalContext(ctx, "BTCUSDT", snap, nil, nil)

		if hc.SuccessProbability < 0.1 || hc.SuccessProbability > 0.9 {
			t.Fatalf("SuccessProbability = %v, want within [0.1, 0.9]", hc.SuccessProbability)
		}
		if hc.QualityScore < 0 || hc.QualityScore > 100 {
			t.Fatalf("QualityScore = %v, want within [0, 100]", hc.QualityScore)
		}
	}

	if depth := engine.store.Depth("BTCUSDT"); depth != 30 {
		t.Errorf("store depth = %d, want 30", depth)
	}
}

func TestStoreOutcomeBackfill(t *testing.T) {
	store := NewStore(100, time.Hour)
	fp := Encode(testSnapshot("BTCUSDT"))

	store.Append(fp, 100, 1.0)
	store.Append(fp, 110, 1.0)

	records := store.Records("BTCUSDT")
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Fingerprint.OutcomePct == nil {
		t.Fatal("first record outcome not backfilled")
	}
	if got := *records[0].Fingerprint.OutcomePct; got != 10 {
		t.Errorf("outcome = %v, want 10", got)
	}
	if records[1].Fingerprint.OutcomePct != nil {
		t.Error("latest record must not have an outcome yet")
	}
}

func TestStoreEvictionByCount(t *testing.T) {
	store := NewStore(5, time.Hour)
	fp := Encode(testSnapshot("BTCUSDT"))

	for i := 0; i < 10; i++ {
		store.Append(fp, 100, 1.0)
	}
	if depth := store.Depth("BTCUSDT"); depth != 5 {
		t.Errorf("depth = %d, want 5 after eviction", depth)
	}
}

func TestPatternStatNeutralPrior(t *testing.T) {
	store := NewStore(0, 0)
	stat := store.PatternStat("BTCUSDT", "Double Top")

	if stat.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want neutral prior 0.5", stat.SuccessRate)
	}
	if stat.Occurrences != 0 {
		t.Errorf("Occurrences = %v, want 0", stat.Occurrences)
	}
}

func TestTagRegime(t *testing.T) {
	store := NewStore(0, 0)
	fp := Encode(testSnapshot("BTCUSDT"))
	store.Append(fp, 100, 1.0)

	store.TagRegime("BTCUSDT", models.RegimeBull)

	records := store.Records("BTCUSDT")
	if records[0].Fingerprint.Regime != models.RegimeBull {
		t.Errorf("Regime = %q, want bull", records[0].Fingerprint.Regime)
	}
}

func TestVolatilityRegimeClassification(t *testing.T) {
	samples := make([]float64, 50)
	for i := range samples {
		samples[i] = 1.0 + float64(i)*0.02 // 1.0 .. 1.98
	}

	tests := []struct {
		name    string
		current float64
		want    string
	}{
		{"compressed", 0.9, "compressed"},
		{"normal", 1.4, "normal"},
		{"expanding", 1.8, "expanding"},
		{"extreme", 2.5, "extreme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := volatilityRegime(tt.current, samples); got != tt.want {
				t.Errorf("volatilityRegime(%v) = %q, want %q", tt.current, got, tt.want)
			}
		})
	}

	if got := volatilityRegime(1.0, samples[:5]); got != "unknown" {
		t.Errorf("volatilityRegime() with 5 samples = %q, want unknown", got)
	}
}
