package patterns

import (
	"testing"

	"github.com/Alias1177/MarketPulse/models"
)

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
	}
	return candles
}

// flatBase candles carry tiny bodies so no candlestick formation fires and
// only the deliberately placed swing points shape the chart geometry.
func flatBase(i int) models.Candle {
	return models.Candle{Open: 109.2, High: 109.5, Low: 109, Close: 109.2, Volume: 1000}
}

func TestDetectAscendingTriangle(t *testing.T) {
	candles := generateTestCandles(40, func(i int) models.Candle {
		c := flatBase(i)
		switch i {
		case 5, 15, 25, 35: // flat resistance touches
			c.High = 110
		case 10:
			c.Low = 107
		case 20:
			c.Low = 107.8
		case 30:
			c.Low = 108.6
		}
		return c
	})

	matches := detectChart(candles, 109.2, "5m")

	if len(matches) != 1 {
		t.Fatalf("detectChart() returned %d matches, want 1: %+v", len(matches), matches)
	}
	m := matches[0]
	if m.Name != "Ascending Triangle" {
		t.Errorf("Name = %q, want Ascending Triangle", m.Name)
	}
	if m.Signal != models.SignalBullish {
		t.Errorf("Signal = %q, want bullish", m.Signal)
	}
	if m.Family != models.PatternFamilyChart {
		t.Errorf("Family = %q, want chart", m.Family)
	}
}

func TestDetectDoubleTop(t *testing.T) {
	candles := generateTestCandles(30, func(i int) models.Candle {
		c := models.Candle{Open: 100, High: 100, Low: 99.5, Close: 100, Volume: 1000}
		switch i {
		case 10, 20: // two equal peaks
			c.High = 110
		case 15: // deep valley between them
			c.Low = 98
		}
		return c
	})

	matches := detectChart(candles, 100, "5m")

	if len(matches) != 1 {
		t.Fatalf("detectChart() returned %d matches, want 1: %+v", len(matches), matches)
	}
	m := matches[0]
	if m.Name != "Double Top" {
		t.Errorf("Name = %q, want Double Top", m.Name)
	}
	if m.Signal != models.SignalBearish {
		t.Errorf("Signal = %q, want bearish", m.Signal)
	}
	if m.Target == nil || *m.Target != 98 {
		t.Errorf("Target = %v, want valley low 98", m.Target)
	}
}

func TestDetectChartInsufficientData(t *testing.T) {
	if got := detectChart(generateTestCandles(10, flatBase), 109.2, "5m"); got != nil {
		t.Errorf("detectChart() with 10 candles = %+v, want nil", got)
	}
}

func TestDetectCandlestick(t *testing.T) {
	tests := []struct {
		name    string
		candles []models.Candle
		want    string
		signal  string
	}{
		{
			name: "bullish engulfing",
			candles: []models.Candle{
				{Open: 103, High: 103.1, Low: 101.9, Close: 102},
				{Open: 102, High: 103.1, Low: 101.9, Close: 103},
				{Open: 102, High: 102.1, Low: 100.9, Close: 101},
				{Open: 101, High: 101.1, Low: 99.9, Close: 100},
				{Open: 99.5, High: 101.6, Low: 99.4, Close: 101.5},
			},
			want:   "Bullish Engulfing",
			signal: models.SignalBullish,
		},
		{
			name: "hammer",
			candles: []models.Candle{
				{Open: 101, High: 101.1, Low: 99.9, Close: 100},
				{Open: 100, High: 101.1, Low: 99.9, Close: 101},
				{Open: 101, High: 101.1, Low: 99.9, Close: 100},
				{Open: 100, High: 101.1, Low: 99.9, Close: 101},
				{Open: 100, High: 100.35, Low: 99, Close: 100.3},
			},
			want:   "Hammer",
			signal: models.SignalBullish,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := detectCandlestick(tt.candles, "5m")
			found := false
			for _, m := range matches {
				if m.Name == tt.want {
					found = true
					if m.Signal != tt.signal {
						t.Errorf("Signal = %q, want %q", m.Signal, tt.signal)
					}
				}
			}
			if !found {
				t.Errorf("detectCandlestick() = %+v, want %q present", matches, tt.want)
			}
		})
	}
}

func TestAnalyzeFusesTimeframes(t *testing.T) {
	engine := NewEngine()

	byTimeframe := map[string][]models.Candle{
		"5m": generateTestCandles(30, func(i int) models.Candle {
			c := models.Candle{Open: 100, High: 100, Low: 99.5, Close: 100, Volume: 1000}
			switch i {
			case 10, 20:
				c.High = 110
			case 15:
				c.Low = 98
			}
			return c
		}),
	}

	analysis := engine.Analyze("BTCUSDT", byTimeframe, 100)

	if analysis.DominantSignal != models.SignalBearish {
		t.Errorf("DominantSignal = %q, want bearish", analysis.DominantSignal)
	}
	if analysis.Confluence != 100 {
		t.Errorf("Confluence = %v, want 100 with a single agreeing match", analysis.Confluence)
	}
}

func TestAnalyzeEmptyIsNeutral(t *testing.T) {
	engine := NewEngine()
	analysis := engine.Analyze("BTCUSDT", map[string][]models.Candle{}, 0)

	if analysis.DominantSignal != models.SignalNeutral {
		t.Errorf("DominantSignal = %q, want neutral", analysis.DominantSignal)
	}
	if analysis.Confluence != 0 {
		t.Errorf("Confluence = %v, want 0", analysis.Confluence)
	}
	if len(analysis.Matches) != 0 {
		t.Errorf("Matches = %+v, want empty", analysis.Matches)
	}
}
