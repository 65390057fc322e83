package indicators

import (
	"testing"
	"time"

	"github.com/Alias1177/MarketPulse/models"
)

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
	}
	return candles
}

func risingCandles(n int) []models.Candle {
	return generateTestCandles(n, func(i int) models.Candle {
		base := 100 + float64(i)
		return models.Candle{
			Timestamp: time.Now().Add(time.Duration(i-n) * 5 * time.Minute),
			Open:      base - 0.5,
			High:      base + 1,
			Low:       base - 1,
			Close:     base,
			Volume:    1000,
		}
	})
}

func TestComputeEmptyCandles(t *testing.T) {
	engine := NewEngine(Options{})
	snap := engine.Compute(Input{Symbol: "BTCUSDT"})

	if snap == nil {
		t.Fatal("Compute() returned nil for empty input")
	}
	if snap.Confidence != 0 {
		t.Errorf("Confidence = %v, want exactly 0 for empty candles", snap.Confidence)
	}
	if snap.SampleCount != 0 {
		t.Errorf("SampleCount = %v, want 0", snap.SampleCount)
	}
	if snap.MACD != nil || snap.VWAP != nil || snap.Profile != nil || snap.CumulativeDelta != nil {
		t.Error("optional sub-structs must be nil for empty candles")
	}
	if snap.Support != nil || snap.Resistance != nil {
		t.Error("levels must be absent for empty candles")
	}
}

func TestComputeRisingMarket(t *testing.T) {
	engine := NewEngine(Options{})
	candles := risingCandles(100)

	snap := engine.Compute(Input{Symbol: "BTCUSDT", Candles: candles})

	if snap.RSI <= 50 {
		t.Errorf("RSI = %v, want > 50 in a steadily rising market", snap.RSI)
	}
	if snap.TrendSlope <= 0 {
		t.Errorf("TrendSlope = %v, want positive", snap.TrendSlope)
	}
	if snap.ATR <= 0 {
		t.Errorf("ATR = %v, want positive", snap.ATR)
	}
	if snap.BBUpper < snap.BBMiddle || snap.BBMiddle < snap.BBLower {
		t.Errorf("Bollinger ordering broken: %v / %v / %v",
			snap.BBUpper, snap.BBMiddle, snap.BBLower)
	}
	if snap.CurrentPrice != candles[len(candles)-1].Close {
		t.Errorf("CurrentPrice = %v, want last close %v",
			snap.CurrentPrice, candles[len(candles)-1].Close)
	}
	if snap.Confidence <= 50 {
		t.Errorf("Confidence = %v, want > 50 with 100 candles and full indicators", snap.Confidence)
	}
	if snap.MACD == nil {
		t.Error("MACD should be available with 100 candles")
	}
	if snap.VWAP == nil {
		t.Error("VWAP should be available with volume present")
	}
	if snap.Profile == nil {
		t.Error("Profile should be available with 100 candles")
	}
}

func TestComputeOrderBookDelta(t *testing.T) {
	engine := NewEngine(Options{})
	book := &models.OrderBook{
		Bids: []models.OrderBookLevel{{Price: 99, Size: 10}},
		Asks: []models.OrderBookLevel{{Price: 101, Size: 2}},
	}

	snap := engine.Compute(Input{
		Symbol:    "BTCUSDT",
		Candles:   risingCandles(50),
		OrderBook: book,
	})

	if snap.CumulativeDelta == nil {
		t.Fatal("CumulativeDelta must be set when an order book is supplied")
	}
}

func TestCalculateRSI(t *testing.T) {
	tests := []struct {
		name    string
		candles []models.Candle
		period  int
		check   func(float64) bool
	}{
		{
			name:    "insufficient data is neutral",
			candles: risingCandles(5),
			period:  14,
			check:   func(v float64) bool { return v == 50 },
		},
		{
			name:    "all gains saturate",
			candles: risingCandles(30),
			period:  14,
			check:   func(v float64) bool { return v == 100 },
		},
		{
			name: "all losses floor",
			candles: generateTestCandles(30, func(i int) models.Candle {
				base := 200 - float64(i)
				return models.Candle{Open: base + 0.5, High: base + 1, Low: base - 1, Close: base, Volume: 1000}
			}),
			period: 14,
			check:  func(v float64) bool { return v < 10 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRSI(tt.candles, tt.period)
			if !tt.check(got) {
				t.Errorf("CalculateRSI() = %v failed check", got)
			}
		})
	}
}

func TestCalculateSMA(t *testing.T) {
	candles := generateTestCandles(10, func(i int) models.Candle {
		return models.Candle{Close: float64(i + 1)}
	})

	// Mean of 6..10 is 8.
	if got := CalculateSMA(candles, 5); got != 8 {
		t.Errorf("CalculateSMA() = %v, want 8", got)
	}
}

func TestCalculateATRPositive(t *testing.T) {
	if got := CalculateATR(risingCandles(30), 14); got <= 0 {
		t.Errorf("CalculateATR() = %v, want positive", got)
	}
}
