package indicators

import (
	"sync"

	"github.com/Alias1177/MarketPulse/models"
)

const macdHistorySize = 100

// macdTracker keeps a bounded rolling history of the fast/slow EMA spread per
// instrument so the signal line is a true EMA of MACD values rather than a
// one-sample approximation.
type macdTracker struct {
	mu      sync.Mutex
	history map[string][]float64
}

func newMACDTracker() *macdTracker {
	return &macdTracker{history: make(map[string][]float64)}
}

// update appends the latest spread and returns a copy of the instrument's
// rolling MACD series.
func (t *macdTracker) update(symbol string, spread float64) []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := append(t.history[symbol], spread)
	if len(h) > macdHistorySize {
		h = h[len(h)-macdHistorySize:]
	}
	t.history[symbol] = h

	out := make([]float64, len(h))
	copy(out, h)
	return out
}

// computeMACD returns the MACD triple for symbol, with the divergence flag
// raised when recent price direction disagrees with the histogram sign.
func (e *Engine) computeMACD(symbol string, candles []models.Candle) *models.MACDLines {
	if len(candles) < e.macdSlow {
		return nil
	}

	fast := CalculateEMA(candles, e.macdFast)
	slow := CalculateEMA(candles, e.macdSlow)
	spread := fast - slow

	series := e.macd.update(symbol, spread)
	signal := emaOver(series, e.macdSignal)
	histogram := spread - signal

	lines := &models.MACDLines{
		MACD:      spread,
		Signal:    signal,
		Histogram: histogram,
	}

	// Divergence: the last few closes move against the histogram sign.
	if len(candles) >= 4 {
		priceDelta := candles[len(candles)-1].Close - candles[len(candles)-4].Close
		if (priceDelta > 0 && histogram < 0) || (priceDelta < 0 && histogram > 0) {
			lines.Divergence = true
		}
	}

	return lines
}
