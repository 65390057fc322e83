package indicators

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MarketPulse/models"
)

// Engine computes an IndicatorSnapshot from candle series and an optional
// order-book snapshot. Missing input degrades the snapshot's confidence,
// it never fails a request.
type Engine struct {
	rsiPeriod  int
	macdFast   int
	macdSlow   int
	macdSignal int
	bbPeriod   int
	bbStdDev   float64
	atrPeriod  int

	macd   *macdTracker
	logger zerolog.Logger
}

// Options holds indicator period settings.
type Options struct {
	RSIPeriod        int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
	BBPeriod         int
	BBStdDev         float64
	ATRPeriod        int
}

// NewEngine creates an indicator engine with the given periods, filling
// zero values with conventional defaults.
func NewEngine(opts Options) *Engine {
	if opts.RSIPeriod == 0 {
		opts.RSIPeriod = 14
	}
	if opts.MACDFastPeriod == 0 {
		opts.MACDFastPeriod = 12
	}
	if opts.MACDSlowPeriod == 0 {
		opts.MACDSlowPeriod = 26
	}
	if opts.MACDSignalPeriod == 0 {
		opts.MACDSignalPeriod = 9
	}
	if opts.BBPeriod == 0 {
		opts.BBPeriod = 20
	}
	if opts.BBStdDev == 0 {
		opts.BBStdDev = 2.0
	}
	if opts.ATRPeriod == 0 {
		opts.ATRPeriod = 14
	}

	return &Engine{
		rsiPeriod:  opts.RSIPeriod,
		macdFast:   opts.MACDFastPeriod,
		macdSlow:   opts.MACDSlowPeriod,
		macdSignal: opts.MACDSignalPeriod,
		bbPeriod:   opts.BBPeriod,
		bbStdDev:   opts.BBStdDev,
		atrPeriod:  opts.ATRPeriod,
		macd:       newMACDTracker(),
		logger:     log.With().Str("component", "indicators").Logger(),
	}
}

// Input carries everything the engine may use for one computation. Only
// Candles is required for a non-empty snapshot.
type Input struct {
	Symbol       string
	Candles      []models.Candle // primary timeframe, oldest first
	FineCandles  []models.Candle // optional finer granularity
	CurrentPrice float64
	Volume24h    float64
	OrderBook    *models.OrderBook
}

// Compute derives a full snapshot. Empty candle data yields an all-null
// snapshot at confidence exactly 0.
func (e *Engine) Compute(in Input) *models.IndicatorSnapshot {
	snap := &models.IndicatorSnapshot{
		Symbol:       in.Symbol,
		Timestamp:    time.Now().UTC(),
		CurrentPrice: in.CurrentPrice,
		Volume24h:    in.Volume24h,
		SampleCount:  len(in.Candles),
	}

	if len(in.Candles) == 0 {
		e.logger.Warn().Str("symbol", in.Symbol).Msg("No candle data, returning empty snapshot")
		return snap
	}

	candles := in.Candles
	if snap.CurrentPrice == 0 {
		snap.CurrentPrice = candles[len(candles)-1].Close
	}

	snap.SMA20 = CalculateSMA(candles, 20)
	snap.SMA50 = CalculateSMA(candles, 50)
	snap.EMA12 = CalculateEMA(candles, 12)
	snap.EMA26 = CalculateEMA(candles, 26)
	snap.BBUpper, snap.BBMiddle, snap.BBLower = CalculateBollinger(candles, e.bbPeriod, e.bbStdDev)

	snap.RSI = CalculateRSI(candles, e.rsiPeriod)
	snap.Stochastic = CalculateStochastic(candles, 14)
	snap.OBV = CalculateOBV(candles)
	snap.ATR = CalculateATR(candles, e.atrPeriod)
	if snap.CurrentPrice > 0 {
		snap.ATRPercent = snap.ATR / snap.CurrentPrice * 100
	}

	if snap.SMA20 > 0 {
		snap.TrendSlope = (snap.CurrentPrice - snap.SMA20) / snap.SMA20 * 100
	}
	snap.VolumeRatio = volumeRatio(candles, 20)

	snap.MACD = e.computeMACD(in.Symbol, candles)
	snap.VWAP = CalculateVWAP(candles)
	snap.Profile = CalculateMarketProfile(candles)

	if in.OrderBook != nil {
		delta := cumulativeDelta(in.FineCandles, in.OrderBook)
		snap.CumulativeDelta = &delta
	}

	snap.Support, snap.Resistance, snap.MajorSupport, snap.MajorResistance =
		FindKeyLevels(candles, snap.CurrentPrice, snap.Profile)

	snap.Confidence = e.confidence(snap)
	return snap
}

// cumulativeDelta approximates order flow by walking the fine candle series
// and attributing each candle's volume by direction, then tilting the sum by
// the current top-of-book imbalance.
func cumulativeDelta(fine []models.Candle, book *models.OrderBook) float64 {
	var delta float64
	for i := 1; i < len(fine); i++ {
		if fine[i].Close > fine[i-1].Close {
			delta += fine[i].Volume
		} else if fine[i].Close < fine[i-1].Close {
			delta -= fine[i].Volume
		}
	}
	imbalance := book.Imbalance()
	return delta + imbalance*absTotal(fine)*0.1
}

func absTotal(candles []models.Candle) float64 {
	var sum float64
	for _, c := range candles {
		sum += c.Volume
	}
	return sum
}

// confidence blends sample-count sufficiency with indicator availability.
// More candles and more derivable indicators raise it; it is capped at 100
// and is 0 only for an empty snapshot.
func (e *Engine) confidence(snap *models.IndicatorSnapshot) float64 {
	sufficiency := clamp(float64(snap.SampleCount)/100.0, 0, 1) * 60

	available := 0.0
	total := 5.0
	if snap.MACD != nil {
		available++
	}
	if snap.VWAP != nil {
		available++
	}
	if snap.Profile != nil {
		available++
	}
	if snap.CumulativeDelta != nil {
		available++
	}
	if len(snap.Support) > 0 || len(snap.Resistance) > 0 {
		available++
	}
	availability := available / total * 40

	return clamp(sufficiency+availability, 0, 100)
}
