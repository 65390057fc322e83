package regime

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MarketPulse/models"
)

// Trend direction labels.
const (
	TrendStrongUp   = "strong_up"
	TrendUp         = "up"
	TrendNeutral    = "neutral"
	TrendDown       = "down"
	TrendStrongDown = "strong_down"
)

// Volatility level labels.
const (
	VolVeryLow  = "very_low"
	VolLow      = "low"
	VolNormal   = "normal"
	VolHigh     = "high"
	VolVeryHigh = "very_high"
	VolExtreme  = "extreme"
)

// Momentum state labels.
const (
	MomentumStronglyBullish = "strongly_bullish"
	MomentumBullish         = "bullish"
	MomentumNeutral         = "neutral"
	MomentumBearish         = "bearish"
	MomentumStronglyBearish = "strongly_bearish"
)

const regimeWindow = 50

// Detector classifies trend/volatility/momentum into a composite regime
// using thresholds adapted to each instrument's own rolling history.
type Detector struct {
	thresholds *thresholdTracker

	mu         sync.Mutex
	recent     map[string][]string    // bounded per-instrument regime history
	prevLevels map[string]levelMemory // major levels seen on the prior evaluation

	logger zerolog.Logger
}

// levelMemory keeps the last known major levels per instrument. A pierced
// ceiling re-sorts into the current snapshot's support list, so only the
// remembered level can show the cross.
type levelMemory struct {
	support    float64
	resistance float64
}

// Options holds detector construction settings.
type Options struct {
	HistorySize   int
	MinSamples    int
	ConfidenceCap float64
}

// NewDetector creates a market regime detector.
func NewDetector(opts Options) *Detector {
	return &Detector{
		thresholds: newThresholdTracker(opts.HistorySize, opts.MinSamples, opts.ConfidenceCap),
		recent:     make(map[string][]string),
		prevLevels: make(map[string]levelMemory),
		logger:     log.With().Str("component", "regime").Logger(),
	}
}

// Input carries everything the detector may use. Only Snapshot is required.
type Input struct {
	Symbol         string
	Snapshot       *models.IndicatorSnapshot
	Timeframes     []models.TimeframeTrend
	OrderBook      *models.OrderBook
	SentimentScore *float64
}

// Fallback is the neutral analysis used when no snapshot exists.
func Fallback(symbol string) *models.RegimeAnalysis {
	return &models.RegimeAnalysis{
		Symbol:                symbol,
		Regime:                models.RegimeRanging,
		TrendDirection:        TrendNeutral,
		VolatilityLevel:       VolNormal,
		MomentumState:         MomentumNeutral,
		TransitionProbability: 50,
	}
}

// Analyze classifies the current conditions. Deterministic given fixed input
// and fixed rolling-history state.
func (d *Detector) Analyze(in Input) *models.RegimeAnalysis {
	snap := in.Snapshot
	if snap == nil || snap.SampleCount == 0 {
		return Fallback(in.Symbol)
	}

	d.thresholds.observe(in.Symbol, snap.ATRPercent, snap.TrendSlope, snap.VolumeRatio)
	th := d.thresholds.thresholds(in.Symbol)

	trend := classifyTrend(snap.TrendSlope, snap.VolumeRatio, th)
	volatility := classifyVolatility(snap.ATRPercent, th)
	momentum := classifyMomentum(snap.RSI, trend, th)
	confluence := timeframeConfluence(trend, in.Timeframes)

	prev := d.recallLevels(in.Symbol)
	regime, strength := d.composite(snap, in, prev, trend, volatility, momentum, confluence, th)
	d.rememberLevels(in.Symbol, snap)

	duration, conflict := d.trackRegime(in.Symbol, regime, trend, momentum, snap)
	transition := clampF(10+float64(duration)*1.5+conflict*25, 10, 90)

	analysis := &models.RegimeAnalysis{
		Symbol:                in.Symbol,
		Regime:                regime,
		TrendDirection:        trend,
		VolatilityLevel:       volatility,
		MomentumState:         momentum,
		Strength:              strength,
		Confluence:            confluence,
		TransitionProbability: transition,
		DurationSamples:       duration,
		Thresholds:            th,
	}

	d.logger.Debug().Str("symbol", in.Symbol).Str("regime", regime).
		Str("trend", trend).Str("volatility", volatility).
		Float64("transition", transition).Msg("Regime classified")
	return analysis
}

// classifyTrend maps price-vs-moving-average% to the 5-level direction.
// The strong tier additionally requires volume confirmation.
func classifyTrend(slope, volumeRatio float64, th models.AdaptiveThresholds) string {
	confirmed := volumeRatio >= th.VolumeHigh
	switch {
	case slope >= th.TrendStrong && confirmed:
		return TrendStrongUp
	case slope >= th.TrendWeak:
		return TrendUp
	case slope <= -th.TrendStrong && confirmed:
		return TrendStrongDown
	case slope <= -th.TrendWeak:
		return TrendDown
	default:
		return TrendNeutral
	}
}

// classifyVolatility maps ATR% onto the instrument's percentile tiers.
func classifyVolatility(atrPercent float64, th models.AdaptiveThresholds) string {
	t := th.VolatilityTiers
	if len(t) < 6 {
		return VolNormal
	}
	switch {
	case atrPercent < t[0]:
		return VolVeryLow
	case atrPercent < t[1]:
		return VolLow
	case atrPercent < t[3]:
		return VolNormal
	case atrPercent < t[4]:
		return VolHigh
	case atrPercent < t[5]:
		return VolVeryHigh
	default:
		return VolExtreme
	}
}

// classifyMomentum maps RSI to the 5-level state. The cut points shift
// asymmetrically when the instrument is already trending: an uptrend keeps
// RSI elevated without being overbought, and vice versa.
func classifyMomentum(rsi float64, trend string, th models.AdaptiveThresholds) string {
	overbought := th.RSIOverbought
	oversold := th.RSIOversold
	switch trend {
	case TrendUp, TrendStrongUp:
		overbought += 8
		oversold += 5
	case TrendDown, TrendStrongDown:
		overbought -= 5
		oversold -= 8
	}

	switch {
	case rsi >= overbought:
		return MomentumStronglyBullish
	case rsi >= 55:
		return MomentumBullish
	case rsi <= oversold:
		return MomentumStronglyBearish
	case rsi <= 45:
		return MomentumBearish
	default:
		return MomentumNeutral
	}
}

// timeframeConfluence is the share of supplied timeframes agreeing with the
// primary trend direction, 0-100.
func timeframeConfluence(trend string, timeframes []models.TimeframeTrend) float64 {
	if len(timeframes) == 0 {
		return 0
	}

	dir := "neutral"
	switch trend {
	case TrendUp, TrendStrongUp:
		dir = "up"
	case TrendDown, TrendStrongDown:
		dir = "down"
	}

	agree := 0
	for _, tf := range timeframes {
		if tf.Direction == dir {
			agree++
		}
	}
	return float64(agree) / float64(len(timeframes)) * 100
}

// composite applies the regime precedence:
// breakout/breakdown > extreme volatility > strong trend with momentum
// agreement > ranging with volume skew > plain ranging.
func (d *Detector) composite(snap *models.IndicatorSnapshot, in Input, prev levelMemory, trend, volatility, momentum string, confluence float64, th models.AdaptiveThresholds) (string, float64) {
	elevated := snap.VolumeRatio >= th.VolumeHigh

	// Directional move piercing a remembered major level on elevated volume.
	if elevated && prev.resistance > 0 && snap.CurrentPrice > prev.resistance &&
		(trend == TrendUp || trend == TrendStrongUp) {
		return models.RegimeBreakout, clampF(60+confluence*0.4, 0, 100)
	}
	if elevated && prev.support > 0 && snap.CurrentPrice < prev.support &&
		(trend == TrendDown || trend == TrendStrongDown) {
		return models.RegimeBreakdown, clampF(60+confluence*0.4, 0, 100)
	}

	if volatility == VolExtreme {
		return models.RegimeVolatile, 70
	}

	bullish := (trend == TrendStrongUp || trend == TrendUp) &&
		(momentum == MomentumBullish || momentum == MomentumStronglyBullish)
	bearish := (trend == TrendStrongDown || trend == TrendDown) &&
		(momentum == MomentumBearish || momentum == MomentumStronglyBearish)

	if bullish || bearish {
		strength := 55.0
		if trend == TrendStrongUp || trend == TrendStrongDown {
			strength = 75
		}
		// Optional confirmations raise strength without being required.
		if in.OrderBook != nil {
			imb := in.OrderBook.Imbalance()
			if (bullish && imb > 0.2) || (bearish && imb < -0.2) {
				strength += 10
			}
		}
		if confluence >= 66 {
			strength += 10
		}
		if in.SentimentScore != nil {
			score := *in.SentimentScore
			if (bullish && score > 60) || (bearish && score < 40) {
				strength += 5
			}
			if (bullish && score < 40) || (bearish && score > 60) {
				strength -= 5
			}
		}
		if bullish {
			return models.RegimeBull, clampF(strength, 0, 100)
		}
		return models.RegimeBear, clampF(strength, 0, 100)
	}

	// Ranging with a volume skew reads as quiet position building/unwinding.
	if trend == TrendNeutral && elevated {
		skew := 0.0
		if snap.CumulativeDelta != nil {
			skew = *snap.CumulativeDelta
		} else if in.OrderBook != nil {
			skew = in.OrderBook.Imbalance()
		}
		if skew > 0 {
			return models.RegimeAccumulation, 50
		}
		if skew < 0 {
			return models.RegimeDistribution, 50
		}
	}

	return models.RegimeRanging, 40
}

func (d *Detector) recallLevels(symbol string) levelMemory {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prevLevels[symbol]
}

// rememberLevels records the snapshot's major levels, keeping the last known
// value on each side until a new level forms there.
func (d *Detector) rememberLevels(symbol string, snap *models.IndicatorSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m := d.prevLevels[symbol]
	if snap.MajorSupport != nil {
		m.support = snap.MajorSupport.Price
	}
	if snap.MajorResistance != nil {
		m.resistance = snap.MajorResistance.Price
	}
	d.prevLevels[symbol] = m
}

// trackRegime appends the label to the bounded per-instrument window and
// returns the current run length plus a conflict score in [0, 1].
func (d *Detector) trackRegime(symbol, regime, trend, momentum string, snap *models.IndicatorSnapshot) (int, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := append(d.recent[symbol], regime)
	if len(h) > regimeWindow {
		h = h[len(h)-regimeWindow:]
	}
	d.recent[symbol] = h

	duration := 0
	for i := len(h) - 1; i >= 0 && h[i] == regime; i-- {
		duration++
	}

	conflict := 0.0
	trendUp := trend == TrendUp || trend == TrendStrongUp
	trendDown := trend == TrendDown || trend == TrendStrongDown
	momUp := momentum == MomentumBullish || momentum == MomentumStronglyBullish
	momDown := momentum == MomentumBearish || momentum == MomentumStronglyBearish
	if (trendUp && momDown) || (trendDown && momUp) {
		conflict += 0.5
	}
	if snap.MACD != nil && snap.MACD.Divergence {
		conflict += 0.5
	}
	if conflict > 1 {
		conflict = 1
	}
	return duration, conflict
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
