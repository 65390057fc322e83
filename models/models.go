package models

import (
	"encoding/json"
	"time"
)

// Candle represents a single OHLCV price candle. Candles are ordered
// oldest-first within a timeframe and never mutated after ingestion.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// OrderBookLevel is one price level of an order book side.
type OrderBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook holds the top-N levels of both sides, best price first.
type OrderBook struct {
	Bids []OrderBookLevel `json:"bids"`
	Asks []OrderBookLevel `json:"asks"`
}

// Imbalance returns the bid/ask volume imbalance in [-1, 1].
// Positive values mean more resting bid volume than ask volume.
func (ob *OrderBook) Imbalance() float64 {
	var bid, ask float64
	for _, l := range ob.Bids {
		bid += l.Size
	}
	for _, l := range ob.Asks {
		ask += l.Size
	}
	if bid+ask == 0 {
		return 0
	}
	return (bid - ask) / (bid + ask)
}

// MACDLines is the MACD triple plus a divergence flag. The signal line is a
// true EMA over the rolling per-instrument MACD history, not a one-sample
// approximation.
type MACDLines struct {
	MACD       float64 `json:"macd"`
	Signal     float64 `json:"signal"`
	Histogram  float64 `json:"histogram"`
	Divergence bool    `json:"divergence"`
}

// VWAPBands is the volume-weighted average price with a volume-weighted
// deviation band around it.
type VWAPBands struct {
	Value float64 `json:"value"`
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// MarketProfile is the simplified volume profile triple.
type MarketProfile struct {
	PointOfControl float64 `json:"point_of_control"`
	ValueAreaHigh  float64 `json:"value_area_high"`
	ValueAreaLow   float64 `json:"value_area_low"`
}

// PriceLevel is one support/resistance level with a relative strength rank.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Strength float64 `json:"strength"` // 0-100
	Touches  int     `json:"touches"`
	Source   string  `json:"source"` // swing, profile, volume
}

// IndicatorSnapshot holds all technical metrics computed for one request.
// Optional sub-structs are nil when their inputs were unavailable; Confidence
// is exactly 0 when no candle data was supplied.
type IndicatorSnapshot struct {
	Symbol       string    `json:"symbol"`
	Timestamp    time.Time `json:"timestamp"`
	CurrentPrice float64   `json:"current_price"`
	Volume24h    float64   `json:"volume_24h"`

	SMA20    float64 `json:"sma_20"`
	SMA50    float64 `json:"sma_50"`
	EMA12    float64 `json:"ema_12"`
	EMA26    float64 `json:"ema_26"`
	BBUpper  float64 `json:"bb_upper"`
	BBMiddle float64 `json:"bb_middle"`
	BBLower  float64 `json:"bb_lower"`

	RSI        float64 `json:"rsi"`
	Stochastic float64 `json:"stochastic"`
	OBV        float64 `json:"obv"`
	ATR        float64 `json:"atr"`
	ATRPercent float64 `json:"atr_percent"` // ATR relative to price, in %

	// TrendSlope is the percentage distance of price from SMA20, the primary
	// trend-strength reading consumed by the regime detector.
	TrendSlope  float64 `json:"trend_slope"`
	VolumeRatio float64 `json:"volume_ratio"` // last volume vs rolling average

	MACD    *MACDLines     `json:"macd,omitempty"`
	VWAP    *VWAPBands     `json:"vwap,omitempty"`
	Profile *MarketProfile `json:"profile,omitempty"`

	// CumulativeDelta approximates order flow from top-of-book imbalance.
	// Nil when no order book was supplied.
	CumulativeDelta *float64 `json:"cumulative_delta,omitempty"`

	Support         []PriceLevel `json:"support,omitempty"`
	Resistance      []PriceLevel `json:"resistance,omitempty"`
	MajorSupport    *PriceLevel  `json:"major_support,omitempty"`
	MajorResistance *PriceLevel  `json:"major_resistance,omitempty"`

	SampleCount int     `json:"sample_count"`
	Confidence  float64 `json:"confidence"` // 0-100
}

// Pattern signal directions.
const (
	SignalBullish = "bullish"
	SignalBearish = "bearish"
	SignalNeutral = "neutral"
)

// Pattern families.
const (
	PatternFamilyChart       = "chart"
	PatternFamilyCandlestick = "candlestick"
)

// PatternMatch is one recognized chart or candlestick formation.
type PatternMatch struct {
	Family     string   `json:"family"`
	Name       string   `json:"name"`
	Signal     string   `json:"signal"`
	Confidence float64  `json:"confidence"` // 0-100
	Strength   float64  `json:"strength"`   // 0-1
	Target     *float64 `json:"target,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	Timeframe  string   `json:"timeframe"`
	Length     int      `json:"length"` // candles in the formation
}

// PatternAnalysis is the pattern engine output for one request.
type PatternAnalysis struct {
	Symbol         string         `json:"symbol"`
	Matches        []PatternMatch `json:"matches"`
	DominantSignal string         `json:"dominant_signal"`
	Confluence     float64        `json:"confluence"` // 0-100
}

// SentimentReading is one normalized reading from a single source.
type SentimentReading struct {
	Source     string          `json:"source"`
	Score      float64         `json:"score"`      // 0-100
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"` // 0-1
	Timestamp  time.Time       `json:"timestamp"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// AggregatedSentiment is the confidence-weighted fusion of all available
// sentiment readings for an instrument.
type AggregatedSentiment struct {
	Symbol      string             `json:"symbol"`
	Score       float64            `json:"score"`      // 0-100, 50 when nothing was available
	Label       string             `json:"label"`      // Extreme Fear .. Extreme Greed
	Emotion     string             `json:"emotion"`
	Trend       string             `json:"trend"`      // improving, deteriorating, stable
	Contrarian  bool               `json:"contrarian"`
	Confidence  float64            `json:"confidence"` // 0-1
	SourcesUsed []string           `json:"sources_used"`
	Readings    []SentimentReading `json:"readings,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// HistoricalFingerprint is a compact categorical encoding of market
// conditions used as a similarity key in the rolling history buffer.
type HistoricalFingerprint struct {
	Symbol        string    `json:"symbol"`
	Timestamp     time.Time `json:"timestamp"`
	RSIBucket     string    `json:"rsi_bucket"`      // oversold, low, neutral, high, overbought
	TrendBucket   string    `json:"trend_bucket"`    // strong_down, down, flat, up, strong_up
	VolumeBucket  string    `json:"volume_bucket"`   // dry, normal, elevated, climax
	VolBucket     string    `json:"vol_bucket"`      // quiet, normal, active, wild
	PricePosition string    `json:"price_position"`  // above_value, in_value, below_value
	Regime        string    `json:"regime,omitempty"`
	OutcomePct    *float64  `json:"outcome_pct,omitempty"` // forward return once known
}

// Similarity is the fraction of matching categorical fields in [0, 1].
func (f HistoricalFingerprint) Similarity(other HistoricalFingerprint) float64 {
	matches := 0
	if f.RSIBucket == other.RSIBucket {
		matches++
	}
	if f.TrendBucket == other.TrendBucket {
		matches++
	}
	if f.VolumeBucket == other.VolumeBucket {
		matches++
	}
	if f.VolBucket == other.VolBucket {
		matches++
	}
	if f.PricePosition == other.PricePosition {
		matches++
	}
	return float64(matches) / 5.0
}

// PatternStat tracks outcomes of one named pattern for an instrument.
type PatternStat struct {
	Name        string    `json:"name"`
	Occurrences int       `json:"occurrences"`
	Successes   int       `json:"successes"`
	SuccessRate float64   `json:"success_rate"` // neutral prior 0.5 when unseen
	LastSeen    time.Time `json:"last_seen"`
}

// SimilarCondition is one historical fingerprint that matched the current one.
type SimilarCondition struct {
	Fingerprint HistoricalFingerprint `json:"fingerprint"`
	Similarity  float64               `json:"similarity"` // >= 0.7
	Outcome     *float64              `json:"outcome,omitempty"`
}

// OutcomeStats summarizes forward returns bucketed by regime.
type OutcomeStats struct {
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
	WinRate float64 `json:"win_rate"`
}

// HistoricalContext answers "how did similar setups perform" for one request.
type HistoricalContext struct {
	Symbol             string                  `json:"symbol"`
	MatchedPatterns    []PatternStat           `json:"matched_patterns"`
	SimilarConditions  []SimilarCondition      `json:"similar_conditions"`
	RegimeOutcomes     map[string]OutcomeStats `json:"regime_outcomes,omitempty"`
	CorrelationHints   []string                `json:"correlation_hints,omitempty"`
	SeasonalReturns    map[string]float64      `json:"seasonal_returns,omitempty"` // month -> avg %
	IntradayReturns    map[int]float64         `json:"intraday_returns,omitempty"` // hour -> avg %
	VolatilityRegime   string                  `json:"volatility_regime"`
	SentimentOutlook   string                  `json:"sentiment_outlook,omitempty"`
	ReversalRisk       float64                 `json:"reversal_risk"` // 0-1
	LevelReliability   map[string]float64      `json:"level_reliability,omitempty"`
	ConfidenceBoosters []string                `json:"confidence_boosters,omitempty"`
	RiskFactors        []string                `json:"risk_factors,omitempty"`
	SuccessProbability float64                 `json:"success_probability"` // clamped [0.1, 0.9]
	QualityScore       float64                 `json:"quality_score"`       // 0-100
}

// AdaptiveThresholds are per-instrument classification cut points derived
// from the instrument's own rolling percentile distribution. Confidence is
// monotonically non-decreasing in sample count, saturating at a cap.
type AdaptiveThresholds struct {
	// Volatility tier cuts, ATR% at the 10/30/50/70/90/98th percentiles.
	VolatilityTiers []float64 `json:"volatility_tiers"`
	TrendWeak       float64   `json:"trend_weak"`   // |price vs MA| % for a mild trend
	TrendStrong     float64   `json:"trend_strong"` // ... for a strong trend
	VolumeLow       float64   `json:"volume_low"`
	VolumeHigh      float64   `json:"volume_high"`
	RSIOversold     float64   `json:"rsi_oversold"`
	RSIOverbought   float64   `json:"rsi_overbought"`
	SampleCount     int       `json:"sample_count"`
	Confidence      float64   `json:"confidence"` // 0-100
	Adaptive        bool      `json:"adaptive"`   // false while on scaled defaults
}

// Regime labels.
const (
	RegimeBull         = "bull"
	RegimeBear         = "bear"
	RegimeRanging      = "ranging"
	RegimeVolatile     = "volatile"
	RegimeAccumulation = "accumulation"
	RegimeDistribution = "distribution"
	RegimeBreakout     = "breakout"
	RegimeBreakdown    = "breakdown"
)

// RegimeAnalysis is the regime detector output.
type RegimeAnalysis struct {
	Symbol                string             `json:"symbol"`
	Regime                string             `json:"regime"`
	TrendDirection        string             `json:"trend_direction"`  // strong_up, up, neutral, down, strong_down
	VolatilityLevel       string             `json:"volatility_level"` // very_low, low, normal, high, very_high, extreme
	MomentumState         string             `json:"momentum_state"`   // strongly_bullish .. strongly_bearish
	Strength              float64            `json:"strength"`         // 0-100
	Confluence            float64            `json:"confluence"`       // 0-100, timeframe agreement
	TransitionProbability float64            `json:"transition_probability"` // [10, 90]
	DurationSamples       int                `json:"duration_samples"`
	Thresholds            AdaptiveThresholds `json:"thresholds"`
}

// TimeframeTrend is one higher/lower timeframe trend sample fed into the
// regime detector for confluence scoring.
type TimeframeTrend struct {
	Timeframe string `json:"timeframe"`
	Direction string `json:"direction"` // up, down, neutral
}

// Reasoning recommendation values.
const (
	RecommendationBuy  = "BUY"
	RecommendationHold = "HOLD"
	RecommendationSell = "SELL"
)

// ReasoningResult is the structured answer from the external reasoning
// collaborator. The pipeline treats it as opaque advice.
type ReasoningResult struct {
	Recommendation string  `json:"recommendation"` // BUY, HOLD, SELL
	Reasoning      string  `json:"reasoning"`
	Risk           string  `json:"risk"` // LOW, MEDIUM, HIGH
	Confidence     float64 `json:"confidence"`
}

// Report depth labels.
const (
	DepthBasic         = "Basic"
	DepthStandard      = "Standard"
	DepthComprehensive = "Comprehensive"
	DepthAdvanced      = "Advanced"
)

// MarketStatusReport is the root aggregate produced per (instrument, time).
type MarketStatusReport struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	GeneratedAt time.Time `json:"generated_at"`
	Price       float64   `json:"price"`

	Indicators *IndicatorSnapshot   `json:"indicators,omitempty"`
	Patterns   *PatternAnalysis     `json:"patterns,omitempty"`
	Sentiment  *AggregatedSentiment `json:"sentiment,omitempty"`
	History    *HistoricalContext   `json:"history,omitempty"`
	Regime     *RegimeAnalysis      `json:"regime,omitempty"`
	Reasoning  *ReasoningResult     `json:"reasoning,omitempty"`

	OverallConfidence float64       `json:"overall_confidence"` // 0-100
	DataQuality       float64       `json:"data_quality"`       // 0-100
	Depth             string        `json:"depth"`
	TTL               time.Duration `json:"ttl"`
}
