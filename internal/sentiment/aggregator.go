package sentiment

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MarketPulse/models"
)

const (
	extremeLow    = 15
	extremeHigh   = 85
	divergenceMax = 40
	trendWindow   = 20
)

// Aggregator polls independent sentiment proxies concurrently and fuses
// them into one confidence-weighted score. One source failing is tolerated;
// total failure yields score 50 at confidence 0.
type Aggregator struct {
	sources       []models.SentimentSource
	weights       map[string]float64
	sourceTimeout time.Duration

	mu      sync.Mutex
	history map[string][]float64 // per-instrument rolling aggregate scores

	logger zerolog.Logger
}

// Options holds aggregator construction settings.
type Options struct {
	Sources       []models.SentimentSource
	Weights       map[string]float64 // source name -> fusion weight
	SourceTimeout time.Duration
}

// NewAggregator creates a sentiment aggregator.
func NewAggregator(opts Options) *Aggregator {
	if opts.SourceTimeout == 0 {
		opts.SourceTimeout = 10 * time.Second
	}
	if opts.Weights == nil {
		opts.Weights = map[string]float64{
			SourceFearGreed:      0.25,
			SourceFundingRate:    0.30,
			SourceOpenInterest:   0.20,
			SourceLongShortRatio: 0.15,
			SourceSocial:         0.10,
		}
	}

	return &Aggregator{
		sources:       opts.Sources,
		weights:       opts.Weights,
		sourceTimeout: opts.SourceTimeout,
		history:       make(map[string][]float64),
		logger:        log.With().Str("component", "sentiment").Logger(),
	}
}

// GetAggregatedSentiment fetches every applicable source concurrently, each
// under its own timeout, and aggregates whatever arrived.
func (a *Aggregator) GetAggregatedSentiment(ctx context.Context, symbol string, includeSocial bool) *models.AggregatedSentiment {
	type result struct {
		reading models.SentimentReading
		err     error
	}

	var wg sync.WaitGroup
	results := make(chan result, len(a.sources))

	polled := 0
	for _, src := range a.sources {
		if src.Name() == SourceSocial && !includeSocial {
			continue
		}
		polled++
		wg.Add(1)
		go func(src models.SentimentSource) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()
			reading, err := src.Fetch(fetchCtx, symbol)
			results <- result{reading: reading, err: err}
		}(src)
	}

	wg.Wait()
	close(results)

	var readings []models.SentimentReading
	for r := range results {
		if r.err != nil {
			// A timed-out or failing source is unavailable, not an error.
			a.logger.Warn().Err(r.err).Msg("Sentiment source unavailable")
			continue
		}
		readings = append(readings, r.reading)
	}

	return a.aggregate(symbol, readings, polled)
}

// aggregate fuses the available readings. Confidence is averaged over the
// polled sources, not the configured set, so an excluded source does not
// drag it down. Deterministic: the same readings produce the same aggregate
// regardless of arrival order.
func (a *Aggregator) aggregate(symbol string, readings []models.SentimentReading, polled int) *models.AggregatedSentiment {
	agg := &models.AggregatedSentiment{
		Symbol:    symbol,
		Score:     50,
		Label:     scoreLabel(50),
		Emotion:   "uncertain",
		Trend:     "stable",
		UpdatedAt: time.Now().UTC(),
	}

	if len(readings) == 0 {
		agg.SourcesUsed = []string{}
		return agg
	}

	sort.Slice(readings, func(i, j int) bool { return readings[i].Source < readings[j].Source })

	var weightedSum, weightTotal, confidenceSum float64
	for _, r := range readings {
		w := a.weights[r.Source] * r.Confidence
		weightedSum += r.Score * w
		weightTotal += w
		confidenceSum += r.Confidence
		agg.SourcesUsed = append(agg.SourcesUsed, r.Source)
	}
	if weightTotal == 0 {
		return agg
	}

	if polled < len(readings) {
		polled = len(readings)
	}

	agg.Score = weightedSum / weightTotal
	agg.Label = scoreLabel(agg.Score)
	agg.Confidence = confidenceSum / float64(polled)
	if agg.Confidence > 1 {
		agg.Confidence = 1
	}
	agg.Readings = readings
	agg.Emotion = emotion(agg.Score, readings)
	agg.Contrarian = contrarian(agg.Score, readings)
	agg.Trend = a.classifyTrend(symbol, agg.Score)

	return agg
}

// classifyTrend compares the new aggregate against the instrument's rolling
// window and appends it as a side effect.
func (a *Aggregator) classifyTrend(symbol string, score float64) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := a.history[symbol]
	trend := "stable"
	if len(h) >= 3 {
		var sum float64
		for _, v := range h {
			sum += v
		}
		avg := sum / float64(len(h))
		switch {
		case score > avg+5:
			trend = "improving"
		case score < avg-5:
			trend = "deteriorating"
		}
	}

	h = append(h, score)
	if len(h) > trendWindow {
		h = h[len(h)-trendWindow:]
	}
	a.history[symbol] = h
	return trend
}

// emotion maps the score plus the count of extreme-reading sources to a
// qualitative market emotion.
func emotion(score float64, readings []models.SentimentReading) string {
	extremes := 0
	for _, r := range readings {
		if r.Score < extremeLow || r.Score > extremeHigh {
			extremes++
		}
	}

	switch {
	case score < extremeLow && extremes >= 2:
		return "panic"
	case score < 30:
		return "anxious"
	case score > extremeHigh && extremes >= 2:
		return "euphoric"
	case score > 70:
		return "greedy"
	case extremes >= 2:
		return "conflicted"
	default:
		return "calm"
	}
}

// contrarian raises the flag when the aggregate itself is extreme with at
// least two agreeing sources, or when sources diverge by more than 40 points.
func contrarian(score float64, readings []models.SentimentReading) bool {
	if score < extremeLow || score > extremeHigh {
		agreeing := 0
		for _, r := range readings {
			if (score < extremeLow && r.Score < extremeLow) ||
				(score > extremeHigh && r.Score > extremeHigh) {
				agreeing++
			}
		}
		if agreeing >= 2 {
			return true
		}
	}

	if len(readings) >= 2 {
		lo, hi := readings[0].Score, readings[0].Score
		for _, r := range readings[1:] {
			lo = math.Min(lo, r.Score)
			hi = math.Max(hi, r.Score)
		}
		if hi-lo > divergenceMax {
			return true
		}
	}
	return false
}

// scoreLabel buckets a 0-100 score into the standard five labels.
func scoreLabel(score float64) string {
	switch {
	case score < 20:
		return "Extreme Fear"
	case score < 40:
		return "Fear"
	case score < 60:
		return "Neutral"
	case score < 80:
		return "Greed"
	default:
		return "Extreme Greed"
	}
}
