package history

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MarketPulse/models"
)

// Engine answers "how did similar setups perform" from the instrument's own
// rolling memory. Any stage failure degrades to a documented neutral
// fallback (quality 25, probability 0.5); the engine never errors out.
type Engine struct {
	store         *Store
	persist       *Persistence
	similarityMin float64
	maxMatches    int
	logger        zerolog.Logger
}

// Options holds history engine construction settings.
type Options struct {
	Store         *Store
	Persistence   *Persistence
	SimilarityMin float64
	MaxMatches    int
}

// NewEngine creates a historical context engine.
func NewEngine(opts Options) *Engine {
	if opts.Store == nil {
		opts.Store = NewStore(0, 0)
	}
	if opts.SimilarityMin == 0 {
		opts.SimilarityMin = 0.7
	}
	if opts.MaxMatches == 0 {
		opts.MaxMatches = 10
	}
	return &Engine{
		store:         opts.Store,
		persist:       opts.Persistence,
		similarityMin: opts.SimilarityMin,
		maxMatches:    opts.MaxMatches,
		logger:        log.With().Str("component", "history").Logger(),
	}
}

// TagRegime stamps the instrument's latest stored fingerprint with the
// regime classified downstream of this engine.
func (e *Engine) TagRegime(symbol, regime string) {
	e.store.TagRegime(symbol, regime)
}

// Fallback is the documented neutral context returned when analysis is
// impossible.
func Fallback(symbol string) *models.HistoricalContext {
	return &models.HistoricalContext{
		Symbol:             symbol,
		VolatilityRegime:   "unknown",
		SuccessProbability: 0.5,
		QualityScore:       25,
	}
}

// GetHistoricalContext builds the full context for the current conditions
// and appends the current snapshot to the rolling buffer as a side effect.
func (e *Engine) GetHistoricalContext(ctx context.Context, symbol string, snap *models.IndicatorSnapshot, patterns *models.PatternAnalysis, sent *models.AggregatedSentiment) *models.HistoricalContext {
	if snap == nil {
		return Fallback(symbol)
	}

	current := Encode(snap)
	records := e.store.Records(symbol)
	volSamples := e.store.VolatilitySamples(symbol)

	hc := &models.HistoricalContext{Symbol: symbol}

	hc.SimilarConditions = e.similarConditions(current, records)
	hc.MatchedPatterns = e.patternStats(symbol, patterns)
	hc.RegimeOutcomes = regimeOutcomes(records)
	hc.CorrelationHints = correlationHints(symbol)
	hc.SeasonalReturns = seasonalReturns(records)
	hc.IntradayReturns = intradayReturns(records)
	hc.VolatilityRegime = volatilityRegime(snap.ATRPercent, volSamples)
	hc.SentimentOutlook, hc.ReversalRisk = sentimentOutlook(sent)
	hc.LevelReliability = levelReliability(snap)
	hc.SuccessProbability = e.successProbability(hc)
	hc.ConfidenceBoosters, hc.RiskFactors = narratives(hc, snap, sent)
	hc.QualityScore = e.qualityScore(hc, records)

	// Side effect: remember the current conditions for future lookups.
	e.store.Append(current, snap.CurrentPrice, snap.ATRPercent)
	if patterns != nil {
		e.store.RecordPatterns(symbol, patterns.Matches, snap.CurrentPrice)
	}
	e.persist.Save(ctx, symbol)

	return hc
}

// similarConditions ranks stored fingerprints by similarity then recency.
func (e *Engine) similarConditions(current models.HistoricalFingerprint, records []record) []models.SimilarCondition {
	var out []models.SimilarCondition
	for _, r := range records {
		sim := current.Similarity(r.Fingerprint)
		if sim < e.similarityMin {
			continue
		}
		out = append(out, models.SimilarCondition{
			Fingerprint: r.Fingerprint,
			Similarity:  sim,
			Outcome:     r.Fingerprint.OutcomePct,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Fingerprint.Timestamp.After(out[j].Fingerprint.Timestamp)
	})

	if len(out) > e.maxMatches {
		out = out[:e.maxMatches]
	}
	return out
}

// patternStats resolves success rates for the currently matched patterns,
// ranked by recency then success, capped.
func (e *Engine) patternStats(symbol string, patterns *models.PatternAnalysis) []models.PatternStat {
	if patterns == nil || len(patterns.Matches) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var out []models.PatternStat
	for _, m := range patterns.Matches {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		out = append(out, e.store.PatternStat(symbol, m.Name))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].SuccessRate > out[j].SuccessRate
	})

	if len(out) > e.maxMatches {
		out = out[:e.maxMatches]
	}
	return out
}

// regimeOutcomes buckets stored outcomes by the regime label active when
// they were recorded.
func regimeOutcomes(records []record) map[string]models.OutcomeStats {
	grouped := map[string][]float64{}
	for _, r := range records {
		if r.Fingerprint.Regime == "" || r.Fingerprint.OutcomePct == nil {
			continue
		}
		grouped[r.Fingerprint.Regime] = append(grouped[r.Fingerprint.Regime], *r.Fingerprint.OutcomePct)
	}
	if len(grouped) == 0 {
		return nil
	}

	out := make(map[string]models.OutcomeStats, len(grouped))
	for regime, vals := range grouped {
		out[regime] = outcomeStats(vals)
	}
	return out
}

func outcomeStats(vals []float64) models.OutcomeStats {
	stats := models.OutcomeStats{Count: len(vals)}
	if len(vals) == 0 {
		return stats
	}

	var sum float64
	wins := 0
	for _, v := range vals {
		sum += v
		if v > 0 {
			wins++
		}
	}
	stats.Mean = sum / float64(len(vals))
	stats.WinRate = float64(wins) / float64(len(vals))

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		stats.Median = sorted[mid]
	} else {
		stats.Median = (sorted[mid-1] + sorted[mid]) / 2
	}

	var variance float64
	for _, v := range vals {
		d := v - stats.Mean
		variance += d * d
	}
	stats.StdDev = math.Sqrt(variance / float64(len(vals)))
	return stats
}

// correlationHints are static sector notes keyed by instrument family.
func correlationHints(symbol string) []string {
	s := strings.ToUpper(symbol)
	switch {
	case strings.HasPrefix(s, "BTC"):
		return []string{"market leader, sets direction for large caps", "inverse DXY tendency"}
	case strings.HasPrefix(s, "ETH"):
		return []string{"tracks BTC with higher beta", "leads DeFi majors"}
	case strings.HasPrefix(s, "SOL"), strings.HasPrefix(s, "AVAX"):
		return []string{"high-beta L1, amplifies BTC moves"}
	default:
		return []string{"altcoin, correlation with BTC dominates idiosyncratic moves"}
	}
}

func seasonalReturns(records []record) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range records {
		if r.Fingerprint.OutcomePct == nil {
			continue
		}
		m := r.Fingerprint.Timestamp.Month().String()
		sums[m] += *r.Fingerprint.OutcomePct
		counts[m]++
	}
	if len(sums) == 0 {
		return nil
	}
	out := make(map[string]float64, len(sums))
	for m, sum := range sums {
		out[m] = sum / float64(counts[m])
	}
	return out
}

func intradayReturns(records []record) map[int]float64 {
	sums := map[int]float64{}
	counts := map[int]int{}
	for _, r := range records {
		if r.Fingerprint.OutcomePct == nil {
			continue
		}
		h := r.Fingerprint.Timestamp.Hour()
		sums[h] += *r.Fingerprint.OutcomePct
		counts[h]++
	}
	if len(sums) == 0 {
		return nil
	}
	out := make(map[int]float64, len(sums))
	for h, sum := range sums {
		out[h] = sum / float64(counts[h])
	}
	return out
}

// volatilityRegime classifies the current ATR% against the instrument's own
// historical percentile bands.
func volatilityRegime(current float64, samples []float64) string {
	if len(samples) < 10 {
		return "unknown"
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	rank := 0
	for _, v := range sorted {
		if v < current {
			rank++
		}
	}
	pct := float64(rank) / float64(len(sorted))

	switch {
	case pct < 0.2:
		return "compressed"
	case pct < 0.6:
		return "normal"
	case pct < 0.9:
		return "expanding"
	default:
		return "extreme"
	}
}

// sentimentOutlook estimates persistence versus reversal of the current
// sentiment reading.
func sentimentOutlook(sent *models.AggregatedSentiment) (string, float64) {
	if sent == nil {
		return "", 0
	}

	distance := math.Abs(sent.Score-50) / 50 // 0 center .. 1 extreme
	risk := distance * distance              // reversal risk grows superlinearly at the extremes
	if sent.Contrarian {
		risk = math.Min(1, risk+0.25)
	}

	switch {
	case risk > 0.6:
		return "likely to revert", risk
	case sent.Trend == "improving":
		return "likely to persist", risk
	case sent.Trend == "deteriorating":
		return "weakening", risk
	default:
		return "stable", risk
	}
}

// levelReliability scores the major support/resistance levels from their
// structural strength.
func levelReliability(snap *models.IndicatorSnapshot) map[string]float64 {
	out := map[string]float64{}
	if snap.MajorSupport != nil {
		out["support"] = snap.MajorSupport.Strength / 100
	}
	if snap.MajorResistance != nil {
		out["resistance"] = snap.MajorResistance.Strength / 100
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// successProbability blends pattern success, regime favorability and the
// volatility regime into one probability, clamped to [0.1, 0.9].
func (e *Engine) successProbability(hc *models.HistoricalContext) float64 {
	p := 0.5

	if len(hc.MatchedPatterns) > 0 {
		var sum float64
		for _, s := range hc.MatchedPatterns {
			sum += s.SuccessRate
		}
		avg := sum / float64(len(hc.MatchedPatterns))
		p += (avg - 0.5) * 0.5
	}

	if len(hc.RegimeOutcomes) > 0 {
		favorable := 0
		for _, stats := range hc.RegimeOutcomes {
			if stats.WinRate > 0.5 {
				favorable++
			}
		}
		share := float64(favorable) / float64(len(hc.RegimeOutcomes))
		p += (share - 0.5) * 0.3
	}

	switch hc.VolatilityRegime {
	case "extreme":
		p -= 0.05
	case "compressed":
		p += 0.05
	}

	return math.Max(0.1, math.Min(0.9, p))
}

// narratives produces the qualitative booster/risk strings.
func narratives(hc *models.HistoricalContext, snap *models.IndicatorSnapshot, sent *models.AggregatedSentiment) (boosters, risks []string) {
	if len(hc.SimilarConditions) >= 3 {
		boosters = append(boosters, "multiple close historical analogues found")
	}
	for _, s := range hc.MatchedPatterns {
		if s.Occurrences >= 3 && s.SuccessRate > 0.6 {
			boosters = append(boosters, s.Name+" has a favorable track record here")
		}
		if s.Occurrences >= 3 && s.SuccessRate < 0.4 {
			risks = append(risks, s.Name+" has historically failed on this instrument")
		}
	}
	if rel, ok := hc.LevelReliability["support"]; ok && rel > 0.7 {
		boosters = append(boosters, "major support level is well established")
	}
	if hc.VolatilityRegime == "extreme" {
		risks = append(risks, "volatility at historical extremes")
	}
	if sent != nil && sent.Contrarian {
		risks = append(risks, "sentiment at contrarian extreme")
	}
	if snap.MACD != nil && snap.MACD.Divergence {
		risks = append(risks, "price/MACD divergence present")
	}
	return boosters, risks
}

// qualityScore rewards match count, similar-condition count, history depth
// and recency, 0-100.
func (e *Engine) qualityScore(hc *models.HistoricalContext, records []record) float64 {
	score := 0.0

	score += math.Min(float64(len(hc.SimilarConditions))*8, 30)
	score += math.Min(float64(len(hc.MatchedPatterns))*6, 20)
	score += math.Min(float64(len(records))/float64(e.store.maxCount)*30, 30)

	if n := len(records); n > 0 {
		// Recency: a buffer updated within the last day is worth full marks.
		if time.Since(records[n-1].Fingerprint.Timestamp) < 24*time.Hour {
			score += 20
		} else {
			score += 10
		}
	}

	return math.Min(score, 100)
}
