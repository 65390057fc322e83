package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MarketPulse/internal/history"
	"github.com/Alias1177/MarketPulse/internal/indicators"
	"github.com/Alias1177/MarketPulse/internal/metrics"
	"github.com/Alias1177/MarketPulse/internal/patterns"
	"github.com/Alias1177/MarketPulse/internal/regime"
	"github.com/Alias1177/MarketPulse/internal/sentiment"
	"github.com/Alias1177/MarketPulse/models"
)

// Service runs the full analysis pipeline and assembles the final report.
// Stage failures degrade to documented fallbacks; GetMarketStatus always
// returns a report, confidence and data quality carry the degradation.
type Service struct {
	candles   models.CandleSource
	orderBook models.OrderBookSource

	indicators *indicators.Engine
	patterns   *patterns.Engine
	sentiment  *sentiment.Aggregator
	history    *history.Engine
	regime     *regime.Detector
	reasoning  models.ReasoningClient // nil when disabled

	cache *reportCache

	interval       string
	fineInterval   string
	candleCount    int
	mtfIntervals   []string
	orderBookDepth int
	reportTTL      time.Duration

	logger zerolog.Logger
}

// Options holds everything the service needs wired in.
type Options struct {
	Candles   models.CandleSource
	OrderBook models.OrderBookSource

	Indicators *indicators.Engine
	Patterns   *patterns.Engine
	Sentiment  *sentiment.Aggregator
	History    *history.Engine
	Regime     *regime.Detector
	Reasoning  models.ReasoningClient

	Interval       string
	FineInterval   string
	CandleCount    int
	MTFIntervals   []string
	OrderBookDepth int
	ReportTTL      time.Duration
}

// NewService creates the pipeline orchestrator, filling zero values with the
// documented defaults.
func NewService(opts Options) *Service {
	if opts.Interval == "" {
		opts.Interval = "5m"
	}
	if opts.FineInterval == "" {
		opts.FineInterval = "1m"
	}
	if opts.CandleCount == 0 {
		opts.CandleCount = 200
	}
	if len(opts.MTFIntervals) == 0 {
		opts.MTFIntervals = []string{"15m", "1h", "4h"}
	}
	if opts.OrderBookDepth == 0 {
		opts.OrderBookDepth = 20
	}
	if opts.ReportTTL == 0 {
		opts.ReportTTL = 5 * time.Minute
	}

	return &Service{
		candles:        opts.Candles,
		orderBook:      opts.OrderBook,
		indicators:     opts.Indicators,
		patterns:       opts.Patterns,
		sentiment:      opts.Sentiment,
		history:        opts.History,
		regime:         opts.Regime,
		reasoning:      opts.Reasoning,
		cache:          newReportCache(),
		interval:       opts.Interval,
		fineInterval:   opts.FineInterval,
		candleCount:    opts.CandleCount,
		mtfIntervals:   opts.MTFIntervals,
		orderBookDepth: opts.OrderBookDepth,
		reportTTL:      opts.ReportTTL,
		logger:         log.With().Str("component", "orchestrator").Logger(),
	}
}

// marketData is the raw input bundle fetched up front.
type marketData struct {
	primary []models.Candle
	fine    []models.Candle
	mtf     map[string][]models.Candle
	book    *models.OrderBook
}

// GetMarketStatus produces the fused report for one instrument. The cache is
// consulted first; a fresh entry short-circuits the pipeline entirely.
func (s *Service) GetMarketStatus(ctx context.Context, symbol string, enableReasoning bool) *models.MarketStatusReport {
	if report, ok := s.cache.Get(symbol); ok {
		metrics.CacheHits.Inc()
		s.logger.Debug().Str("symbol", symbol).Msg("Report served from cache")
		return report
	}
	metrics.CacheMisses.Inc()

	started := time.Now()
	data := s.fetchMarketData(ctx, symbol)

	price := 0.0
	if n := len(data.primary); n > 0 {
		price = data.primary[n-1].Close
	}

	snap := s.computeIndicators(symbol, data, price)
	if snap != nil && snap.CurrentPrice > 0 {
		price = snap.CurrentPrice
	}

	// Patterns and sentiment are independent of each other; run them in
	// parallel once indicators are in.
	var (
		wg   sync.WaitGroup
		pat  *models.PatternAnalysis
		sent *models.AggregatedSentiment
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		pat = s.analyzePatterns(symbol, data, price)
	}()
	go func() {
		defer wg.Done()
		sent = s.aggregateSentiment(ctx, symbol)
	}()
	wg.Wait()

	hist := s.historicalContext(ctx, symbol, snap, pat, sent)
	reg := s.analyzeRegime(symbol, snap, data, sent)
	if s.history != nil && reg != nil {
		s.history.TagRegime(symbol, reg.Regime)
	}

	report := &models.MarketStatusReport{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		GeneratedAt: time.Now().UTC(),
		Price:       price,
		Indicators:  snap,
		Patterns:    pat,
		Sentiment:   sent,
		History:     hist,
		Regime:      reg,
		TTL:         s.reportTTL,
	}

	report.DataQuality = dataQuality(data, sent)
	report.OverallConfidence = overallConfidence(report)
	report.Depth = depth(report.OverallConfidence, report.DataQuality)

	if enableReasoning && s.reasoning != nil {
		report.Reasoning = s.reasonAbout(ctx, report)
	}

	s.cache.Set(symbol, report, s.reportTTL)
	s.logger.Info().Str("symbol", symbol).
		Float64("confidence", report.OverallConfidence).
		Float64("quality", report.DataQuality).
		Str("depth", report.Depth).
		Dur("elapsed", time.Since(started)).
		Msg("Report assembled")
	return report
}

// fetchMarketData pulls all raw inputs concurrently. Any fetch failing leaves
// its slot empty; downstream stages degrade accordingly.
func (s *Service) fetchMarketData(ctx context.Context, symbol string) marketData {
	timer := time.Now()
	defer func() { metrics.StageLatency.WithLabelValues("fetch").Observe(time.Since(timer).Seconds()) }()

	data := marketData{mtf: make(map[string][]models.Candle)}
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		candles, err := s.candles.GetCandles(ctx, symbol, s.interval, s.candleCount)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Primary candle fetch failed")
			metrics.StageFallbacks.WithLabelValues("fetch_primary").Inc()
			return
		}
		data.primary = candles
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		candles, err := s.candles.GetCandles(ctx, symbol, s.fineInterval, s.candleCount)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Fine candle fetch failed")
			return
		}
		data.fine = candles
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if s.orderBook == nil {
			return
		}
		book, err := s.orderBook.GetOrderBook(ctx, symbol, s.orderBookDepth)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Order book fetch failed")
			return
		}
		data.book = book
	}()

	for _, interval := range s.mtfIntervals {
		wg.Add(1)
		go func(interval string) {
			defer wg.Done()
			candles, err := s.candles.GetCandles(ctx, symbol, interval, 50)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Str("interval", interval).
					Msg("Timeframe candle fetch failed")
				return
			}
			mu.Lock()
			data.mtf[interval] = candles
			mu.Unlock()
		}(interval)
	}

	wg.Wait()
	return data
}

func (s *Service) computeIndicators(symbol string, data marketData, price float64) *models.IndicatorSnapshot {
	timer := time.Now()
	defer func() { metrics.StageLatency.WithLabelValues("indicators").Observe(time.Since(timer).Seconds()) }()

	return s.indicators.Compute(indicators.Input{
		Symbol:       symbol,
		Candles:      data.primary,
		FineCandles:  data.fine,
		CurrentPrice: price,
		Volume24h:    volume24h(data.primary),
		OrderBook:    data.book,
	})
}

func (s *Service) analyzePatterns(symbol string, data marketData, price float64) *models.PatternAnalysis {
	timer := time.Now()
	defer func() { metrics.StageLatency.WithLabelValues("patterns").Observe(time.Since(timer).Seconds()) }()

	byTimeframe := map[string][]models.Candle{s.interval: data.primary}
	for interval, candles := range data.mtf {
		byTimeframe[interval] = candles
	}
	return s.patterns.Analyze(symbol, byTimeframe, price)
}

func (s *Service) aggregateSentiment(ctx context.Context, symbol string) *models.AggregatedSentiment {
	if s.sentiment == nil {
		return nil
	}
	timer := time.Now()
	defer func() { metrics.StageLatency.WithLabelValues("sentiment").Observe(time.Since(timer).Seconds()) }()

	sent := s.sentiment.GetAggregatedSentiment(ctx, symbol, true)
	if sent.Confidence == 0 {
		metrics.StageFallbacks.WithLabelValues("sentiment").Inc()
	}
	return sent
}

func (s *Service) historicalContext(ctx context.Context, symbol string, snap *models.IndicatorSnapshot, pat *models.PatternAnalysis, sent *models.AggregatedSentiment) *models.HistoricalContext {
	if s.history == nil {
		metrics.StageFallbacks.WithLabelValues("history").Inc()
		return history.Fallback(symbol)
	}
	timer := time.Now()
	defer func() { metrics.StageLatency.WithLabelValues("history").Observe(time.Since(timer).Seconds()) }()

	return s.history.GetHistoricalContext(ctx, symbol, snap, pat, sent)
}

func (s *Service) analyzeRegime(symbol string, snap *models.IndicatorSnapshot, data marketData, sent *models.AggregatedSentiment) *models.RegimeAnalysis {
	if s.regime == nil {
		metrics.StageFallbacks.WithLabelValues("regime").Inc()
		return regime.Fallback(symbol)
	}
	timer := time.Now()
	defer func() { metrics.StageLatency.WithLabelValues("regime").Observe(time.Since(timer).Seconds()) }()

	in := regime.Input{
		Symbol:     symbol,
		Snapshot:   snap,
		Timeframes: timeframeTrends(data.mtf),
		OrderBook:  data.book,
	}
	if sent != nil && sent.Confidence > 0 {
		score := sent.Score
		in.SentimentScore = &score
	}
	return s.regime.Analyze(in)
}

func (s *Service) reasonAbout(ctx context.Context, report *models.MarketStatusReport) *models.ReasoningResult {
	timer := time.Now()
	defer func() { metrics.StageLatency.WithLabelValues("reasoning").Observe(time.Since(timer).Seconds()) }()

	result, err := s.reasoning.Analyze(ctx, formatContext(report))
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", report.Symbol).Msg("Reasoning unavailable, omitting")
		metrics.StageFallbacks.WithLabelValues("reasoning").Inc()
		return nil
	}
	return result
}

// AnalyzePatterns runs the pattern stage standalone.
func (s *Service) AnalyzePatterns(ctx context.Context, symbol string) *models.PatternAnalysis {
	data := s.fetchMarketData(ctx, symbol)
	price := 0.0
	if n := len(data.primary); n > 0 {
		price = data.primary[n-1].Close
	}
	return s.analyzePatterns(symbol, data, price)
}

// GetAggregatedSentiment runs the sentiment stage standalone.
func (s *Service) GetAggregatedSentiment(ctx context.Context, symbol string, includeSocial bool) *models.AggregatedSentiment {
	if s.sentiment == nil {
		return nil
	}
	return s.sentiment.GetAggregatedSentiment(ctx, symbol, includeSocial)
}

// GetHistoricalContext runs the history stage standalone, computing the
// indicator snapshot it needs from fresh data.
func (s *Service) GetHistoricalContext(ctx context.Context, symbol string) *models.HistoricalContext {
	data := s.fetchMarketData(ctx, symbol)
	snap := s.computeIndicators(symbol, data, 0)
	return s.historicalContext(ctx, symbol, snap, nil, nil)
}

// AnalyzeMarketRegime runs the regime stage standalone.
func (s *Service) AnalyzeMarketRegime(ctx context.Context, symbol string) *models.RegimeAnalysis {
	data := s.fetchMarketData(ctx, symbol)
	snap := s.computeIndicators(symbol, data, 0)
	return s.analyzeRegime(symbol, snap, data, nil)
}

// timeframeTrends derives a coarse up/down/neutral direction per timeframe
// from the close-to-close drift over the fetched window.
func timeframeTrends(mtf map[string][]models.Candle) []models.TimeframeTrend {
	var out []models.TimeframeTrend
	for interval, candles := range mtf {
		out = append(out, models.TimeframeTrend{
			Timeframe: interval,
			Direction: driftDirection(candles),
		})
	}
	return out
}

// driftDirection compares the last close against the window start, with a
// 0.5% dead band.
func driftDirection(candles []models.Candle) string {
	if len(candles) < 2 {
		return "neutral"
	}
	first := candles[0].Close
	last := candles[len(candles)-1].Close
	if first == 0 {
		return "neutral"
	}
	change := (last - first) / first * 100
	switch {
	case change > 0.5:
		return "up"
	case change < -0.5:
		return "down"
	default:
		return "neutral"
	}
}

// volume24h sums primary-timeframe volume over the trailing 24 hours.
func volume24h(candles []models.Candle) float64 {
	cutoff := time.Now().Add(-24 * time.Hour)
	var sum float64
	for _, c := range candles {
		if c.Timestamp.After(cutoff) {
			sum += c.Volume
		}
	}
	return sum
}

// dataQuality scores input availability 0-100: primary candles dominate,
// fine candles, order book, timeframes and sentiment share the rest.
func dataQuality(data marketData, sent *models.AggregatedSentiment) float64 {
	score := 0.0

	if n := len(data.primary); n > 0 {
		share := float64(n) / 200.0
		if share > 1 {
			share = 1
		}
		score += share * 50
	}
	if len(data.fine) > 0 {
		score += 10
	}
	if data.book != nil {
		score += 10
	}
	if len(data.mtf) > 0 {
		score += float64(len(data.mtf)) / 3.0 * 15
		if score > 85 {
			score = 85
		}
	}
	if sent != nil && sent.Confidence > 0 {
		score += 15
	}

	if score > 100 {
		score = 100
	}
	return score
}

// overallConfidence blends the per-stage confidences into one 0-100 score.
// Weights favor indicator certainty and data quality; regime strength,
// timeframe confluence and threshold maturity refine it.
func overallConfidence(report *models.MarketStatusReport) float64 {
	var sum, weight float64

	if report.Indicators != nil {
		sum += report.Indicators.Confidence * 0.30
		weight += 0.30
	}
	sum += report.DataQuality * 0.25
	weight += 0.25

	if report.Regime != nil {
		sum += report.Regime.Strength * 0.20
		weight += 0.20
		sum += report.Regime.Confluence * 0.10
		weight += 0.10
		sum += report.Regime.Thresholds.Confidence * 0.10
		weight += 0.10
	}
	if report.History != nil {
		sum += report.History.QualityScore * 0.05
		weight += 0.05
	}

	if weight == 0 {
		return 0
	}
	c := sum / weight
	if c < 0 {
		c = 0
	}
	if c > 100 {
		c = 100
	}
	return c
}

// depth labels how much of the analysis is backed by real data.
func depth(confidence, quality float64) string {
	blend := (confidence + quality) / 2
	switch {
	case blend >= 80:
		return models.DepthAdvanced
	case blend >= 60:
		return models.DepthComprehensive
	case blend >= 35:
		return models.DepthStandard
	default:
		return models.DepthBasic
	}
}
