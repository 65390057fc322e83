package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MarketPulse/config"
	"github.com/Alias1177/MarketPulse/internal/datasource"
	"github.com/Alias1177/MarketPulse/internal/history"
	"github.com/Alias1177/MarketPulse/internal/indicators"
	"github.com/Alias1177/MarketPulse/internal/metrics"
	"github.com/Alias1177/MarketPulse/internal/orchestrator"
	"github.com/Alias1177/MarketPulse/internal/patterns"
	platform "github.com/Alias1177/MarketPulse/internal/platform/http"
	"github.com/Alias1177/MarketPulse/internal/reasoning"
	"github.com/Alias1177/MarketPulse/internal/regime"
	"github.com/Alias1177/MarketPulse/internal/sentiment"
	"github.com/Alias1177/MarketPulse/models"
)

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	setupSignalHandling(cancel)

	// 1. Load configuration
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}
	cfg, err := config.LoadWithEnv("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().Msg("Starting MarketPulse analyzer")

	// 3. Register metrics
	if cfg.Metrics.Enabled {
		metrics.Register()
	}

	// 4. Wire the pipeline
	service := buildService(ctx, cfg)

	// 5. Run one analysis per requested instrument
	symbol := os.Getenv("SYMBOL")
	if symbol == "" {
		symbol = "BTCUSDT"
	}

	report := service.GetMarketStatus(ctx, symbol, cfg.Reasoning.Enabled)
	printReport(report)
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
		os.Exit(0)
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// buildService wires every pipeline stage from the configuration.
func buildService(ctx context.Context, cfg *config.Config) *orchestrator.Service {
	exchange := datasource.NewClient(datasource.ClientOptions{
		BaseURL:         cfg.Exchange.BaseURL,
		RequestTimeout:  cfg.Exchange.RequestTimeout.Std(),
		RequestsPerSec:  cfg.Exchange.RequestsPerSec,
		MaxRetryTimeout: cfg.Exchange.MaxRetryTime.Std(),
	})

	indicatorEngine := indicators.NewEngine(indicators.Options{
		RSIPeriod:        cfg.Analysis.RSIPeriod,
		MACDFastPeriod:   cfg.Analysis.MACDFastPeriod,
		MACDSlowPeriod:   cfg.Analysis.MACDSlowPeriod,
		MACDSignalPeriod: cfg.Analysis.MACDSignalPeriod,
		BBPeriod:         cfg.Analysis.BBPeriod,
		BBStdDev:         cfg.Analysis.BBStdDev,
		ATRPeriod:        cfg.Analysis.ATRPeriod,
	})

	var aggregator *sentiment.Aggregator
	if cfg.Sentiment.Enabled {
		aggregator = sentiment.NewAggregator(sentiment.Options{
			Sources:       buildSentimentSources(cfg),
			Weights:       sentimentWeights(cfg),
			SourceTimeout: cfg.Sentiment.SourceTimeout.Std(),
		})
	}

	store := history.NewStore(cfg.History.MaxFingerprints, cfg.History.MaxAge.Std())
	var persistence *history.Persistence
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, history persistence disabled")
		} else {
			persistence = history.NewPersistence(client, store)
		}
	}

	historyEngine := history.NewEngine(history.Options{
		Store:         store,
		Persistence:   persistence,
		SimilarityMin: cfg.History.SimilarityMin,
		MaxMatches:    cfg.History.MaxMatches,
	})

	regimeDetector := regime.NewDetector(regime.Options{
		HistorySize:   cfg.Regime.HistorySize,
		MinSamples:    cfg.Regime.MinSamples,
		ConfidenceCap: cfg.Regime.ConfidenceCap,
	})

	var reasoner models.ReasoningClient
	if cfg.Reasoning.Enabled {
		reasoner = reasoning.NewClient(reasoning.ClientOptions{
			APIKey:  cfg.Reasoning.APIKey,
			BaseURL: cfg.Reasoning.BaseURL,
			Model:   cfg.Reasoning.Model,
			Timeout: cfg.Reasoning.Timeout.Std(),
		})
	}

	return orchestrator.NewService(orchestrator.Options{
		Candles:        exchange,
		OrderBook:      exchange,
		Indicators:     indicatorEngine,
		Patterns:       patterns.NewEngine(),
		Sentiment:      aggregator,
		History:        historyEngine,
		Regime:         regimeDetector,
		Reasoning:      reasoner,
		Interval:       cfg.Analysis.Interval,
		FineInterval:   cfg.Analysis.FineInterval,
		CandleCount:    cfg.Analysis.CandleCount,
		MTFIntervals:   cfg.Analysis.MTFIntervals,
		OrderBookDepth: cfg.Analysis.OrderBookDepth,
		ReportTTL:      cfg.Cache.ReportTTL.Std(),
	})
}

// buildSentimentSources assembles the five sentiment proxies against their
// default public endpoints.
func buildSentimentSources(cfg *config.Config) []models.SentimentSource {
	client := platform.NewClient(platform.ClientOptions{
		Timeout:        cfg.Sentiment.SourceTimeout.Std(),
		RequestsPerSec: 5,
	})

	futuresBase := "https://fapi.binance.com"
	return []models.SentimentSource{
		&sentiment.FearGreedSource{BaseURL: "https://api.alternative.me", Client: client},
		&sentiment.FundingRateSource{BaseURL: futuresBase, Client: client},
		&sentiment.OpenInterestSource{BaseURL: futuresBase, Client: client},
		&sentiment.LongShortRatioSource{BaseURL: futuresBase, Client: client},
		&sentiment.SocialSource{BaseURL: "https://api.senticrypt.com", Client: client},
	}
}

func sentimentWeights(cfg *config.Config) map[string]float64 {
	w := cfg.Sentiment.Weights
	return map[string]float64{
		sentiment.SourceFearGreed:      w.FearGreed,
		sentiment.SourceFundingRate:    w.FundingRate,
		sentiment.SourceOpenInterest:   w.OpenInterest,
		sentiment.SourceLongShortRatio: w.LongShortRatio,
		sentiment.SourceSocial:         w.Social,
	}
}

// printReport outputs the assembled report in human-readable form.
func printReport(report *models.MarketStatusReport) {
	fmt.Println("\n===== MARKET STATUS =====")
	fmt.Printf("Instrument: %s | Price: %.6f\n", report.Symbol, report.Price)
	fmt.Printf("Confidence: %.1f | Data Quality: %.1f | Depth: %s\n",
		report.OverallConfidence, report.DataQuality, report.Depth)

	if ind := report.Indicators; ind != nil {
		fmt.Printf("\nKey Indicators:\n")
		fmt.Printf("RSI: %.2f | Stochastic: %.2f | ATR%%: %.2f\n",
			ind.RSI, ind.Stochastic, ind.ATRPercent)
		fmt.Printf("Bollinger Bands: Upper: %.5f, Middle: %.5f, Lower: %.5f\n",
			ind.BBUpper, ind.BBMiddle, ind.BBLower)
		if ind.MACD != nil {
			fmt.Printf("MACD: %.5f, Signal: %.5f, Hist: %.5f\n",
				ind.MACD.MACD, ind.MACD.Signal, ind.MACD.Histogram)
		}
		if ind.MajorSupport != nil {
			fmt.Printf("Major Support: %.5f (strength %.0f)\n",
				ind.MajorSupport.Price, ind.MajorSupport.Strength)
		}
		if ind.MajorResistance != nil {
			fmt.Printf("Major Resistance: %.5f (strength %.0f)\n",
				ind.MajorResistance.Price, ind.MajorResistance.Strength)
		}
	}

	if reg := report.Regime; reg != nil {
		fmt.Printf("\nMarket Regime: %s (Strength: %.1f)\n", reg.Regime, reg.Strength)
		fmt.Printf("Trend: %s | Volatility: %s | Momentum: %s\n",
			reg.TrendDirection, reg.VolatilityLevel, reg.MomentumState)
		fmt.Printf("Timeframe Confluence: %.0f%% | Transition Probability: %.0f%%\n",
			reg.Confluence, reg.TransitionProbability)
	}

	if pat := report.Patterns; pat != nil && len(pat.Matches) > 0 {
		fmt.Printf("\nDetected Patterns (dominant %s, confluence %.0f):\n",
			pat.DominantSignal, pat.Confluence)
		for _, m := range pat.Matches {
			fmt.Printf("- %s [%s/%s] %.0f%%\n", m.Name, m.Family, m.Signal, m.Confidence)
		}
	}

	if sent := report.Sentiment; sent != nil {
		fmt.Printf("\nSentiment: %.1f (%s) | Emotion: %s | Trend: %s\n",
			sent.Score, sent.Label, sent.Emotion, sent.Trend)
		if sent.Contrarian {
			fmt.Println("CONTRARIAN SIGNAL: sentiment at an actionable extreme")
		}
	}

	if hist := report.History; hist != nil {
		fmt.Printf("\nHistorical Context: success probability %.2f, quality %.0f\n",
			hist.SuccessProbability, hist.QualityScore)
		fmt.Printf("Volatility Regime: %s\n", hist.VolatilityRegime)
		for _, b := range hist.ConfidenceBoosters {
			fmt.Printf("+ %s\n", b)
		}
		for _, r := range hist.RiskFactors {
			fmt.Printf("! %s\n", r)
		}
	}

	if report.Reasoning != nil {
		fmt.Println("\n===== AI ANALYSIS =====")
		fmt.Printf("Recommendation: %s | Risk: %s | Confidence: %.0f\n",
			report.Reasoning.Recommendation, report.Reasoning.Risk, report.Reasoning.Confidence)
		fmt.Println(report.Reasoning.Reasoning)
	}
	fmt.Println()
}
