package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every tunable of the analysis pipeline. Fusion weights and
// percentile cut points ship as defaults here rather than constants in code.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Exchange struct {
		BaseURL        string   `yaml:"base_url"`
		RequestTimeout Duration `yaml:"request_timeout"`
		RequestsPerSec int      `yaml:"requests_per_sec"`
		MaxRetryTime   Duration `yaml:"max_retry_time"`
	} `yaml:"exchange"`

	Analysis struct {
		Interval       string   `yaml:"interval"`
		FineInterval   string   `yaml:"fine_interval"`
		CandleCount    int      `yaml:"candle_count"`
		MTFIntervals   []string `yaml:"mtf_intervals"`
		OrderBookDepth int      `yaml:"order_book_depth"`

		RSIPeriod        int     `yaml:"rsi_period"`
		MACDFastPeriod   int     `yaml:"macd_fast_period"`
		MACDSlowPeriod   int     `yaml:"macd_slow_period"`
		MACDSignalPeriod int     `yaml:"macd_signal_period"`
		BBPeriod         int     `yaml:"bb_period"`
		BBStdDev         float64 `yaml:"bb_std_dev"`
		ATRPeriod        int     `yaml:"atr_period"`
	} `yaml:"analysis"`

	Sentiment struct {
		Enabled       bool     `yaml:"enabled"`
		SourceTimeout Duration `yaml:"source_timeout"`
		Weights       struct {
			FearGreed      float64 `yaml:"fear_greed"`
			FundingRate    float64 `yaml:"funding_rate"`
			OpenInterest   float64 `yaml:"open_interest"`
			LongShortRatio float64 `yaml:"long_short_ratio"`
			Social         float64 `yaml:"social"`
		} `yaml:"weights"`
	} `yaml:"sentiment"`

	History struct {
		MaxFingerprints int      `yaml:"max_fingerprints"`
		MaxAge          Duration `yaml:"max_age"`
		SimilarityMin   float64  `yaml:"similarity_min"`
		MaxMatches      int      `yaml:"max_matches"`
	} `yaml:"history"`

	Regime struct {
		HistorySize   int     `yaml:"history_size"`
		MinSamples    int     `yaml:"min_samples"`
		ConfidenceCap float64 `yaml:"confidence_cap"`
	} `yaml:"regime"`

	Cache struct {
		ReportTTL Duration `yaml:"report_ttl"`
	} `yaml:"cache"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Reasoning struct {
		Enabled bool     `yaml:"enabled"`
		BaseURL string   `yaml:"base_url"`
		APIKey  string   `yaml:"api_key"`
		Model   string   `yaml:"model"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"reasoning"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Default returns a configuration carrying the documented default weights
// and cut points.
func Default() *Config {
	var c Config
	c.LogLevel = "info"

	c.Exchange.BaseURL = "https://api.binance.com"
	c.Exchange.RequestTimeout = Duration(30 * time.Second)
	c.Exchange.RequestsPerSec = 5
	c.Exchange.MaxRetryTime = Duration(30 * time.Second)

	c.Analysis.Interval = "5m"
	c.Analysis.FineInterval = "1m"
	c.Analysis.CandleCount = 200
	c.Analysis.MTFIntervals = []string{"15m", "1h", "4h"}
	c.Analysis.OrderBookDepth = 20
	c.Analysis.RSIPeriod = 14
	c.Analysis.MACDFastPeriod = 12
	c.Analysis.MACDSlowPeriod = 26
	c.Analysis.MACDSignalPeriod = 9
	c.Analysis.BBPeriod = 20
	c.Analysis.BBStdDev = 2.0
	c.Analysis.ATRPeriod = 14

	c.Sentiment.Enabled = true
	c.Sentiment.SourceTimeout = Duration(10 * time.Second)
	c.Sentiment.Weights.FearGreed = 0.25
	c.Sentiment.Weights.FundingRate = 0.30
	c.Sentiment.Weights.OpenInterest = 0.20
	c.Sentiment.Weights.LongShortRatio = 0.15
	c.Sentiment.Weights.Social = 0.10

	c.History.MaxFingerprints = 500
	c.History.MaxAge = Duration(30 * 24 * time.Hour)
	c.History.SimilarityMin = 0.7
	c.History.MaxMatches = 10

	c.Regime.HistorySize = 500
	c.Regime.MinSamples = 20
	c.Regime.ConfidenceCap = 95

	c.Cache.ReportTTL = Duration(5 * time.Minute)

	c.Reasoning.BaseURL = "https://api.openai.com"
	c.Reasoning.Model = "gpt-4o-mini"
	c.Reasoning.Timeout = Duration(45 * time.Second)

	c.Metrics.Enabled = true
	return &c
}

// Load reads and parses a YAML configuration file on top of defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML (defaults when the file is missing) and
// overrides secrets and endpoints from environment variables.
func LoadWithEnv(path string) (*Config, error) {
	var c *Config
	if _, err := os.Stat(path); err == nil {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		c = Default()
	}

	if v := os.Getenv("EXCHANGE_BASE_URL"); v != "" {
		c.Exchange.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Reasoning.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange.base_url is required")
	}
	if c.Analysis.CandleCount < 2 {
		return fmt.Errorf("analysis.candle_count must be at least 2, got %d", c.Analysis.CandleCount)
	}
	w := c.Sentiment.Weights
	total := w.FearGreed + w.FundingRate + w.OpenInterest + w.LongShortRatio + w.Social
	if total < 0.99 || total > 1.01 {
		return fmt.Errorf("sentiment weights must sum to 1.0, got %.2f", total)
	}
	if c.History.SimilarityMin < 0 || c.History.SimilarityMin > 1 {
		return fmt.Errorf("history.similarity_min must be in [0,1], got %.2f", c.History.SimilarityMin)
	}
	if c.Regime.MinSamples < 1 {
		return fmt.Errorf("regime.min_samples must be positive")
	}
	if c.Cache.ReportTTL <= 0 {
		return fmt.Errorf("cache.report_ttl must be positive")
	}
	if c.Reasoning.Enabled && c.Reasoning.APIKey == "" {
		return fmt.Errorf("reasoning.api_key is required when reasoning is enabled")
	}
	return nil
}
