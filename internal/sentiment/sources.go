package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	platform "github.com/Alias1177/MarketPulse/internal/platform/http"
	"github.com/Alias1177/MarketPulse/models"
)

// Source identifiers, also used as weight keys.
const (
	SourceFearGreed      = "fear_greed"
	SourceFundingRate    = "funding_rate"
	SourceOpenInterest   = "open_interest"
	SourceLongShortRatio = "long_short_ratio"
	SourceSocial         = "social"
)

func fetchJSON(ctx context.Context, client *platform.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.DoRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// FearGreedSource polls the alternative.me style fear & greed index.
type FearGreedSource struct {
	BaseURL string
	Client  *platform.Client
}

func (s *FearGreedSource) Name() string { return SourceFearGreed }

func (s *FearGreedSource) Fetch(ctx context.Context, symbol string) (models.SentimentReading, error) {
	body, err := fetchJSON(ctx, s.Client, s.BaseURL+"/fng/?limit=1")
	if err != nil {
		return models.SentimentReading{}, fmt.Errorf("fear/greed fetch: %w", err)
	}

	var raw struct {
		Data []struct {
			Value               string `json:"value"`
			ValueClassification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || len(raw.Data) == 0 {
		return models.SentimentReading{}, fmt.Errorf("fear/greed parse: %w", err)
	}

	value, err := strconv.ParseFloat(raw.Data[0].Value, 64)
	if err != nil {
		return models.SentimentReading{}, fmt.Errorf("fear/greed value: %w", err)
	}

	return models.SentimentReading{
		Source:     SourceFearGreed,
		Score:      clampScore(value),
		Label:      raw.Data[0].ValueClassification,
		Confidence: 0.9, // index is published, not derived
		Timestamp:  time.Now().UTC(),
		Raw:        body,
	}, nil
}

// FundingRateSource derives sentiment from the perpetual funding rate:
// positive funding means longs pay shorts, read as greed.
type FundingRateSource struct {
	BaseURL string
	Client  *platform.Client
}

func (s *FundingRateSource) Name() string { return SourceFundingRate }

func (s *FundingRateSource) Fetch(ctx context.Context, symbol string) (models.SentimentReading, error) {
	url := fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", s.BaseURL, symbol)
	body, err := fetchJSON(ctx, s.Client, url)
	if err != nil {
		return models.SentimentReading{}, fmt.Errorf("funding fetch: %w", err)
	}

	var raw struct {
		LastFundingRate string `json:"lastFundingRate"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.SentimentReading{}, fmt.Errorf("funding parse: %w", err)
	}
	rate, err := strconv.ParseFloat(raw.LastFundingRate, 64)
	if err != nil {
		return models.SentimentReading{}, fmt.Errorf("funding value: %w", err)
	}

	// Map funding of ±0.1% to the score extremes around 50.
	score := clampScore(50 + rate/0.001*50)
	return models.SentimentReading{
		Source:     SourceFundingRate,
		Score:      score,
		Label:      scoreLabel(score),
		Confidence: 0.85,
		Timestamp:  time.Now().UTC(),
		Raw:        body,
	}, nil
}

// OpenInterestSource reads the recent open-interest delta: growing OI with
// the prevailing move reads as conviction.
type OpenInterestSource struct {
	BaseURL string
	Client  *platform.Client
}

func (s *OpenInterestSource) Name() string { return SourceOpenInterest }

func (s *OpenInterestSource) Fetch(ctx context.Context, symbol string) (models.SentimentReading, error) {
	url := fmt.Sprintf("%s/futures/data/openInterestHist?symbol=%s&period=5m&limit=12", s.BaseURL, symbol)
	body, err := fetchJSON(ctx, s.Client, url)
	if err != nil {
		return models.SentimentReading{}, fmt.Errorf("open interest fetch: %w", err)
	}

	var raw []struct {
		SumOpenInterest string `json:"sumOpenInterest"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) < 2 {
		return models.SentimentReading{}, fmt.Errorf("open interest parse: %w", err)
	}

	first, err1 := strconv.ParseFloat(raw[0].SumOpenInterest, 64)
	last, err2 := strconv.ParseFloat(raw[len(raw)-1].SumOpenInterest, 64)
	if err1 != nil || err2 != nil || first == 0 {
		return models.SentimentReading{}, fmt.Errorf("open interest values malformed")
	}

	deltaPct := (last - first) / first * 100
	// ±10% OI change over the window maps to the score extremes.
	score := clampScore(50 + deltaPct/10*50)
	return models.SentimentReading{
		Source:     SourceOpenInterest,
		Score:      score,
		Label:      scoreLabel(score),
		Confidence: 0.7,
		Timestamp:  time.Now().UTC(),
		Raw:        body,
	}, nil
}

// LongShortRatioSource reads the global long/short account ratio.
type LongShortRatioSource struct {
	BaseURL string
	Client  *platform.Client
}

func (s *LongShortRatioSource) Name() string { return SourceLongShortRatio }

func (s *LongShortRatioSource) Fetch(ctx context.Context, symbol string) (models.SentimentReading, error) {
	url := fmt.Sprintf("%s/futures/data/globalLongShortAccountRatio?symbol=%s&period=5m&limit=1", s.BaseURL, symbol)
	body, err := fetchJSON(ctx, s.Client, url)
	if err != nil {
		return models.SentimentReading{}, fmt.Errorf("long/short fetch: %w", err)
	}

	var raw []struct {
		LongAccount string `json:"longAccount"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return models.SentimentReading{}, fmt.Errorf("long/short parse: %w", err)
	}
	long, err := strconv.ParseFloat(raw[0].LongAccount, 64)
	if err != nil {
		return models.SentimentReading{}, fmt.Errorf("long/short value: %w", err)
	}

	score := clampScore(long * 100)
	return models.SentimentReading{
		Source:     SourceLongShortRatio,
		Score:      score,
		Label:      scoreLabel(score),
		Confidence: 0.75,
		Timestamp:  time.Now().UTC(),
		Raw:        body,
	}, nil
}

// SocialSource polls a social volume endpoint. Included only when the caller
// enables social data; its score is the noisiest of the five.
type SocialSource struct {
	BaseURL string
	Client  *platform.Client
}

func (s *SocialSource) Name() string { return SourceSocial }

func (s *SocialSource) Fetch(ctx context.Context, symbol string) (models.SentimentReading, error) {
	url := fmt.Sprintf("%s/v1/social/sentiment?symbol=%s", s.BaseURL, symbol)
	body, err := fetchJSON(ctx, s.Client, url)
	if err != nil {
		return models.SentimentReading{}, fmt.Errorf("social fetch: %w", err)
	}

	var raw struct {
		Score      float64 `json:"score"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.SentimentReading{}, fmt.Errorf("social parse: %w", err)
	}

	conf := raw.Confidence
	if conf <= 0 || conf > 1 {
		conf = 0.5
	}
	score := clampScore(raw.Score)
	return models.SentimentReading{
		Source:     SourceSocial,
		Score:      score,
		Label:      scoreLabel(score),
		Confidence: conf,
		Timestamp:  time.Now().UTC(),
		Raw:        body,
	}, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
