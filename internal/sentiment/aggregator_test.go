package sentiment

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/Alias1177/MarketPulse/models"
)

type stubSource struct {
	name    string
	reading models.SentimentReading
	err     error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, symbol string) (models.SentimentReading, error) {
	if s.err != nil {
		return models.SentimentReading{}, s.err
	}
	return s.reading, nil
}

func reading(source string, score, confidence float64) models.SentimentReading {
	return models.SentimentReading{
		Source:     source,
		Score:      score,
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
	}
}

func TestTotalSourceFailure(t *testing.T) {
	agg := NewAggregator(Options{
		Sources: []models.SentimentSource{
			&stubSource{name: SourceFearGreed, err: fmt.Errorf("unreachable")},
			&stubSource{name: SourceFundingRate, err: fmt.Errorf("timeout")},
		},
		SourceTimeout: time.Second,
	})

	got := agg.GetAggregatedSentiment(context.Background(), "BTCUSDT", true)

	if got.Score != 50 {
		t.Errorf("Score = %v, want neutral 50 when every source fails", got.Score)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", got.Confidence)
	}
	if got.SourcesUsed == nil || len(got.SourcesUsed) != 0 {
		t.Errorf("SourcesUsed = %v, want empty non-nil slice", got.SourcesUsed)
	}
}

func TestPartialSourceFailure(t *testing.T) {
	agg := NewAggregator(Options{
		Sources: []models.SentimentSource{
			&stubSource{name: SourceFearGreed, reading: reading(SourceFearGreed, 80, 0.9)},
			&stubSource{name: SourceFundingRate, err: fmt.Errorf("timeout")},
		},
		SourceTimeout: time.Second,
	})

	got := agg.GetAggregatedSentiment(context.Background(), "BTCUSDT", true)

	if got.Score != 80 {
		t.Errorf("Score = %v, want 80 from the single surviving source", got.Score)
	}
	if len(got.SourcesUsed) != 1 || got.SourcesUsed[0] != SourceFearGreed {
		t.Errorf("SourcesUsed = %v, want [fear_greed]", got.SourcesUsed)
	}
	if got.Confidence <= 0 || got.Confidence > 1 {
		t.Errorf("Confidence = %v, want in (0, 1]", got.Confidence)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	readings := []models.SentimentReading{
		reading(SourceFearGreed, 70, 0.9),
		reading(SourceFundingRate, 40, 0.8),
		reading(SourceOpenInterest, 55, 0.7),
	}
	reversed := []models.SentimentReading{readings[2], readings[1], readings[0]}

	a := NewAggregator(Options{})
	b := NewAggregator(Options{})

	got1 := a.aggregate("BTCUSDT", readings, len(readings))
	got2 := b.aggregate("BTCUSDT", reversed, len(reversed))

	if got1.Score != got2.Score {
		t.Errorf("aggregate() order dependent: %v vs %v", got1.Score, got2.Score)
	}
	if got1.Label != got2.Label || got1.Contrarian != got2.Contrarian {
		t.Error("aggregate() labels diverge across input orders")
	}
}

func TestConfidenceExcludesSkippedSources(t *testing.T) {
	agg := NewAggregator(Options{
		Sources: []models.SentimentSource{
			&stubSource{name: SourceFearGreed, reading: reading(SourceFearGreed, 60, 0.8)},
			&stubSource{name: SourceFundingRate, reading: reading(SourceFundingRate, 55, 0.6)},
			&stubSource{name: SourceSocial, reading: reading(SourceSocial, 90, 0.9)},
		},
		SourceTimeout: time.Second,
	})

	got := agg.GetAggregatedSentiment(context.Background(), "BTCUSDT", false)

	// Social is excluded from the poll, so it must not dilute confidence.
	want := (0.8 + 0.6) / 2
	if math.Abs(got.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v over the two polled sources", got.Confidence, want)
	}
	for _, s := range got.SourcesUsed {
		if s == SourceSocial {
			t.Errorf("SourcesUsed = %v, social must be absent", got.SourcesUsed)
		}
	}
}

func TestContrarian(t *testing.T) {
	tests := []struct {
		name     string
		readings []models.SentimentReading
		score    float64
		want     bool
	}{
		{
			name: "extreme with two agreeing sources",
			readings: []models.SentimentReading{
				reading(SourceFearGreed, 10, 0.9),
				reading(SourceFundingRate, 12, 0.8),
			},
			score: 11,
			want:  true,
		},
		{
			name: "extreme with one agreeing source",
			readings: []models.SentimentReading{
				reading(SourceFearGreed, 10, 0.9),
				reading(SourceFundingRate, 30, 0.8),
			},
			score: 14,
			want:  false,
		},
		{
			name: "divergence above forty points",
			readings: []models.SentimentReading{
				reading(SourceFearGreed, 25, 0.9),
				reading(SourceFundingRate, 75, 0.8),
			},
			score: 50,
			want:  true,
		},
		{
			name: "mid range agreement",
			readings: []models.SentimentReading{
				reading(SourceFearGreed, 45, 0.9),
				reading(SourceFundingRate, 55, 0.8),
			},
			score: 50,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contrarian(tt.score, tt.readings); got != tt.want {
				t.Errorf("contrarian() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{5, "Extreme Fear"},
		{25, "Fear"},
		{50, "Neutral"},
		{65, "Greed"},
		{90, "Extreme Greed"},
	}

	for _, tt := range tests {
		if got := scoreLabel(tt.score); got != tt.want {
			t.Errorf("scoreLabel(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestClassifyTrend(t *testing.T) {
	agg := NewAggregator(Options{})

	// Build a rolling history around 50, then push an improving score.
	for i := 0; i < 5; i++ {
		agg.classifyTrend("BTCUSDT", 50)
	}
	if got := agg.classifyTrend("BTCUSDT", 60); got != "improving" {
		t.Errorf("classifyTrend() = %q, want improving", got)
	}
	if got := agg.classifyTrend("ETHUSDT", 60); got != "stable" {
		t.Errorf("classifyTrend() with no history = %q, want stable", got)
	}
}
