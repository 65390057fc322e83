package reasoning

import (
	"testing"

	"github.com/Alias1177/MarketPulse/models"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		recommendation string
		risk           string
		confidence     float64
	}{
		{
			name: "well formed",
			content: "RECOMMENDATION: BUY\n" +
				"RISK: LOW\n" +
				"CONFIDENCE: 72\n" +
				"REASONING: Strong uptrend with volume confirmation.",
			recommendation: models.RecommendationBuy,
			risk:           "LOW",
			confidence:     72,
		},
		{
			name:           "lowercase keys tolerated",
			content:        "recommendation: sell\nrisk: high\nconfidence: 40%\nreasoning: weak structure",
			recommendation: models.RecommendationSell,
			risk:           "HIGH",
			confidence:     40,
		},
		{
			name:           "confidence clamped",
			content:        "RECOMMENDATION: HOLD\nRISK: MEDIUM\nCONFIDENCE: 250\nREASONING: x",
			recommendation: models.RecommendationHold,
			risk:           "MEDIUM",
			confidence:     100,
		},
		{
			name:           "garbage falls back to hold",
			content:        "the market looks complicated today",
			recommendation: models.RecommendationHold,
			risk:           "MEDIUM",
			confidence:     0,
		},
		{
			name:           "unknown recommendation ignored",
			content:        "RECOMMENDATION: YOLO\nRISK: LOW\nCONFIDENCE: 60\nREASONING: x",
			recommendation: models.RecommendationHold,
			risk:           "LOW",
			confidence:     60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAnswer(tt.content)
			if got.Recommendation != tt.recommendation {
				t.Errorf("Recommendation = %q, want %q", got.Recommendation, tt.recommendation)
			}
			if got.Risk != tt.risk {
				t.Errorf("Risk = %q, want %q", got.Risk, tt.risk)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.confidence)
			}
		})
	}
}

func TestParseAnswerFallbackReasoning(t *testing.T) {
	content := "nothing structured here"
	got := parseAnswer(content)
	if got.Reasoning != content {
		t.Errorf("Reasoning = %q, want the raw content as fallback", got.Reasoning)
	}
}
