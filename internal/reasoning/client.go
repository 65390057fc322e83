package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platform "github.com/Alias1177/MarketPulse/internal/platform/http"
	"github.com/Alias1177/MarketPulse/models"
)

// Client talks to an OpenAI-compatible chat completions endpoint and turns
// a structured market context into a recommendation. The pipeline treats it
// as an opaque collaborator: unavailability omits the field, never fails
// the report.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *platform.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new reasoning client.
type ClientOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new reasoning client.
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = "https://api.openai.com"
	}
	if options.Model == "" {
		options.Model = "gpt-4o-mini"
	}
	if options.Timeout == 0 {
		options.Timeout = 45 * time.Second
	}

	return &Client{
		apiKey:  options.APIKey,
		baseURL: options.BaseURL,
		model:   options.Model,
		httpClient: platform.NewClient(platform.ClientOptions{
			Timeout:        options.Timeout,
			RequestsPerSec: 2,
		}),
		logger: log.With().Str("component", "reasoning").Logger(),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze sends the structured context and parses the constrained answer.
func (c *Client) Analyze(ctx context.Context, reportContext string) (*models.ReasoningResult, error) {
	prompt := buildPrompt(reportContext)

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a disciplined market analyst. Answer only in the requested format."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("reasoning request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		c.logger.Warn().Msg("Reasoning returned empty choices")
		return nil, fmt.Errorf("empty completion")
	}

	return parseAnswer(parsed.Choices[0].Message.Content), nil
}

func buildPrompt(reportContext string) string {
	var sb strings.Builder
	sb.WriteString("Given the following market analysis context, give a trading stance.\n\n")
	sb.WriteString(reportContext)
	sb.WriteString("\n\nAnswer in exactly this format:\n")
	sb.WriteString("RECOMMENDATION: BUY|HOLD|SELL\n")
	sb.WriteString("RISK: LOW|MEDIUM|HIGH\n")
	sb.WriteString("CONFIDENCE: <0-100>\n")
	sb.WriteString("REASONING: <2-3 sentences>\n")
	return sb.String()
}

// parseAnswer tolerates sloppy model output, falling back to HOLD/MEDIUM
// rather than failing the report on a malformed line.
func parseAnswer(content string) *models.ReasoningResult {
	result := &models.ReasoningResult{
		Recommendation: models.RecommendationHold,
		Risk:           "MEDIUM",
	}

	for _, line := range strings.Split(content, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "RECOMMENDATION":
			v := strings.ToUpper(value)
			if v == models.RecommendationBuy || v == models.RecommendationSell || v == models.RecommendationHold {
				result.Recommendation = v
			}
		case "RISK":
			v := strings.ToUpper(value)
			if v == "LOW" || v == "MEDIUM" || v == "HIGH" {
				result.Risk = v
			}
		case "CONFIDENCE":
			if f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64); err == nil {
				if f < 0 {
					f = 0
				}
				if f > 100 {
					f = 100
				}
				result.Confidence = f
			}
		case "REASONING":
			result.Reasoning = value
		}
	}

	if result.Reasoning == "" {
		result.Reasoning = strings.TrimSpace(content)
	}
	return result
}
