package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platform "github.com/Alias1177/MarketPulse/internal/platform/http"
	"github.com/Alias1177/MarketPulse/models"
)

// Client fetches candle and order-book data from a Binance-style REST API.
type Client struct {
	baseURL    string
	httpClient *platform.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new exchange data client.
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new exchange data client.
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = "https://api.binance.com"
	}

	return &Client{
		baseURL: options.BaseURL,
		httpClient: platform.NewClient(platform.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "datasource").Logger(),
	}
}

// GetCandles fetches up to count candles for symbol/interval, oldest first.
// A short or empty response is returned as-is; callers treat missing data as
// a quality signal, not an error.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, count int) ([]models.Candle, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		c.baseURL, symbol, interval, count)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching klines: %w", err)
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		c.logger.Error().Err(err).Msg("Error parsing klines JSON")
		return nil, fmt.Errorf("parsing klines: %w", err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		candle, err := parseKline(row)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed kline row")
			continue
		}
		candles = append(candles, candle)
	}

	c.logger.Debug().Str("symbol", symbol).Str("interval", interval).
		Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

// GetOrderBook fetches the top levels of both book sides.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error) {
	url := fmt.Sprintf("%s/api/v3/depth?symbol=%s&limit=%d", c.baseURL, symbol, depth)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching depth: %w", err)
	}

	var raw struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing depth: %w", err)
	}

	book := &models.OrderBook{
		Bids: parseLevels(raw.Bids),
		Asks: parseLevels(raw.Asks),
	}
	return book, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func parseKline(row []json.RawMessage) (models.Candle, error) {
	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(row[i], &s); err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		fields[i-1] = v
	}

	return models.Candle{
		Timestamp: time.UnixMilli(openTime),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

func parseLevels(raw [][2]string) []models.OrderBookLevel {
	levels := make([]models.OrderBookLevel, 0, len(raw))
	for _, pair := range raw {
		price, err1 := strconv.ParseFloat(pair[0], 64)
		size, err2 := strconv.ParseFloat(pair[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, models.OrderBookLevel{Price: price, Size: size})
	}
	return levels
}
