package models

import "context"

// CandleSource returns ordered (oldest first) candles for an instrument and
// timeframe. Short or empty sequences are valid responses, not errors.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, interval string, count int) ([]Candle, error)
}

// OrderBookSource returns the top-N levels of both book sides.
type OrderBookSource interface {
	GetOrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error)
}

// SentimentSource is one independent sentiment proxy. Fetch failures mean
// "unavailable", the aggregator omits the source from the mean.
type SentimentSource interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (SentimentReading, error)
}

// ReasoningClient is the external collaborator that phrases the final
// recommendation from a structured context.
type ReasoningClient interface {
	Analyze(ctx context.Context, reportContext string) (*ReasoningResult, error)
}
