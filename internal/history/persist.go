package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Persistence saves and restores per-instrument rolling buffers through
// redis so adaptive state survives restarts. Strictly best effort: every
// failure is logged and swallowed because all state is recomputable.
type Persistence struct {
	client *redis.Client
	store  *Store
}

// NewPersistence wires a store to a redis client. A nil client disables
// persistence entirely.
func NewPersistence(client *redis.Client, store *Store) *Persistence {
	return &Persistence{client: client, store: store}
}

func bufferKey(symbol string) string {
	return fmt.Sprintf("marketpulse:history:%s", symbol)
}

// Save serializes one instrument's buffers.
func (p *Persistence) Save(ctx context.Context, symbol string) {
	if p == nil || p.client == nil {
		return
	}

	b, err := json.Marshal(p.store.snapshot(symbol))
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("History snapshot marshal failed")
		return
	}

	if err := p.client.Set(ctx, bufferKey(symbol), b, 7*24*time.Hour).Err(); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("History snapshot save failed")
	}
}

// Load restores one instrument's buffers if a snapshot exists.
func (p *Persistence) Load(ctx context.Context, symbol string) {
	if p == nil || p.client == nil {
		return
	}

	b, err := p.client.Get(ctx, bufferKey(symbol)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("History snapshot load failed")
		}
		return
	}

	var h symbolHistory
	if err := json.Unmarshal(b, &h); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("History snapshot corrupt, ignoring")
		return
	}
	p.store.restore(symbol, &h)
}
