package orchestrator

import (
	"sync"
	"time"

	"github.com/Alias1177/MarketPulse/models"
)

type cacheEntry struct {
	report *models.MarketStatusReport
	exp    time.Time
}

// reportCache is a per-instrument TTL cache. There is no active eviction
// sweep, only TTL-checked-on-read replacement: every entry is recomputable.
type reportCache struct {
	mu sync.RWMutex
	m  map[string]cacheEntry
}

func newReportCache() *reportCache {
	return &reportCache{m: make(map[string]cacheEntry)}
}

func (c *reportCache) Get(symbol string) (*models.MarketStatusReport, bool) {
	c.mu.RLock()
	e, ok := c.m[symbol]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, symbol)
		c.mu.Unlock()
		return nil, false
	}
	return e.report, true
}

func (c *reportCache) Set(symbol string, report *models.MarketStatusReport, ttl time.Duration) {
	c.mu.Lock()
	c.m[symbol] = cacheEntry{report: report, exp: time.Now().Add(ttl)}
	c.mu.Unlock()
}
