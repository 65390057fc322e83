package history

import (
	"sync"
	"time"

	"github.com/Alias1177/MarketPulse/models"
)

// record is one stored observation: the fingerprint plus the price it was
// taken at, so outcomes can be backfilled on later visits.
type record struct {
	Fingerprint models.HistoricalFingerprint `json:"fingerprint"`
	Price       float64                      `json:"price"`
}

// patternEvent is one pattern occurrence awaiting outcome resolution.
type patternEvent struct {
	Name     string    `json:"name"`
	Signal   string    `json:"signal"`
	Price    float64   `json:"price"`
	SeenAt   time.Time `json:"seen_at"`
	Resolved bool      `json:"resolved"`
}

// symbolHistory is all rolling state for one instrument.
type symbolHistory struct {
	Records    []record                      `json:"records"`
	Volatility []float64                     `json:"volatility"` // ATR% samples
	Pending    []patternEvent                `json:"pending"`
	Patterns   map[string]models.PatternStat `json:"patterns"`
}

// Store keeps bounded per-instrument rolling buffers. Oldest entries are
// evicted first, by count and by age. All state is recomputable; the store
// is never authoritative.
type Store struct {
	mu       sync.Mutex
	symbols  map[string]*symbolHistory
	maxCount int
	maxAge   time.Duration
}

// NewStore creates a rolling history store with the given bounds.
func NewStore(maxCount int, maxAge time.Duration) *Store {
	if maxCount <= 0 {
		maxCount = 500
	}
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return &Store{
		symbols:  make(map[string]*symbolHistory),
		maxCount: maxCount,
		maxAge:   maxAge,
	}
}

func (s *Store) get(symbol string) *symbolHistory {
	h, ok := s.symbols[symbol]
	if !ok {
		h = &symbolHistory{Patterns: make(map[string]models.PatternStat)}
		s.symbols[symbol] = h
	}
	return h
}

// Append records a fingerprint observation, backfills the outcome of the
// previous observation from the price move since then, and evicts entries
// beyond the count/age bounds.
func (s *Store) Append(fp models.HistoricalFingerprint, price float64, atrPercent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.get(fp.Symbol)

	if n := len(h.Records); n > 0 && price > 0 {
		prev := &h.Records[n-1]
		if prev.Fingerprint.OutcomePct == nil && prev.Price > 0 {
			outcome := (price - prev.Price) / prev.Price * 100
			prev.Fingerprint.OutcomePct = &outcome
		}
	}

	h.Records = append(h.Records, record{Fingerprint: fp, Price: price})
	h.Volatility = append(h.Volatility, atrPercent)

	cutoff := time.Now().Add(-s.maxAge)
	for len(h.Records) > 0 &&
		(len(h.Records) > s.maxCount || h.Records[0].Fingerprint.Timestamp.Before(cutoff)) {
		h.Records = h.Records[1:]
	}
	if len(h.Volatility) > s.maxCount {
		h.Volatility = h.Volatility[len(h.Volatility)-s.maxCount:]
	}
}

// RecordPatterns registers current pattern matches as pending events and
// resolves earlier pending events against the current price.
func (s *Store) RecordPatterns(symbol string, matches []models.PatternMatch, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.get(symbol)
	now := time.Now().UTC()

	// Resolve pending events from earlier calls.
	var unresolved []patternEvent
	for _, ev := range h.Pending {
		if ev.Price <= 0 || price <= 0 || now.Sub(ev.SeenAt) < time.Minute {
			unresolved = append(unresolved, ev)
			continue
		}
		movePct := (price - ev.Price) / ev.Price * 100
		success := (ev.Signal == models.SignalBullish && movePct > 0) ||
			(ev.Signal == models.SignalBearish && movePct < 0)

		stat := h.Patterns[ev.Name]
		stat.Name = ev.Name
		stat.Occurrences++
		if success {
			stat.Successes++
		}
		stat.SuccessRate = float64(stat.Successes) / float64(stat.Occurrences)
		stat.LastSeen = ev.SeenAt
		h.Patterns[ev.Name] = stat
	}
	h.Pending = unresolved

	for _, m := range matches {
		if m.Signal == models.SignalNeutral {
			continue
		}
		h.Pending = append(h.Pending, patternEvent{
			Name:   m.Name,
			Signal: m.Signal,
			Price:  price,
			SeenAt: now,
		})
	}
	if len(h.Pending) > s.maxCount {
		h.Pending = h.Pending[len(h.Pending)-s.maxCount:]
	}
}

// TagRegime stamps the most recent record with the regime label that was
// classified after the record was appended.
func (s *Store) TagRegime(symbol, regime string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.get(symbol)
	if n := len(h.Records); n > 0 {
		h.Records[n-1].Fingerprint.Regime = regime
	}
}

// PatternStat returns the stat for one pattern name, with a neutral prior of
// 0.5 for patterns never resolved.
func (s *Store) PatternStat(symbol, name string) models.PatternStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.get(symbol)
	if stat, ok := h.Patterns[name]; ok {
		return stat
	}
	return models.PatternStat{Name: name, SuccessRate: 0.5}
}

// Records returns a copy of the instrument's fingerprint records.
func (s *Store) Records(symbol string) []record {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.get(symbol)
	out := make([]record, len(h.Records))
	copy(out, h.Records)
	return out
}

// VolatilitySamples returns a copy of the instrument's ATR% history.
func (s *Store) VolatilitySamples(symbol string) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.get(symbol)
	out := make([]float64, len(h.Volatility))
	copy(out, h.Volatility)
	return out
}

// Depth returns the number of stored records for an instrument.
func (s *Store) Depth(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.get(symbol).Records)
}

// snapshot/restore support the optional persistence layer.
func (s *Store) snapshot(symbol string) *symbolHistory {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.get(symbol)
	cp := *h
	return &cp
}

func (s *Store) restore(symbol string, h *symbolHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.Patterns == nil {
		h.Patterns = make(map[string]models.PatternStat)
	}
	s.symbols[symbol] = h
}
