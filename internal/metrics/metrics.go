package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	StageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marketpulse",
			Subsystem: "pipeline",
			Name:      "stage_latency_seconds",
			Help:      "Latency of each analysis stage",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	StageFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketpulse",
			Subsystem: "pipeline",
			Name:      "stage_fallbacks_total",
			Help:      "Stages replaced by their documented fallback",
		},
		[]string{"stage"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marketpulse",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Report cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marketpulse",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Report cache misses (expired or absent)",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(StageLatency, StageFallbacks, CacheHits, CacheMisses)
	})
}
