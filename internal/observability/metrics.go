// Package observability holds the service's domain metrics.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu sync.Mutex

	cacheOpTotal     *prometheus.CounterVec
	tierResultsTotal *prometheus.CounterVec
	cacheBytes       prometheus.Gauge
	cacheEntries     prometheus.Gauge
	evictedTotal     prometheus.Counter
	storeOpDuration  *prometheus.HistogramVec
	formatTotal      *prometheus.CounterVec
	formatDuration   prometheus.Histogram
)

// Init registers the domain metrics with reg. Safe to call more than once;
// later calls re-point the package at freshly created collectors.
func Init(reg prometheus.Registerer) {
	mu.Lock()
	defer mu.Unlock()

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qid_cache_op_total",
			Help: "Qid cache operations by outcome.",
		},
		[]string{"op", "outcome"},
	)
	tierResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qid_cache_tier_results_total",
			Help: "Hits and misses per cache tier.",
		},
		[]string{"tier", "outcome"},
	)
	cacheBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qid_cache_bytes",
		Help: "Aggregate size of the in-memory qid tier in bytes.",
	})
	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qid_cache_entries",
		Help: "Number of entries in the in-memory qid tier.",
	})
	evictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qid_cache_evicted_total",
		Help: "Entries evicted from the in-memory qid tier.",
	})
	storeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qid_store_op_duration_seconds",
			Help:    "Duration of durable store operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)
	formatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_format_total",
			Help: "Query formatting calls by outcome.",
		},
		[]string{"outcome"},
	)
	formatDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "query_format_duration_seconds",
		Help:    "Duration of query formatting in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	if reg != nil {
		reg.MustRegister(cacheOpTotal, tierResultsTotal, cacheBytes, cacheEntries,
			evictedTotal, storeOpDuration, formatTotal, formatDuration)
	}
}

func ObserveCacheOp(op string, err error) {
	mu.Lock()
	defer mu.Unlock()
	if cacheOpTotal == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cacheOpTotal.WithLabelValues(op, outcome).Inc()
}

func IncTierResult(tier string, hit bool) {
	mu.Lock()
	defer mu.Unlock()
	if tierResultsTotal == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	tierResultsTotal.WithLabelValues(tier, outcome).Inc()
}

func SetCacheSize(bytes int64, entries int) {
	mu.Lock()
	defer mu.Unlock()
	if cacheBytes == nil {
		return
	}
	cacheBytes.Set(float64(bytes))
	cacheEntries.Set(float64(entries))
}

func AddEvicted(n int) {
	mu.Lock()
	defer mu.Unlock()
	if evictedTotal == nil || n <= 0 {
		return
	}
	evictedTotal.Add(float64(n))
}

func ObserveStoreOp(op string, err error, seconds float64) {
	mu.Lock()
	defer mu.Unlock()
	if storeOpDuration == nil {
		return
	}
	storeOpDuration.WithLabelValues(op).Observe(seconds)
	if cacheOpTotal != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		cacheOpTotal.WithLabelValues("durable_"+op, outcome).Inc()
	}
}

func ObserveFormat(outcome string, seconds float64) {
	mu.Lock()
	defer mu.Unlock()
	if formatTotal == nil {
		return
	}
	formatTotal.WithLabelValues(outcome).Inc()
	formatDuration.Observe(seconds)
}
