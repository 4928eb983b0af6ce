package cache

import "github.com/prometheus/client_golang/prometheus"

// promMetrics mirrors the Stats counters onto a Prometheus registerer, plus
// a size gauge and an operation latency histogram. Every metric carries the
// cache name as a const label so that multiple instances can share one
// registerer.
type promMetrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	evictions   prometheus.Counter
	expirations prometheus.Counter
	size        prometheus.Gauge
	latency     prometheus.Histogram
}

func newPromMetrics(reg prometheus.Registerer, name string) (*promMetrics, error) {
	labels := prometheus.Labels{"cache": name}
	m := &promMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cachekit_cache_hits_total",
			Help:        "Total number of cache hits",
			ConstLabels: labels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cachekit_cache_misses_total",
			Help:        "Total number of cache misses",
			ConstLabels: labels,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cachekit_cache_evictions_total",
			Help:        "Total number of entries evicted to satisfy the size bound",
			ConstLabels: labels,
		}),
		expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "cachekit_cache_expirations_total",
			Help:        "Total number of entries removed because their TTL elapsed",
			ConstLabels: labels,
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "cachekit_cache_size",
			Help:        "Current number of entries in the cache",
			ConstLabels: labels,
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "cachekit_cache_latency_seconds",
			Help:        "Latency of cache operations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
	for _, col := range []prometheus.Collector{
		m.hits, m.misses, m.evictions, m.expirations, m.size, m.latency,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return m, nil
}
