package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload results used as the "result" label.
const (
	ResultOK          = "ok"
	ResultInvalid     = "invalid"
	ResultReadError   = "read_error"
	ResultTooLarge    = "too_large"
	ResultStoreFailed = "store_failed"
)

// Collector owns a private registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	uploads        *prometheus.CounterVec
	eventsAnalyzed prometheus.Counter
	computeSeconds prometheus.Histogram
	cacheHits      prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{registry: reg}

	c.uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rrweb_uploads_total",
		Help: "Recordings received, by result",
	}, []string{"result"})
	reg.MustRegister(c.uploads)

	c.eventsAnalyzed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rrweb_events_analyzed_total",
		Help: "Events folded into recording stats",
	})
	reg.MustRegister(c.eventsAnalyzed)

	c.computeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rrweb_stats_compute_seconds",
		Help:    "Time spent decoding and summarising a recording",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})
	reg.MustRegister(c.computeSeconds)

	c.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rrweb_stats_cache_hits_total",
		Help: "Stats requests answered from the cache",
	})
	reg.MustRegister(c.cacheHits)

	return c
}

func (c *Collector) RecordUpload(result string) {
	c.uploads.WithLabelValues(result).Inc()
}

func (c *Collector) RecordAnalysis(events int, elapsed time.Duration) {
	c.eventsAnalyzed.Add(float64(events))
	c.computeSeconds.Observe(elapsed.Seconds())
}

func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
