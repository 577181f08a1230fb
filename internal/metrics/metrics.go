// Package metrics collects and exposes Prometheus metrics for the cache
// and the upstream transport.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the recorder interfaces of the cache and upstream
// packages against a Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheAttaches   prometheus.Counter
	cacheRefetches  prometheus.Counter
	cacheEvictions  prometheus.Counter
	patchesApplied  prometheus.Counter
	patchesReverted prometheus.Counter

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipeconsole_cache_hits_total",
			Help: "Query subscriptions served from a fresh cache entry.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipeconsole_cache_misses_total",
			Help: "Query subscriptions that triggered an upstream fetch.",
		}),
		cacheAttaches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipeconsole_cache_attaches_total",
			Help: "Subscriptions deduplicated onto an in-flight fetch.",
		}),
		cacheRefetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipeconsole_cache_refetches_total",
			Help: "Refetches triggered by tag invalidation.",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipeconsole_cache_evictions_total",
			Help: "Entries dropped after the keep-unused grace period.",
		}),
		patchesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipeconsole_optimistic_patches_total",
			Help: "Optimistic patches applied to cached entries.",
		}),
		patchesReverted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipeconsole_optimistic_rollbacks_total",
			Help: "Optimistic patches rolled back after a failed write.",
		}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipeconsole_upstream_requests_total",
			Help: "Upstream API requests by method and status code.",
		}, []string{"method", "status"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recipeconsole_upstream_latency_seconds",
			Help:    "Upstream API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	c.registry.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.cacheAttaches,
		c.cacheRefetches,
		c.cacheEvictions,
		c.patchesApplied,
		c.patchesReverted,
		c.upstreamRequests,
		c.upstreamLatency,
	)

	return c
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordCacheHit()        { c.cacheHits.Inc() }
func (c *Collector) RecordCacheMiss()       { c.cacheMisses.Inc() }
func (c *Collector) RecordCacheAttach()     { c.cacheAttaches.Inc() }
func (c *Collector) RecordCacheRefetch()    { c.cacheRefetches.Inc() }
func (c *Collector) RecordCacheEviction()   { c.cacheEvictions.Inc() }
func (c *Collector) RecordPatchApplied()    { c.patchesApplied.Inc() }
func (c *Collector) RecordPatchRolledBack() { c.patchesReverted.Inc() }

// RecordUpstreamRequest records one completed upstream call. A zero status
// means no response was received.
func (c *Collector) RecordUpstreamRequest(method string, status int, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.upstreamLatency.Observe(duration.Seconds())
}
