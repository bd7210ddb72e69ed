// Package metrics adapts a cache.Cache's GetStats snapshot into a
// prometheus.Collector, grounded on the teacher pack's
// internal/metrics/prometheus.go (oriys-nova) custom-collector-over-a-registry
// pattern. It is purely additive: nothing in the cache package depends on it.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	cache "github.com/dclobato/resilient-cache"
)

// Collector exposes a cache.Cache's stats as Prometheus metrics. It holds no
// state of its own: every Collect call re-reads GetStats, so scraping never
// goes stale between requests.
type Collector struct {
	cache *cache.Cache
	ctx   context.Context

	l1Size       *prometheus.Desc
	l1MaxSize    *prometheus.Desc
	l1Hits       *prometheus.Desc
	l1Misses     *prometheus.Desc
	l1Evictions  *prometheus.Desc
	l2Size       *prometheus.Desc
	l2Hits       *prometheus.Desc
	l2Misses     *prometheus.Desc
	tierEnabled  *prometheus.Desc
	breakerState *prometheus.Desc
	breakerFails *prometheus.Desc
}

// NewCollector builds a Collector for c. namespace prefixes every metric
// name (e.g. "myapp" produces "myapp_cache_l1_size").
func NewCollector(ctx context.Context, c *cache.Cache, namespace string) *Collector {
	labels := []string{"backend"}
	return &Collector{
		cache: c,
		ctx:   ctx,

		l1Size: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "l1_size"),
			"Current number of entries held in the L1 tier.", nil, nil),
		l1MaxSize: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "l1_max_size"),
			"Configured maximum number of entries for the L1 tier.", nil, nil),
		l1Hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "l1_hits_total"),
			"Total L1 lookups that found a value.", nil, nil),
		l1Misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "l1_misses_total"),
			"Total L1 lookups that did not find a value.", nil, nil),
		l1Evictions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "l1_evictions_total"),
			"Total entries evicted from the L1 tier to make room.", nil, nil),
		l2Size: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "l2_size"),
			"Current number of entries under this instance's L2 key prefix.", nil, nil),
		l2Hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "l2_hits_total"),
			"L2 hit count from the L2 stats snapshot (the Redis backend does not count hits and reports 0).", nil, nil),
		l2Misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "l2_misses_total"),
			"L2 miss count from the L2 stats snapshot (the Redis backend does not count misses and reports 0).", nil, nil),
		tierEnabled: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "tier_enabled"),
			"Whether a cache tier is enabled (1) or not (0).", labels, nil),
		breakerState: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "breaker_state"),
			"Circuit breaker state: 0=closed, 1=open, 2=half_open.", nil, nil),
		breakerFails: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "breaker_consecutive_failures"),
			"Current consecutive L2 failure count observed by the breaker.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.l1Size
	ch <- c.l1MaxSize
	ch <- c.l1Hits
	ch <- c.l1Misses
	ch <- c.l1Evictions
	ch <- c.l2Size
	ch <- c.l2Hits
	ch <- c.l2Misses
	ch <- c.tierEnabled
	ch <- c.breakerState
	ch <- c.breakerFails
}

// Collect implements prometheus.Collector. It reads a fresh stats snapshot
// on every call, which includes an L2 key scan when L2 is enabled; GetStats
// never touches the circuit breaker's failure bookkeeping, so scraping does
// not change breaker state.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.cache.GetStats(c.ctx)

	ch <- prometheus.MustNewConstMetric(c.tierEnabled, prometheus.GaugeValue, boolToFloat(stats.L1Enabled), "l1")
	ch <- prometheus.MustNewConstMetric(c.tierEnabled, prometheus.GaugeValue, boolToFloat(stats.L2Enabled), "l2")

	if stats.L1 != nil {
		ch <- prometheus.MustNewConstMetric(c.l1Size, prometheus.GaugeValue, float64(stats.L1.Size))
		ch <- prometheus.MustNewConstMetric(c.l1MaxSize, prometheus.GaugeValue, float64(stats.L1.MaxSize))
		ch <- prometheus.MustNewConstMetric(c.l1Hits, prometheus.CounterValue, float64(stats.L1.Hits))
		ch <- prometheus.MustNewConstMetric(c.l1Misses, prometheus.CounterValue, float64(stats.L1.Misses))
		ch <- prometheus.MustNewConstMetric(c.l1Evictions, prometheus.CounterValue, float64(stats.L1.Evictions))
	}

	if stats.L2 != nil {
		ch <- prometheus.MustNewConstMetric(c.l2Size, prometheus.GaugeValue, float64(stats.L2.Size))
		ch <- prometheus.MustNewConstMetric(c.l2Hits, prometheus.CounterValue, float64(stats.L2.Hits))
		ch <- prometheus.MustNewConstMetric(c.l2Misses, prometheus.CounterValue, float64(stats.L2.Misses))
	}

	if stats.Breaker != nil {
		ch <- prometheus.MustNewConstMetric(c.breakerState, prometheus.GaugeValue, breakerStateValue(stats.Breaker.State))
		ch <- prometheus.MustNewConstMetric(c.breakerFails, prometheus.GaugeValue, float64(stats.Breaker.ConsecutiveFails))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func breakerStateValue(state string) float64 {
	switch state {
	case "open":
		return 1
	case "half_open":
		return 2
	default: // closed
		return 0
	}
}
