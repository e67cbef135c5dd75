// Package metrics exposes resolution counters to Prometheus.
//
// All methods are safe on a nil *Metrics, so the core runs unchanged when
// metrics are not wired.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

const namespace = "geogate"

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

type Metrics struct {
	strategyVerdicts *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	remoteOutcomes   *prometheus.CounterVec
	resolutions      *prometheus.CounterVec
	duration         prometheus.Histogram
	pages            *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		strategyVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_verdicts_total",
			Help:      "Verdicts returned by each resolution strategy.",
		}, []string{"strategy", "verdict"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Resolution cache lookups by result.",
		}, []string{"result"}),
		remoteOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_lookups_total",
			Help:      "Remote geolocation service calls by outcome.",
		}, []string{"service", "outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Final resolution outcomes by deciding source.",
		}, []string{"source", "match"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving one visitor, cache included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_pages_total",
			Help:      "Pages served by the visitor gate, by page and reason.",
		}, []string{"page", "reason"}),
	}

	reg.MustRegister(m.strategyVerdicts, m.cacheLookups, m.remoteOutcomes, m.resolutions, m.duration, m.pages)
	return m
}

func (m *Metrics) ObserveVerdict(strategy string, v models.Verdict) {
	if m == nil {
		return
	}
	m.strategyVerdicts.WithLabelValues(strategy, v.String()).Inc()
}

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRemote(service, outcome string) {
	if m == nil {
		return
	}
	m.remoteOutcomes.WithLabelValues(service, outcome).Inc()
}

func (m *Metrics) ObserveResolution(res models.Resolution, elapsed time.Duration) {
	if m == nil {
		return
	}
	match := "false"
	if res.Match {
		match = "true"
	}
	m.resolutions.WithLabelValues(res.Source, match).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePage(page, reason string) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(page, reason).Inc()
}
