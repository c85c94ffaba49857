// Package metrics exposes pipeline counters and histograms through a
// dedicated Prometheus registry. All methods are safe on a nil *Metrics so
// components can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered pipeline metrics.
type Metrics struct {
	registry       *prometheus.Registry
	analyses       *prometheus.CounterVec
	msrpEstimates  *prometheus.CounterVec
	bargainScores  prometheus.Histogram
	enrichDuration prometheus.Histogram
}

// New registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bargain_analyses_total",
			Help: "Listing analyses by mode (primary|heuristic) and reason.",
		}, []string{"mode", "reason"}),
		msrpEstimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bargain_msrp_estimates_total",
			Help: "Reference price estimates by source.",
		}, []string{"source"}),
		bargainScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bargain_score",
			Help:    "Distribution of computed bargain scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		enrichDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bargain_enrich_duration_seconds",
			Help:    "Wall time to enrich one batch of listings.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
	reg.MustRegister(
		m.analyses,
		m.msrpEstimates,
		m.bargainScores,
		m.enrichDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAnalysis counts one analysis outcome.
func (m *Metrics) ObserveAnalysis(mode, reason string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(mode, reason).Inc()
}

// ObserveMsrp counts one reference price estimate by source.
func (m *Metrics) ObserveMsrp(source string) {
	if m == nil {
		return
	}
	m.msrpEstimates.WithLabelValues(source).Inc()
}

// ObserveScore records a computed bargain score.
func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.bargainScores.Observe(float64(score))
}

// ObserveEnrichment records the duration of a batch started at start.
func (m *Metrics) ObserveEnrichment(start time.Time) {
	if m == nil {
		return
	}
	m.enrichDuration.Observe(time.Since(start).Seconds())
}

// Registry returns the underlying registry, or nil on a nil receiver.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
