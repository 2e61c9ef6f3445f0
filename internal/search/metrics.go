// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by a Gateway. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Retries   *prometheus.CounterVec
	Failovers *prometheus.CounterVec
	CacheHits *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
}

// NewMetrics registers the gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deep_research",
				Subsystem: "search",
				Name:      "requests_total",
				Help:      "Backend searches by outcome (ok, empty, error, fatal).",
			},
			[]string{"backend", "outcome"},
		),
		Retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deep_research",
				Subsystem: "search",
				Name:      "retries_total",
				Help:      "Backend retries after rate limiting or transient failures.",
			},
			[]string{"backend"},
		),
		Failovers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deep_research",
				Subsystem: "search",
				Name:      "failovers_total",
				Help:      "Searches handed from a backend to the next one.",
			},
			[]string{"from", "reason"},
		),
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deep_research",
				Subsystem: "search",
				Name:      "cache_hits_total",
				Help:      "Searches answered from the session cache.",
			},
			[]string{"backend"},
		),
		Latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "deep_research",
				Subsystem: "search",
				Name:      "backend_duration_seconds",
				Help:      "Wall time of a backend search including retries.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"backend"},
		),
	}
}

func (m *Metrics) request(backend, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(backend, outcome).Inc()
	m.Latency.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *Metrics) retry(backend string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(backend).Inc()
}

func (m *Metrics) failover(from, reason string) {
	if m == nil {
		return
	}
	m.Failovers.WithLabelValues(from, reason).Inc()
}

func (m *Metrics) cacheHit(backend string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(backend).Inc()
}
