package main

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "opas"

type serviceMetrics struct {
	solrRequests    *prometheus.CounterVec
	solrDuration    *prometheus.HistogramVec
	solrRateLimited *prometheus.CounterVec
	searchFallbacks prometheus.Counter
	dbErrors        *prometheus.CounterVec
	sessionsStarted prometheus.Counter
	sourcesCached   prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *serviceMetrics
)

// promauto registers with the default registry, which only tolerates one registration per name
func getServiceMetrics() *serviceMetrics {
	metricsOnce.Do(func() {
		metrics = &serviceMetrics{
			solrRequests: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "solr_requests_total",
				Help:      "Total number of Solr requests by core and outcome",
			}, []string{"core", "outcome"}),
			solrDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "solr_request_duration_seconds",
				Help:      "Duration of Solr requests in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			}, []string{"core"}),
			solrRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "solr_rate_limited_total",
				Help:      "Total number of Solr requests that waited on the rate limiter",
			}, []string{"core"}),
			searchFallbacks: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "search_filter_fallbacks_total",
				Help:      "Total number of searches re-run without their filter after zero hits",
			}),
			dbErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "db_errors_total",
				Help:      "Total number of relational store errors by operation",
			}, []string{"operation"}),
			sessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sessions_started_total",
				Help:      "Total number of client sessions started",
			}),
			sourcesCached: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "sources_cached",
				Help:      "Number of sources currently held in the source cache",
			}),
		}
	})

	return metrics
}
