// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes used as the "outcome" label of QueriesTotal.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeCached   = "cached"
)

var (
	IndexedPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vehiclefinder_indexed_positions",
		Help: "Number of positions in the published index",
	})
	DroppedPositionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vehiclefinder_dropped_positions_total",
		Help: "Positions skipped because they fall outside the index domain",
	})
	IndexGeneration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vehiclefinder_index_generation",
		Help: "Number of index builds published since start",
	})
	IndexBuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vehiclefinder_index_build_duration_ms",
		Help:    "Time to load and build the index in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vehiclefinder_queries_total",
		Help: "Nearest-vehicle queries by outcome",
	}, []string{"outcome"})
	QueryDurationUs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vehiclefinder_query_duration_us",
		Help:    "Nearest-vehicle query duration in microseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vehiclefinder_cache_hits_total",
		Help: "Result cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vehiclefinder_cache_misses_total",
		Help: "Result cache misses",
	})
)

func init() {
	prometheus.MustRegister(IndexedPositions)
	prometheus.MustRegister(DroppedPositionsTotal)
	prometheus.MustRegister(IndexGeneration)
	prometheus.MustRegister(IndexBuildDurationMs)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDurationUs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
