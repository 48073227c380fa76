// Package prometheus exports application metrics to Prometheus.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gagyebu/internal/metrics"
)

var _ metrics.Recorder = (*Collector)(nil)

// Collector implements metrics.Recorder on its own registry.
type Collector struct {
	registry *prometheus.Registry

	duplicateChecks  *prometheus.CounterVec
	duplicateMatches *prometheus.HistogramVec
	duplicateLatency *prometheus.HistogramVec

	txCreated  *prometheus.CounterVec
	txRejected *prometheus.CounterVec
	txDeleted  prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	cacheLookups *prometheus.CounterVec

	syncOps     *prometheus.CounterVec
	syncLatency *prometheus.HistogramVec
}

// NewCollector creates a collector and registers it, together with the Go
// runtime and process collectors, on a fresh registry.
func NewCollector(namespace string) (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		duplicateChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_checks_total",
				Help:      "Duplicate detection runs by source and outcome",
			},
			[]string{"source", "likely"},
		),
		duplicateMatches: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duplicate_matches",
				Help:      "Number of matches returned per detection run",
				Buckets:   []float64{0, 1, 2, 3, 5, 10},
			},
			[]string{"source"},
		),
		duplicateLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duplicate_check_duration_seconds",
				Help:      "Duplicate detection latency, including loading history",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to ~3s
			},
			[]string{"source"},
		),
		txCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_created_total",
				Help:      "Transactions stored, by type",
			},
			[]string{"type"},
		),
		txRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_rejected_total",
				Help:      "Transactions refused, by reason",
			},
			[]string{"reason"},
		),
		txDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_deleted_total",
				Help:      "Transactions deleted",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by cache name and result",
			},
			[]string{"cache", "result"},
		),
		syncOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sheet_sync_total",
				Help:      "Spreadsheet sync operations by action and status",
			},
			[]string{"action", "status"},
		),
		syncLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sheet_sync_duration_seconds",
				Help:      "Spreadsheet sync latency",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"action"},
		),
	}

	for _, col := range []prometheus.Collector{
		c.duplicateChecks,
		c.duplicateMatches,
		c.duplicateLatency,
		c.txCreated,
		c.txRejected,
		c.txDeleted,
		c.httpRequests,
		c.httpLatency,
		c.cacheLookups,
		c.syncOps,
		c.syncLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := c.registry.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordDuplicateCheck(source string, matches int, likely bool, duration time.Duration) {
	c.duplicateChecks.WithLabelValues(source, strconv.FormatBool(likely)).Inc()
	c.duplicateMatches.WithLabelValues(source).Observe(float64(matches))
	c.duplicateLatency.WithLabelValues(source).Observe(duration.Seconds())
}

func (c *Collector) RecordTransactionCreated(txType string) {
	c.txCreated.WithLabelValues(txType).Inc()
}

func (c *Collector) RecordTransactionRejected(reason string) {
	c.txRejected.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordTransactionDeleted() {
	c.txDeleted.Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (c *Collector) RecordSync(action string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	c.syncOps.WithLabelValues(action, status).Inc()
	c.syncLatency.WithLabelValues(action).Observe(duration.Seconds())
}
