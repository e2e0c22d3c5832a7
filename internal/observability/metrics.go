// Package observability holds process-wide Prometheus collectors.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	tripWriteGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripplanner",
		Subsystem: "persistence",
		Name:      "last_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity or POI persisted to Postgres.",
	})
	geocodedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripplanner",
		Subsystem: "persistence",
		Name:      "last_geocoded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent location resolved to coordinates.",
	})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripplanner",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, partitioned by method and status code.",
	}, []string{"method", "code"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tripplanner",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(tripWriteGauge, geocodedGauge, httpRequests, httpDuration)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	tripWriteGauge.Set(float64(ts.Unix()))
}

// RecordLocationGeocoded updates the geocoding watermark gauge.
func RecordLocationGeocoded(ts time.Time) {
	if ts.IsZero() {
		return
	}
	geocodedGauge.Set(float64(ts.Unix()))
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
