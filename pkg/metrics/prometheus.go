package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	refreshes     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	snapshotsSent *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		refreshes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossrisk_refreshes_total",
				Help: "Completed refresh cycles by outcome",
			},
			[]string{"status"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossrisk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		fetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossrisk_fetch_errors_total",
				Help: "Upstream fetch failures by source",
			},
			[]string{"source"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crossrisk_last_price",
				Help: "Last observed value per instrument",
			},
			[]string{"instrument"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crossrisk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		snapshotsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossrisk_snapshots_sent_total",
				Help: "Refresh snapshots delivered to a sink backend",
			},
			[]string{"backend"},
		),
	}
}

// RecordRefresh records the outcome of one refresh cycle.
func (r *Recorder) RecordRefresh(status string) {
	r.refreshes.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordFetchError records an upstream fetch failure.
func (r *Recorder) RecordFetchError(source string) {
	r.fetchErrors.WithLabelValues(source).Inc()
}

// RecordLastPrice records the last value seen for an instrument.
func (r *Recorder) RecordLastPrice(label string, price float64) {
	r.lastPrice.WithLabelValues(label).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordSnapshotSent records a snapshot delivered to a sink.
func (r *Recorder) RecordSnapshotSent(backend string) {
	r.snapshotsSent.WithLabelValues(backend).Inc()
}
