package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	seriesTotal *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	sinkWrites  *prometheus.CounterVec
	capability  prometheus.Gauge
	batchSeries prometheus.Histogram
	latency     *prometheus.HistogramVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers on reg; tests pass a fresh prometheus.NewRegistry().
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		seriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrend_series_total",
				Help: "Series processed, by outcome (ok, signaled, raised)",
			},
			[]string{"outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrend_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		sinkWrites: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrend_sink_writes_total",
				Help: "Result records written to downstream sinks",
			},
			[]string{"sink"},
		),
		capability: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "fintrend_estimation_capability",
				Help: "1 if the estimation engine was available at startup",
			},
		),
		batchSeries: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fintrend_batch_series",
				Help:    "Number of columns per batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrend_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSeriesOutcome counts one processed series.
func (r *Recorder) RecordSeriesOutcome(outcome string) {
	r.seriesTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSinkWrite counts n records delivered to a sink.
func (r *Recorder) RecordSinkWrite(sink string, n int) {
	r.sinkWrites.WithLabelValues(sink).Add(float64(n))
}

// SetCapability exposes the startup availability of the engine.
func (r *Recorder) SetCapability(available bool) {
	if available {
		r.capability.Set(1)
		return
	}
	r.capability.Set(0)
}

// RecordBatchSize observes the column count of a batch.
func (r *Recorder) RecordBatchSize(n int) {
	r.batchSeries.Observe(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
