// Package metrics counts conversions for a single run and writes them in
// the Prometheus text format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for ConversionsTotal.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder owns a private registry so repeated runs and tests never
// collide on the default one.
type Recorder struct {
	reg *prometheus.Registry

	ConversionsTotal *prometheus.CounterVec
	FailuresTotal    *prometheus.CounterVec
	RetriesTotal     prometheus.Counter
	EncodeSeconds    *prometheus.HistogramVec
	InputBytes       prometheus.Counter
	OutputBytes      prometheus.Counter
	LastRatio        prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		ConversionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "convertav1_conversions_total",
			Help: "Finished conversions by result",
		}, []string{"result"}),
		FailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "convertav1_failures_total",
			Help: "Failed conversions by cause",
		}, []string{"reason"}),
		RetriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "convertav1_retries_total",
			Help: "Encodes retried without the thumbnail",
		}),
		EncodeSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "convertav1_encode_duration_seconds",
			Help:    "Wall-clock time of successful encodes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
		}, []string{"encoder"}),
		InputBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "convertav1_input_bytes_total",
			Help: "Bytes read from converted inputs",
		}),
		OutputBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "convertav1_output_bytes_total",
			Help: "Bytes written to converted outputs",
		}),
		LastRatio: f.NewGauge(prometheus.GaugeOpts{
			Name: "convertav1_last_compression_ratio",
			Help: "Output size divided by input size of the latest success",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Success records a finished conversion.
func (r *Recorder) Success(encoder string, seconds float64, inBytes, outBytes int64) {
	r.ConversionsTotal.WithLabelValues(ResultSuccess).Inc()
	r.EncodeSeconds.WithLabelValues(encoder).Observe(seconds)
	if inBytes > 0 {
		r.InputBytes.Add(float64(inBytes))
		r.LastRatio.Set(float64(outBytes) / float64(inBytes))
	}
	if outBytes > 0 {
		r.OutputBytes.Add(float64(outBytes))
	}
}

// Failure records a failed conversion with a short cause label.
func (r *Recorder) Failure(reason string) {
	r.ConversionsTotal.WithLabelValues(ResultFailure).Inc()
	r.FailuresTotal.WithLabelValues(reason).Inc()
}

// Retry records one thumbnail-less retry.
func (r *Recorder) Retry() { r.RetriesTotal.Inc() }

// WriteFile writes all metrics to path atomically. Empty path is a no-op.
func (r *Recorder) WriteFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
