// Package metrics collects per-run counters and writes them as a Prometheus textfile
// (for the node_exporter textfile collector) at the end of a run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons.
const (
	ReasonProcessing = "processing"
	ReasonTimeout    = "timeout"
	ReasonWrite      = "write"
	ReasonRead       = "read"
)

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	registry   *prometheus.Registry
	processed  *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	geolocated prometheus.Counter
	bytes      prometheus.Counter
	duration   prometheus.Histogram
}

func NewMetrics() *Metrics {

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photos_processed_total",
				Help: "Number of photos added to the manifest",
			},
			[]string{"category"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photos_skipped_total",
				Help: "Number of photos left out of the manifest",
			},
			[]string{"category", "reason"},
		),
		geolocated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "photos_geolocated_total",
				Help: "Number of manifest records with coordinates",
			},
		),
		bytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "photos_bytes_written_total",
				Help: "Number of bytes written for image variants",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "photos_process_duration_seconds",
				Help:    "Time spent decoding and re-encoding a single photo",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}

	m.registry.MustRegister(m.processed, m.skipped, m.geolocated, m.bytes, m.duration)
	return m
}

func (m *Metrics) Processed(category string, geolocated bool) {

	if m == nil {
		return
	}

	m.processed.WithLabelValues(category).Inc()

	if geolocated {
		m.geolocated.Inc()
	}
}

func (m *Metrics) Skipped(category string, reason string) {

	if m == nil {
		return
	}

	m.skipped.WithLabelValues(category, reason).Inc()
}

func (m *Metrics) BytesWritten(n int64) {

	if m == nil {
		return
	}

	m.bytes.Add(float64(n))
}

func (m *Metrics) ObserveDuration(d time.Duration) {

	if m == nil {
		return
	}

	m.duration.Observe(d.Seconds())
}

// Registry returns the underlying registry, for callers that want to expose it some other way.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {

	if m == nil {
		return nil
	}

	err := prometheus.WriteToTextfile(path, m.registry)

	if err != nil {
		return fmt.Errorf("Failed to write metrics to %s, %w", path, err)
	}

	return nil
}
