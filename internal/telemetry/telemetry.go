// Package telemetry counts scan work in a private prometheus registry and exports it
// in the node-exporter textfile format once a run finishes.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tensorplex-labs/climsips/internal/scan"
)

const namespace = "climsips"

// Metrics implements scan.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	gridPoints   *prometheus.CounterVec
	combinations prometheus.Counter
	pointSeconds prometheus.Histogram
	scanSeconds  *prometheus.GaugeVec
}

var _ scan.Recorder = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gridPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_points_total",
			Help:      "Grid points finished, by whether they were computed or reused from a checkpoint.",
		}, []string{"outcome"}),
		combinations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "combinations_evaluated_total",
			Help:      "Member subsets scored.",
		}),
		pointSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_point_duration_seconds",
			Help:      "Time spent enumerating one grid point.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		scanSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of the last completed scan.",
		}, []string{"mode"}),
	}
	m.registry.MustRegister(m.gridPoints, m.combinations, m.pointSeconds, m.scanSeconds)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) PointComputed(_ scan.GridPoint, evaluated int, took time.Duration) {
	m.gridPoints.WithLabelValues("computed").Inc()
	m.combinations.Add(float64(evaluated))
	m.pointSeconds.Observe(took.Seconds())
}

func (m *Metrics) PointReused(scan.GridPoint) {
	m.gridPoints.WithLabelValues("reused").Inc()
}

func (m *Metrics) ScanCompleted(mode scan.Mode, _ int, took time.Duration) {
	m.scanSeconds.WithLabelValues(mode.String()).Set(took.Seconds())
}

// WriteTextfile writes the current values to path, replacing it atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
