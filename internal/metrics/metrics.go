// Package metrics collects batch counters and exports them in the Prometheus
// text format for the node exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"exifrec-go/internal/exifrec"
)

// Batch holds the metrics of one command run. Each run gets its own registry
// so a textfile only ever describes the latest run.
type Batch struct {
	reg *prometheus.Registry

	files      *prometheus.CounterVec
	anomalies  *prometheus.CounterVec
	writeBacks *prometheus.CounterVec
	extraction prometheus.Histogram
	lastRun    prometheus.Gauge
	runSeconds prometheus.Gauge
}

var _ exifrec.Recorder = (*Batch)(nil)

// NewBatch registers the batch metrics under the given command label.
func NewBatch(command string) *Batch {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"command": command}
	f := promauto.With(reg)

	return &Batch{
		reg: reg,
		files: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "exifrec_files_total",
			Help:        "Files processed in the last run, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "exifrec_anomalies_total",
			Help:        "Anomalies detected in the last run, by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		writeBacks: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "exifrec_writebacks_total",
			Help:        "Write-back attempts in the last run, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		extraction: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "exifrec_extraction_duration_seconds",
			Help:        "Time spent extracting metadata from one file.",
			ConstLabels: labels,
			Buckets:     []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name:        "exifrec_last_run_timestamp_seconds",
			Help:        "Unix time the last run finished.",
			ConstLabels: labels,
		}),
		runSeconds: f.NewGauge(prometheus.GaugeOpts{
			Name:        "exifrec_last_run_duration_seconds",
			Help:        "Wall time of the last run.",
			ConstLabels: labels,
		}),
	}
}

func (b *Batch) FileProcessed(outcome string) { b.files.WithLabelValues(outcome).Inc() }

func (b *Batch) AnomalyFound(kind string) { b.anomalies.WithLabelValues(kind).Inc() }

func (b *Batch) ExtractionObserved(d time.Duration) { b.extraction.Observe(d.Seconds()) }

func (b *Batch) WriteBackAttempted(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	b.writeBacks.WithLabelValues(result).Inc()
}

// Finish records the run's end time and duration.
func (b *Batch) Finish(started, finished time.Time) {
	b.lastRun.Set(float64(finished.Unix()))
	b.runSeconds.Set(finished.Sub(started).Seconds())
}

// Gatherer exposes the registry, mainly for tests.
func (b *Batch) Gatherer() prometheus.Gatherer { return b.reg }

// WriteTextfile atomically replaces path with the current metrics.
func (b *Batch) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, b.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
