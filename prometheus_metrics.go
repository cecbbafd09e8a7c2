package ocrworker

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// MetricsRegistry holds every collector of the pipeline. Nothing is
	// served over the network; WriteMetricsFile dumps it for the node
	// exporter textfile collector.
	MetricsRegistry = prometheus.NewRegistry()

	inFlightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ocr_in_flight_runs",
		Help: "Number of conversions currently running.",
	})
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_runs_total",
			Help: "A counter for finished conversions, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
	pagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ocr_pages_recognized_total",
		Help: "Number of pages turned into searchable fragments.",
	})

	// stageDuration is partitioned by pipeline stage. It uses custom
	// buckets based on the expected duration of the external tools.
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocr_stage_duration_seconds",
			Help:    "A histogram of latencies for pipeline stages.",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"stage"},
	)
)

func init() {
	MetricsRegistry.MustRegister(inFlightGauge, runsTotal, pagesTotal, stageDuration)
}

// WriteMetricsFile writes the current metrics in the text exposition format
func WriteMetricsFile(path string) error {
	return prometheus.WriteToTextfile(path, MetricsRegistry)
}
