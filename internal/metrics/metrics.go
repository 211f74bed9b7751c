// Package metrics provides Prometheus instrumentation for the
// prediction pipeline.
//
// Metrics exposed:
//   - actionpipe_frames_total: Counter of frames accepted per stream
//   - actionpipe_firings_total: Counter of completed firing cycles
//   - actionpipe_empty_window_skips_total: Counter of firings skipped
//     because the window center had no person detections
//   - actionpipe_cycle_errors_total: Counter of failed cycles by stage
//   - actionpipe_flush_seconds: Histogram of deferred flush duration
//   - actionpipe_flush_records: Gauge of records flushed in the last pass
//   - actionpipe_inbound_queue_depth: Gauge of pending inbound tasks
//   - actionpipe_cache_entries: Gauge of feature cache entries
//
// All per-stream metrics carry a "stream" label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	FramesTotal           *prometheus.CounterVec
	FiringsTotal          *prometheus.CounterVec
	EmptyWindowSkipsTotal *prometheus.CounterVec
	CycleErrorsTotal      *prometheus.CounterVec
	FlushSeconds          prometheus.Histogram
	FlushRecords          prometheus.Gauge
	InboundQueueDepth     *prometheus.GaugeVec
	CacheEntries          prometheus.Gauge
}

// New creates and registers all pipeline metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "actionpipe_frames_total",
			Help: "Frames accepted into the sliding window",
		}, []string{"stream"}),

		FiringsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "actionpipe_firings_total",
			Help: "Completed firing cycles (feature update performed)",
		}, []string{"stream"}),

		EmptyWindowSkipsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "actionpipe_empty_window_skips_total",
			Help: "Firing points skipped because the window center had no person boxes",
		}, []string{"stream"}),

		CycleErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "actionpipe_cycle_errors_total",
			Help: "Firing cycles aborted by a collaborator error, by stage",
		}, []string{"stream", "stage"}),

		FlushSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "actionpipe_flush_seconds",
			Help:    "Duration of the deferred prediction flush",
			Buckets: prometheus.DefBuckets,
		}),

		FlushRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "actionpipe_flush_records",
			Help: "Number of firing records scored in the last flush",
		}),

		InboundQueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "actionpipe_inbound_queue_depth",
			Help: "Tasks waiting in the inbound queue",
		}, []string{"stream"}),

		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "actionpipe_cache_entries",
			Help: "Entries currently held in the feature cache",
		}),
	}
}
