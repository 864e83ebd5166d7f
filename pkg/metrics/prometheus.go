package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scanDuration *prometheus.HistogramVec
	scanDecoded  prometheus.Histogram
	messages     *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	cacheResults *prometheus.CounterVec
	posted       *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		scanDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chumroom_scan_duration_seconds",
				Help:    "Duration of room scans in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		scanDecoded: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chumroom_scan_decoded_messages",
				Help:    "Decoded messages per scan",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		messages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chumroom_messages_decoded_total",
				Help: "Total decoded protocol messages by type",
			},
			[]string{"msg_type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chumroom_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cacheResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chumroom_window_cache_results_total",
				Help: "Window cache outcomes per read (hit, miss, stale)",
			},
			[]string{"result"},
		),
		posted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chumroom_agent_posts_total",
				Help: "Messages posted to the room by local agents",
			},
			[]string{"agent", "msg_type"},
		),
	}
}

// RecordScan records one completed scan.
func (r *Recorder) RecordScan(d time.Duration, decoded int) {
	r.scanDuration.WithLabelValues("ok").Observe(d.Seconds())
	r.scanDecoded.Observe(float64(decoded))
}

// RecordMessage counts a decoded message by type.
func (r *Recorder) RecordMessage(msgType string) {
	r.messages.WithLabelValues(msgType).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheResult counts a window cache outcome.
func (r *Recorder) RecordCacheResult(result string) {
	r.cacheResults.WithLabelValues(result).Inc()
}

// RecordPosted counts a message posted by a local agent.
func (r *Recorder) RecordPosted(agent, msgType string) {
	r.posted.WithLabelValues(agent, msgType).Inc()
}
