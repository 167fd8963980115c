package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline counters
type Metrics struct {
	// Producer
	FramesAcquired   atomic.Uint64
	FrameErrors      atomic.Uint64
	FramesEmpty      atomic.Uint64
	FramesDuplicate  atomic.Uint64
	InferenceErrors  atomic.Uint64
	PosesMissing     atomic.Uint64
	PosesPublished   atomic.Uint64
	UpdateSignals    atomic.Uint64
	SignalsCollapsed atomic.Uint64

	// Updater
	UpdatesApplied    atomic.Uint64
	SamplesPushed     atomic.Uint64
	VisibilitySkipped atomic.Uint64
	DegenerateAngles  atomic.Uint64

	// Requester
	SnapshotsSent    atomic.Uint64
	SnapshotsSkipped atomic.Uint64
	ConsumerErrors   atomic.Uint64

	// Recorder
	RecordedPoses atomic.Uint64
	RecordDropped atomic.Uint64

	// Latency tracking
	InferenceLatencyMs atomic.Uint64 // Last inference latency in ms
	UpdateLatencyUs    atomic.Uint64 // Last cache update latency in µs

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

type counterDef struct {
	name  string
	help  string
	value *atomic.Uint64
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []counterDef{
		{"posecoach_frames_acquired_total", "Frames read from the camera", &m.FramesAcquired},
		{"posecoach_frame_errors_total", "Failed frame acquisitions", &m.FrameErrors},
		{"posecoach_frames_empty_total", "Acquisition cycles that returned no frame", &m.FramesEmpty},
		{"posecoach_frames_duplicate_total", "Frames identical to the previous frame", &m.FramesDuplicate},
		{"posecoach_inference_errors_total", "Failed pose inference calls", &m.InferenceErrors},
		{"posecoach_poses_missing_total", "Frames in which no pose was detected", &m.PosesMissing},
		{"posecoach_poses_published_total", "Pose estimates published to the shared slot", &m.PosesPublished},
		{"posecoach_update_signals_total", "Cache update signals raised", &m.UpdateSignals},
		{"posecoach_update_signals_collapsed_total", "Signals merged into an already pending update", &m.SignalsCollapsed},
		{"posecoach_updates_applied_total", "Pose estimates applied to the joint caches", &m.UpdatesApplied},
		{"posecoach_samples_pushed_total", "Samples written to joint caches", &m.SamplesPushed},
		{"posecoach_visibility_skipped_total", "Joint updates skipped for low landmark visibility", &m.VisibilitySkipped},
		{"posecoach_degenerate_angles_total", "Angle samples discarded for coincident landmarks", &m.DegenerateAngles},
		{"posecoach_snapshots_sent_total", "Feature snapshots handed to consumers", &m.SnapshotsSent},
		{"posecoach_snapshots_skipped_total", "Requester cycles with no visible subject", &m.SnapshotsSkipped},
		{"posecoach_consumer_errors_total", "Snapshot consumer failures", &m.ConsumerErrors},
		{"posecoach_recorded_poses_total", "Pose estimates written to recordings", &m.RecordedPoses},
		{"posecoach_record_dropped_total", "Pose estimates dropped by a full recorder buffer", &m.RecordDropped},
	}
	for _, c := range counters {
		v := c.value
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "posecoach_inference_latency_ms",
			Help: "Latency of the last pose inference call in milliseconds",
		},
		func() float64 { return float64(m.InferenceLatencyMs.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "posecoach_update_latency_us",
			Help: "Latency of the last cache update in microseconds",
		},
		func() float64 { return float64(m.UpdateLatencyUs.Load()) },
	))
}

// UpdateInferenceLatency records the duration of the last inference call
func (m *Metrics) UpdateInferenceLatency(d time.Duration) {
	m.InferenceLatencyMs.Store(uint64(d.Milliseconds()))
}

// UpdateCacheLatency records the duration of the last cache update
func (m *Metrics) UpdateCacheLatency(d time.Duration) {
	m.UpdateLatencyUs.Store(uint64(d.Microseconds()))
}

// Snapshot returns the counters as a map for status endpoints
func (m *Metrics) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"frames_acquired":    m.FramesAcquired.Load(),
		"frame_errors":       m.FrameErrors.Load(),
		"frames_duplicate":   m.FramesDuplicate.Load(),
		"inference_errors":   m.InferenceErrors.Load(),
		"poses_missing":      m.PosesMissing.Load(),
		"poses_published":    m.PosesPublished.Load(),
		"update_signals":     m.UpdateSignals.Load(),
		"signals_collapsed":  m.SignalsCollapsed.Load(),
		"updates_applied":    m.UpdatesApplied.Load(),
		"samples_pushed":     m.SamplesPushed.Load(),
		"visibility_skipped": m.VisibilitySkipped.Load(),
		"degenerate_angles":  m.DegenerateAngles.Load(),
		"snapshots_sent":     m.SnapshotsSent.Load(),
		"snapshots_skipped":  m.SnapshotsSkipped.Load(),
		"consumer_errors":    m.ConsumerErrors.Load(),
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
