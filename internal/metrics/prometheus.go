package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ncomrx/internal/ncom"
)

// Metrics contains all Prometheus metrics for the NCom receiver.
type Metrics struct {
	// Stream decoding metrics
	BytesConsumed  prometheus.Counter
	BytesSkipped   prometheus.Counter
	FramesAccepted prometheus.Counter
	Resyncs        prometheus.Counter

	// Record metrics by classification ("regular", "in1_down", "in1_up")
	Updates *prometheus.CounterVec

	// Output metrics
	PublishErrors *prometheus.CounterVec

	// Last decoded state
	LastLatDeg  prometheus.Gauge
	LastLonDeg  prometheus.Gauge
	LastDist2DM prometheus.Gauge
	Satellites  prometheus.Gauge
}

// New creates and registers all metrics on reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BytesConsumed: f.NewCounter(prometheus.CounterOpts{
			Name: "ncom_bytes_consumed_total",
			Help: "Total number of stream bytes fed to the decoder",
		}),
		BytesSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "ncom_bytes_skipped_total",
			Help: "Total number of bytes discarded while hunting for frame sync",
		}),
		FramesAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "ncom_frames_accepted_total",
			Help: "Total number of frames that passed validation",
		}),
		Resyncs: f.NewCounter(prometheus.CounterOpts{
			Name: "ncom_resyncs_total",
			Help: "Total number of times a buffered candidate frame was rejected",
		}),

		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ncom_updates_total",
			Help: "Total number of accepted navigation updates by classification",
		}, []string{"classification"}),

		PublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ncom_publish_errors_total",
			Help: "Total number of output publish failures by sink",
		}, []string{"sink"}),

		LastLatDeg: f.NewGauge(prometheus.GaugeOpts{
			Name: "ncom_last_lat_deg",
			Help: "Latitude of the most recent valid position",
		}),
		LastLonDeg: f.NewGauge(prometheus.GaugeOpts{
			Name: "ncom_last_lon_deg",
			Help: "Longitude of the most recent valid position",
		}),
		LastDist2DM: f.NewGauge(prometheus.GaugeOpts{
			Name: "ncom_last_dist2d_m",
			Help: "Most recent valid 2D distance traveled in meters",
		}),
		Satellites: f.NewGauge(prometheus.GaugeOpts{
			Name: "ncom_satellites",
			Help: "Most recent reported satellite count",
		}),
	}
}

// ObserveCounters advances the stream counters from a decoder counter
// snapshot. Prometheus counters are monotonic, so the caller hands in the
// previous snapshot and this records only the delta.
func (m *Metrics) ObserveCounters(prev, cur ncom.Counters) {
	if m == nil {
		return
	}
	if d := cur.Bytes - prev.Bytes; d > 0 {
		m.BytesConsumed.Add(float64(d))
	}
	if d := cur.Skipped - prev.Skipped; d > 0 {
		m.BytesSkipped.Add(float64(d))
	}
	if d := cur.Packets - prev.Packets; d > 0 {
		m.FramesAccepted.Add(float64(d))
	}
}

// ObserveUpdate records one accepted navigation update.
func (m *Metrics) ObserveUpdate(rec ncom.Record) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(rec.Classification.String()).Inc()
	if rec.LatValid {
		m.LastLatDeg.Set(rec.LatDeg)
	}
	if rec.LonValid {
		m.LastLonDeg.Set(rec.LonDeg)
	}
	if rec.Dist2DValid {
		m.LastDist2DM.Set(rec.Dist2D)
	}
}

// ObserveResync records one rejected candidate frame.
func (m *Metrics) ObserveResync() {
	if m == nil {
		return
	}
	m.Resyncs.Inc()
}

// ObservePublishError records a failed publish to the named sink.
func (m *Metrics) ObservePublishError(sink string) {
	if m == nil {
		return
	}
	m.PublishErrors.WithLabelValues(sink).Inc()
}

// SetSatellites records the most recent satellite count.
func (m *Metrics) SetSatellites(n int) {
	if m == nil {
		return
	}
	m.Satellites.Set(float64(n))
}
