package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "controlroom"

// Metrics holds the Prometheus counters and gauges for the telemetry pipeline.
type Metrics struct {
	FramesReceived  prometheus.Counter
	FramesRejected  *prometheus.CounterVec // labels: reason={not_frame,malformed,invalid_value,unknown_tag,unknown_field,other}
	ReadingsApplied prometheus.Counter
	LoadErrors      prometheus.Counter
	ExtractErrors   prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Relay metrics.
	RelayPublished prometheus.Counter
	RelayErrors    prometheus.Counter

	// Per-sensor state, refreshed on every monitor tick.
	SensorStatus *prometheus.GaugeVec // labels: tag
	SensorAge    *prometheus.GaugeVec // labels: tag
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      help("Total lines read from the telemetry source."),
		}),
		FramesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rejected_total",
			Help:      help("Lines that did not produce a reading, by reason."),
		}, []string{"reason"}),
		ReadingsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_applied_total",
			Help:      help("Readings stored in the sensor table."),
		}),
		LoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      help("Readings that at least one loader failed to handle."),
		}),
		ExtractErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_errors_total",
			Help:      help("Transport read failures, including serial disconnects."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the pipeline is active, 0 when shut down."),
		}),
		RelayPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_published_total",
			Help:      help("Readings published to the relay topic."),
		}),
		RelayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_errors_total",
			Help:      help("Readings the relay failed to publish."),
		}),
		SensorStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_status",
			Help:      help("Sensor classification: 0 ok, 1 no data, 2 stale, 3 high temperature, 4 low temperature."),
		}, []string{"tag"}),
		SensorAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_age_seconds",
			Help:      help("Seconds since the sensor's last reading; -1 when it never reported."),
		}, []string{"tag"}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.FramesReceived,
		m.FramesRejected,
		m.ReadingsApplied,
		m.LoadErrors,
		m.ExtractErrors,
		m.PipelineRunning,
		m.RelayPublished,
		m.RelayErrors,
		m.SensorStatus,
		m.SensorAge,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
