package toshiba

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes unit capabilities and bridge counters to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	status     *prometheus.GaugeVec
	mode       *prometheus.GaugeVec
	fanMode    *prometheus.GaugeVec
	swingMode  *prometheus.GaugeVec
	targetTemp *prometheus.GaugeVec
	indoorTemp *prometheus.GaugeVec
	outdoor    *prometheus.GaugeVec

	events           *prometheus.CounterVec
	telemetryDropped prometheus.Counter
	intents          *prometheus.CounterVec
	deliveryFailures prometheus.Counter
}

// NewMetrics creates the bridge collectors. Call Register to expose them.
func NewMetrics() *Metrics {
	labels := []string{"device_id", "device_name"}
	return &Metrics{
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graylogic_toshiba_status",
			Help: "Power status per unit (1=on, 0=off)",
		}, labels),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graylogic_toshiba_mode",
			Help: "Operating mode per unit (0=auto, 1=cool, 2=heat)",
		}, labels),
		fanMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graylogic_toshiba_fan_mode_percent",
			Help: "Fan speed per unit (0=auto)",
		}, labels),
		swingMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graylogic_toshiba_swing_mode",
			Help: "Swing per unit (1=on, 0=off)",
		}, labels),
		targetTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graylogic_toshiba_target_temperature_celsius",
			Help: "Target temperature per unit",
		}, labels),
		indoorTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graylogic_toshiba_indoor_temperature_celsius",
			Help: "Indoor temperature per unit",
		}, labels),
		outdoor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graylogic_toshiba_outdoor_temperature_celsius",
			Help: "Outdoor temperature reported in unit heartbeats",
		}, labels),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graylogic_toshiba_events_total",
			Help: "Vendor events received by kind",
		}, []string{"kind"}),
		telemetryDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graylogic_toshiba_telemetry_dropped_total",
			Help: "Inbound raw states dropped because they could not be decoded",
		}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graylogic_toshiba_intents_total",
			Help: "Capability changes requested by field",
		}, []string{"field"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graylogic_toshiba_delivery_failures_total",
			Help: "Outbound raw states the channel did not accept",
		}),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.status, m.mode, m.fanMode, m.swingMode, m.targetTemp, m.indoorTemp, m.outdoor,
		m.events, m.telemetryDropped, m.intents, m.deliveryFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveState records the capabilities of one unit. Unspecified
// temperatures remove the series instead of reporting the sentinel.
func (m *Metrics) ObserveState(device Device, s LogicalState) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"device_id": device.UniqueID, "device_name": device.Name}

	m.status.With(labels).Set(float64(s.Status))
	m.mode.With(labels).Set(float64(s.Mode))
	m.fanMode.With(labels).Set(float64(s.FanMode))
	m.swingMode.With(labels).Set(float64(s.SwingMode))
	setTemperature(m.targetTemp, labels, s.TargetTemperature)
	setTemperature(m.indoorTemp, labels, s.IndoorTemperature)
}

// ObserveOutdoor records a heartbeat's outdoor temperature byte.
func (m *Metrics) ObserveOutdoor(device Device, b byte) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"device_id": device.UniqueID, "device_name": device.Name}
	setTemperature(m.outdoor, labels, DecodeTemperature(b))
}

func setTemperature(g *prometheus.GaugeVec, labels prometheus.Labels, v int) {
	if v == TemperatureUnspecified {
		g.Delete(labels)
		return
	}
	g.With(labels).Set(float64(v))
}

// IncEvent counts an inbound vendor event.
func (m *Metrics) IncEvent(kind EventKind) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind.String()).Inc()
}

// IncTelemetryDropped counts a raw state that failed to decode.
func (m *Metrics) IncTelemetryDropped() {
	if m == nil {
		return
	}
	m.telemetryDropped.Inc()
}

// IncIntent counts a capability change.
func (m *Metrics) IncIntent(field Field) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(string(field)).Inc()
}

// IncDeliveryFailure counts a failed dispatch.
func (m *Metrics) IncDeliveryFailure() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}
