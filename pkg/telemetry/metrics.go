package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gwillem/fetchbot/pkg/autopilot"
)

// Metrics holds the autopilot Prometheus collectors.
type Metrics struct {
	sessionsTotal     *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	commandsTotal     *prometheus.CounterVec
	unrecognizedTotal prometheus.Counter
	active            prometheus.Gauge
	distance          prometheus.Gauge
	sessionDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fetchbot_sessions_total",
			Help: "Autopilot sessions by outcome.",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fetchbot_transitions_total",
			Help: "Autopilot steps by state before and after.",
		}, []string{"from", "to"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fetchbot_commands_total",
			Help: "Motion commands issued by the autopilot by kind.",
		}, []string{"kind"}),
		unrecognizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fetchbot_unrecognized_inputs_total",
			Help: "Sensor combinations the autopilot skipped.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fetchbot_autopilot_active",
			Help: "1 while an autopilot session holds the motors.",
		}),
		distance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fetchbot_obstacle_distance",
			Help: "Last smoothed obstacle distance.",
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fetchbot_session_duration_seconds",
			Help:    "Wall time of autopilot sessions.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	reg.MustRegister(
		m.sessionsTotal,
		m.transitionsTotal,
		m.commandsTotal,
		m.unrecognizedTotal,
		m.active,
		m.distance,
		m.sessionDuration,
	)
	return m
}

func (m *Metrics) sessionStarted() {
	m.active.Set(1)
}

func (m *Metrics) stepped(ev autopilot.StepEvent) {
	m.transitionsTotal.WithLabelValues(ev.From.String(), ev.To.String()).Inc()
	for _, c := range ev.Commands {
		m.commandsTotal.WithLabelValues(c.Kind.String()).Inc()
	}
	if ev.Note == autopilot.NoteUnrecognized {
		m.unrecognizedTotal.Inc()
	}
	if ev.Snapshot.Sampled {
		m.distance.Set(ev.Snapshot.Distance)
	}
}

func (m *Metrics) sessionEnded(res autopilot.Result) {
	m.active.Set(0)
	m.sessionsTotal.WithLabelValues(res.Outcome.String()).Inc()
	m.sessionDuration.Observe(res.Duration.Seconds())
}
