package shell

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the shell's Prometheus collectors.
type Metrics struct {
	commands  *prometheus.CounterVec
	sessions  prometheus.Gauge
	registers prometheus.Gauge
	bytes     prometheus.Gauge
}

// NewMetrics registers the shell collectors with r. A nil r registers
// nothing, which keeps tests independent of the default registry.
func NewMetrics(r prometheus.Registerer) *Metrics {
	return &Metrics{
		commands: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "syncstr_shell_commands_total",
			Help: "Total number of shell commands by name and outcome.",
		}, []string{"command", "outcome"}),
		sessions: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Name: "syncstr_shell_sessions_active",
			Help: "Number of connected shell sessions.",
		}),
		registers: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Name: "syncstr_shell_registers",
			Help: "Number of named registers in the workspace.",
		}),
		bytes: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Name: "syncstr_shell_register_capacity_bytes",
			Help: "Capacity reserved by all registers, sampled after each mutating command.",
		}),
	}
}

func (m *Metrics) observeCommand(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.commands.WithLabelValues(name, outcome).Inc()
}
