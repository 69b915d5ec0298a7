package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GateDecisions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		GateDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicore_gate_decisions_total",
			Help: "Total number of access gate decisions by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementAllowed() {
	m.GateDecisions.WithLabelValues("allow").Inc()
}

func (m *Metrics) IncrementRedirected() {
	m.GateDecisions.WithLabelValues("redirect").Inc()
}
