// Package metrics provides Prometheus metrics for conversation turns and gateway calls.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds all Prometheus metrics for the orchestrator.
type Metrics struct {
	TurnsTotal      *prometheus.CounterVec
	TurnsInFlight   prometheus.Gauge
	GatewayCalls    *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trio_turns_total",
				Help: "Total number of conversation turns by kind and status.",
			},
			[]string{"kind", "status"},
		),
		TurnsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trio_turns_in_flight",
				Help: "Number of turns currently executing.",
			},
		),
		GatewayCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trio_gateway_calls_total",
				Help: "Total completion calls by persona and result.",
			},
			[]string{"persona", "result"},
		),
		GatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trio_gateway_duration_seconds",
				Help:    "Completion call duration by persona.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
			},
			[]string{"persona"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trio_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.TurnsTotal)
	reg.MustRegister(m.TurnsInFlight)
	reg.MustRegister(m.GatewayCalls)
	reg.MustRegister(m.GatewayDuration)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// WriteText writes every gathered metric family to w in the text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// RecordTurn increments the turn counter.
func (m *Metrics) RecordTurn(kind, status string) {
	m.TurnsTotal.WithLabelValues(kind, status).Inc()
}

// TurnStarted marks a turn as executing.
func (m *Metrics) TurnStarted() {
	m.TurnsInFlight.Inc()
}

// TurnFinished marks a turn as no longer executing.
func (m *Metrics) TurnFinished() {
	m.TurnsInFlight.Dec()
}

// ObserveGateway records one completion call.
func (m *Metrics) ObserveGateway(persona, result string, seconds float64) {
	m.GatewayCalls.WithLabelValues(persona, result).Inc()
	m.GatewayDuration.WithLabelValues(persona).Observe(seconds)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
