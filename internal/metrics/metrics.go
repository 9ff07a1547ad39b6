// Package metrics provides in-process Prometheus metrics for workerctl.
package metrics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "workerctl"

// Command results used as the "result" label.
const (
	ResultOK    = "ok"
	ResultNoop  = "noop"
	ResultError = "error"
)

// Metrics holds runtime metrics for one supervisor run. All methods are safe
// on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	Steps       *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Commands    *prometheus.CounterVec
	Workers     prometheus.Gauge

	startTime time.Time
}

// New creates a metrics set on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		Steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "steps_total",
			Help:      "Total work steps applied per worker",
		}, []string{"worker"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "transitions_total",
			Help:      "Total worker run-state transitions",
		}, []string{"from", "to"}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total controller commands by verb and result",
		}, []string{"verb", "result"}),
		Workers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Configured number of workers",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Time since the supervisor started",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	return m
}

// RecordStep records one applied step for a 1-based worker id
func (m *Metrics) RecordStep(worker int) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(strconv.Itoa(worker)).Inc()
}

// RecordTransition records a run-state change
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

// RecordCommand records a dispatched controller command
func (m *Metrics) RecordCommand(verb, result string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(verb, result).Inc()
}

// SetWorkers records the configured pool size
func (m *Metrics) SetWorkers(n int) {
	if m == nil {
		return
	}
	m.Workers.Set(float64(n))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteText writes every metric in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
