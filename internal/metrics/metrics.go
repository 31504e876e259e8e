// Package metrics exports engine activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/rewind/internal/effect"
	"github.com/roach88/rewind/internal/engine"
	"github.com/roach88/rewind/internal/ir"
)

// Outcome labels for finished effects.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics holds the collectors for one engine.
type Metrics struct {
	registry *prometheus.Registry

	dispatches     *prometheus.CounterVec
	effectsStarted *prometheus.CounterVec
	effectsDone    *prometheus.CounterVec
	effectDuration *prometheus.HistogramVec
	inFlight       prometheus.Gauge
	undoRecords    prometheus.Counter
	undoDepth      prometheus.Gauge
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_dispatches_total",
				Help: "Reducer commits by action kind and replay flag",
			},
			[]string{"kind", "replay"},
		),
		effectsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_effects_started_total",
				Help: "Effects scheduled by operation",
			},
			[]string{"op"},
		),
		effectsDone: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_effects_completed_total",
				Help: "Effects finished by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		effectDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rewind_effect_duration_seconds",
				Help:    "Time from scheduling to completion",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rewind_effects_in_flight",
			Help: "Effects started but not yet finished",
		}),
		undoRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewind_undo_records_total",
			Help: "Undo records pushed",
		}),
		undoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rewind_undo_depth",
			Help: "Entries on the undo stack after the last commit",
		}),
	}

	m.registry.MustRegister(
		m.dispatches,
		m.effectsStarted,
		m.effectsDone,
		m.effectDuration,
		m.inFlight,
		m.undoRecords,
		m.undoDepth,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns engine hooks feeding m.
func (m *Metrics) Hooks() engine.Hooks {
	return engine.Hooks{
		OnDispatch: func(ev engine.DispatchEvent) {
			m.dispatches.WithLabelValues(string(ev.Action.Kind()), strconv.FormatBool(ev.Action.IsReplay())).Inc()
			m.undoDepth.Set(float64(len(ev.Tree.History.Undo)))
		},
		OnEffectStart: func(req effect.Request) {
			m.effectsStarted.WithLabelValues(req.Op).Inc()
			m.inFlight.Inc()
		},
		OnEffectDone: func(req effect.Request, completion ir.Action, elapsed time.Duration) {
			m.inFlight.Dec()
			m.effectsDone.WithLabelValues(req.Op, outcome(completion)).Inc()
			m.effectDuration.WithLabelValues(req.Op).Observe(elapsed.Seconds())
		},
		OnRecord: func(ir.UndoRecord) {
			m.undoRecords.Inc()
		},
	}
}

func outcome(a ir.Action) string {
	if c, ok := a.(ir.Completion); ok && c.Failed() {
		return OutcomeFailed
	}
	return OutcomeOK
}
