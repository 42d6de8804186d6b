package observability

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parley"

// Metrics records engine activity in prometheus collectors.
type Metrics struct {
	ruleActivations *prometheus.CounterVec
	turns           *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
	ruleMetrics     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg registers with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ruleActivations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_activations_total",
				Help:      "Total number of rule activations",
			},
			[]string{"rule_set", "rule_type"},
		),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total number of turns by event type and result",
			},
			[]string{"event_type", "result"},
		),
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of turns",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event_type"},
		),
		ruleMetrics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_metric_total",
				Help:      "Values emitted by Metric rules",
			},
			[]string{"name"},
		),
	}
	reg.MustRegister(m.ruleActivations, m.turns, m.turnDuration, m.ruleMetrics)
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRuleEnter: func(ctx context.Context, e *domain.RuleEvent) {
			m.ruleActivations.WithLabelValues(e.RuleSet, e.RuleType).Inc()
		},
		OnTurnComplete: func(ctx context.Context, e *domain.TurnEvent) {
			m.turns.WithLabelValues(string(e.EventType), turnResult(e)).Inc()
			m.turnDuration.WithLabelValues(string(e.EventType)).Observe(e.Duration.Seconds())
		},
	}
}

// Emit implements ports.MetricSink. Counters only grow, so negative values are dropped.
func (m *Metrics) Emit(ctx context.Context, name string, value float64) {
	if value < 0 {
		return
	}
	m.ruleMetrics.WithLabelValues(name).Add(value)
}

func turnResult(e *domain.TurnEvent) string {
	switch {
	case e.Err != nil:
		return "error"
	case e.Terminate:
		return "terminate"
	case e.InputRequired:
		return "input"
	default:
		return "return"
	}
}
