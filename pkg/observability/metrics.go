package observability

import (
	"context"

	"github.com/aretw0/toolflow/pkg/agent"
	"github.com/aretw0/toolflow/pkg/flow"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "toolflow"

// Metrics holds the collectors for one process. Collectors live on their own
// registry so tests and embedding programs never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	StageVisits   *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	StageOutcomes *prometheus.CounterVec
	StageFailures *prometheus.CounterVec
	ToolCalls     *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StageVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "stage_visits_total",
				Help:      "Total number of stage visits",
			},
			[]string{"stage"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of stage executions, retries included",
				Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"stage"},
		),
		StageOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "stage_outcomes_total",
				Help:      "Outcomes returned by stages",
			},
			[]string{"stage", "outcome"},
		),
		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "stage_failures_total",
				Help:      "Stages that aborted their run",
			},
			[]string{"stage"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "tool_calls_total",
				Help:      "Tool invocations by result",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(m.StageVisits, m.StageDuration, m.StageOutcomes, m.StageFailures, m.ToolCalls)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() flow.Hooks {
	return flow.Hooks{
		OnStageEnter: func(_ context.Context, e *flow.StageEvent) {
			m.StageVisits.WithLabelValues(string(e.Stage)).Inc()
		},
		OnStageLeave: m.leave,
	}
}

func (m *Metrics) leave(_ context.Context, e *flow.StageEvent) {
	stage := string(e.Stage)
	m.StageDuration.WithLabelValues(stage).Observe(e.Duration.Seconds())
	if e.Err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
		if e.Stage == agent.StageExecute {
			m.ToolCalls.WithLabelValues("fault").Inc()
		}
		return
	}
	m.StageOutcomes.WithLabelValues(stage, string(e.Outcome)).Inc()
	if e.Stage != agent.StageExecute {
		return
	}
	switch e.Outcome {
	case agent.OutcomeWriteAnswer:
		m.ToolCalls.WithLabelValues("ok").Inc()
	case agent.OutcomeHandleError:
		m.ToolCalls.WithLabelValues("error").Inc()
	}
}
