package task

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Agent invocation outcomes reported to Metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics collects metrics about task and iteration execution.
type Metrics interface {
	// TaskStarted is called when a task's loop begins.
	TaskStarted(taskID string)

	// TaskFinished is called once a task reaches a terminal status.
	TaskFinished(taskID, status string, duration time.Duration)

	// IterationCompleted is called after each evaluated iteration.
	IterationCompleted(taskID, role string, score float64)

	// AgentInvoked is called after every agent call with its outcome.
	AgentInvoked(agent, outcome string)

	// AgentFallback is called when a fallback agent replaces a failed one.
	AgentFallback(failed, fallback string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

var _ Metrics = NoopMetrics{}

// TaskStarted implements Metrics.
func (NoopMetrics) TaskStarted(string) {}

// TaskFinished implements Metrics.
func (NoopMetrics) TaskFinished(string, string, time.Duration) {}

// IterationCompleted implements Metrics.
func (NoopMetrics) IterationCompleted(string, string, float64) {}

// AgentInvoked implements Metrics.
func (NoopMetrics) AgentInvoked(string, string) {}

// AgentFallback implements Metrics.
func (NoopMetrics) AgentFallback(string, string) {}

// PrometheusMetrics exports engine activity as Prometheus collectors.
type PrometheusMetrics struct {
	tasksStarted     prometheus.Counter
	tasksFinished    *prometheus.CounterVec
	taskDuration     prometheus.Histogram
	tasksActive      prometheus.Gauge
	iterations       *prometheus.CounterVec
	iterationScore   prometheus.Histogram
	agentInvocations *prometheus.CounterVec
	agentFallbacks   *prometheus.CounterVec
}

var _ Metrics = (*PrometheusMetrics)(nil)

// MustNewPrometheusMetrics registers the engine collectors with reg, reusing
// collectors that are already registered. A nil reg means the default
// registerer. Any other registration error panics.
func MustNewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusMetrics{
		tasksStarted: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "evo",
			Name:      "tasks_started_total",
			Help:      "Tasks whose evolve loop has started.",
		})),
		tasksFinished: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evo",
			Name:      "tasks_finished_total",
			Help:      "Tasks that reached a terminal status.",
		}, []string{"status"})),
		taskDuration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "evo",
			Name:      "task_duration_seconds",
			Help:      "Wall time from loop start to terminal status.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		})),
		tasksActive: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "evo",
			Name:      "tasks_active",
			Help:      "Tasks whose evolve loop is running.",
		})),
		iterations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evo",
			Name:      "iterations_total",
			Help:      "Evaluated iterations by stage role.",
		}, []string{"stage"})),
		iterationScore: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "evo",
			Name:      "iteration_score",
			Help:      "Composite score of each evaluated iteration.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		})),
		agentInvocations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evo",
			Name:      "agent_invocations_total",
			Help:      "Agent generate calls by agent and outcome.",
		}, []string{"agent", "outcome"})),
		agentFallbacks: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evo",
			Name:      "agent_fallbacks_total",
			Help:      "Fallback agent selections by failed agent.",
		}, []string{"failed"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// TaskStarted implements Metrics.
func (m *PrometheusMetrics) TaskStarted(string) {
	m.tasksStarted.Inc()
	m.tasksActive.Inc()
}

// TaskFinished implements Metrics.
func (m *PrometheusMetrics) TaskFinished(_, status string, duration time.Duration) {
	m.tasksFinished.WithLabelValues(status).Inc()
	m.taskDuration.Observe(duration.Seconds())
	m.tasksActive.Dec()
}

// IterationCompleted implements Metrics.
func (m *PrometheusMetrics) IterationCompleted(_, role string, score float64) {
	m.iterations.WithLabelValues(role).Inc()
	m.iterationScore.Observe(score)
}

// AgentInvoked implements Metrics.
func (m *PrometheusMetrics) AgentInvoked(agent, outcome string) {
	m.agentInvocations.WithLabelValues(agent, outcome).Inc()
}

// AgentFallback implements Metrics.
func (m *PrometheusMetrics) AgentFallback(failed, _ string) {
	m.agentFallbacks.WithLabelValues(failed).Inc()
}
