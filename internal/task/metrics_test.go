package task

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewPrometheusMetrics(reg)

	m.TaskStarted("a")
	m.TaskStarted("b")
	assert.InDelta(t, 2, testutil.ToFloat64(m.tasksActive), 1e-9)

	m.IterationCompleted("a", "code_review", 0.4)
	m.IterationCompleted("a", "code_review", 0.6)
	m.AgentInvoked("claude", OutcomeSuccess)
	m.AgentFallback("claude", "gpt")
	m.TaskFinished("a", "completed", 3*time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(m.tasksStarted), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.tasksActive), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.tasksFinished.WithLabelValues("completed")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.iterations.WithLabelValues("code_review")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.agentInvocations.WithLabelValues("claude", OutcomeSuccess)), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.agentFallbacks.WithLabelValues("claude")), 1e-9)

	count, err := testutil.GatherAndCount(reg, "evo_iteration_score", "evo_task_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMustNewPrometheusMetrics_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNewPrometheusMetrics(reg)
	second := MustNewPrometheusMetrics(reg)

	first.TaskStarted("a")
	second.TaskStarted("b")

	assert.InDelta(t, 2, testutil.ToFloat64(first.tasksStarted), 1e-9)
	assert.Same(t, first.agentFallbacks, second.agentFallbacks)
}

func TestNoopMetrics(t *testing.T) {
	var m Metrics = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.TaskStarted("a")
		m.IterationCompleted("a", "s", 1)
		m.AgentInvoked("claude", OutcomeFailure)
		m.AgentFallback("claude", "gpt")
		m.TaskFinished("a", "failed", time.Second)
	})
}
