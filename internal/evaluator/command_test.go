package evaluator

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// scriptedExecutor answers each command from the artifact it receives on stdin.
type scriptedExecutor struct {
	mu       sync.Mutex
	respond  func(stdin string) (string, error)
	args     [][]string
	baseline []string
}

func (s *scriptedExecutor) Execute(_ context.Context, cmd *exec.Cmd) ([]byte, []byte, error) {
	stdin, _ := io.ReadAll(cmd.Stdin)

	s.mu.Lock()
	s.args = append(s.args, cmd.Args)
	for _, kv := range cmd.Env {
		if path, ok := strings.CutPrefix(kv, BaselineEnvVar+"="); ok {
			content, _ := os.ReadFile(path)
			s.baseline = append(s.baseline, string(content))
		}
	}
	s.mu.Unlock()

	out, err := s.respond(string(stdin))
	if err != nil {
		return nil, []byte("benchmark crashed"), err
	}
	return []byte(out), nil, nil
}

func TestCommandEvaluator(t *testing.T) {
	ctx := context.Background()

	t.Run("parses score and metrics", func(t *testing.T) {
		runner := &scriptedExecutor{respond: func(string) (string, error) {
			return "running tests...\n{\"score\": 0.75, \"metrics\": {\"passed\": 3}}\n", nil
		}}
		e := NewCommandEvaluator("tests", "pytest -q", time.Second, runner)

		res := e.Evaluate(ctx, "code", "old code")
		require.Empty(t, res.Error)
		assert.Equal(t, "tests", res.Evaluator)
		assert.InDelta(t, 0.75, res.Score, 1e-9)
		assert.InDelta(t, 3.0, res.Metrics["passed"], 1e-9)
		assert.Equal(t, []string{"sh", "-c", "pytest -q"}, runner.args[0])
		assert.Equal(t, []string{"old code"}, runner.baseline)
	})

	t.Run("repairs sloppy json", func(t *testing.T) {
		runner := &scriptedExecutor{respond: func(string) (string, error) {
			return "{'score': 0.5, 'metrics': {'x': 1,},}", nil
		}}
		res := NewCommandEvaluator("c", "x", 0, runner).Evaluate(ctx, "a", "")
		require.Empty(t, res.Error)
		assert.InDelta(t, 0.5, res.Score, 1e-9)
		assert.Empty(t, runner.baseline)
	})

	t.Run("missing score fails", func(t *testing.T) {
		runner := &scriptedExecutor{respond: func(string) (string, error) { return `{"metrics": {}}`, nil }}
		res := NewCommandEvaluator("c", "x", 0, runner).Evaluate(ctx, "a", "")
		assert.Zero(t, res.Score)
		assert.Contains(t, res.Error, evoerrors.ErrEvaluatorOutput.Error())
	})

	t.Run("no json fails", func(t *testing.T) {
		runner := &scriptedExecutor{respond: func(string) (string, error) { return "all good", nil }}
		res := NewCommandEvaluator("c", "x", 0, runner).Evaluate(ctx, "a", "")
		assert.True(t, res.Failed())
	})

	t.Run("command failure fails", func(t *testing.T) {
		runner := &scriptedExecutor{respond: func(string) (string, error) { return "", errors.New("exit status 2") }}
		res := NewCommandEvaluator("c", "x", 0, runner).Evaluate(ctx, "a", "")
		assert.Zero(t, res.Score)
		assert.Contains(t, res.Error, "benchmark crashed")
	})
}

func TestSpeedupEvaluator(t *testing.T) {
	ctx := context.Background()
	runner := &scriptedExecutor{respond: func(stdin string) (string, error) {
		if stdin == "fast" {
			return `{"timings": {"100": 0.1, "1000": 1.0}}`, nil
		}
		return `{"timings": {"100": 0.4, "1000": 2.0}}`, nil
	}}

	t.Run("scores capped average speedup", func(t *testing.T) {
		res := NewSpeedupEvaluator("time", "bench", 10, 0, runner).Evaluate(ctx, "fast", "slow")
		require.Empty(t, res.Error)
		// speedups 4 and 2 average to 3
		assert.InDelta(t, 3.0, res.Metrics["average_speedup"], 1e-9)
		assert.InDelta(t, 200.0, res.Metrics["improvement_percentage"], 1e-9)
		assert.InDelta(t, 0.3, res.Score, 1e-9)
	})

	t.Run("cap bounds score", func(t *testing.T) {
		res := NewSpeedupEvaluator("time", "bench", 2, 0, runner).Evaluate(ctx, "fast", "slow")
		assert.InDelta(t, 1.0, res.Score, 1e-9)
	})

	t.Run("no baseline means no speedup", func(t *testing.T) {
		res := NewSpeedupEvaluator("time", "bench", 0, 0, runner).Evaluate(ctx, "fast", "")
		assert.InDelta(t, 0.1, res.Score, 1e-9)
	})
}

func TestAverageSpeedup(t *testing.T) {
	assert.InDelta(t, 1.0, AverageSpeedup(nil, map[string]float64{"1": 1}), 1e-9)
	assert.InDelta(t, 2.0, AverageSpeedup(map[string]float64{"1": 2, "2": 9}, map[string]float64{"1": 1, "3": 1}), 1e-9)
	assert.InDelta(t, 1.0, AverageSpeedup(map[string]float64{"1": 2}, map[string]float64{"1": 0}), 1e-9)
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	cat := NewCatalog(Params{SpeedupCap: 10, Timeout: time.Second})

	for _, name := range []string{"correctness", "time", "space", "readability", NameSimilarity, KindCommand, KindSpeedup} {
		assert.Contains(t, cat.Names(), name)
	}

	e, err := cat.Build("correctness", "", Params{})
	require.NoError(t, err)
	assert.Equal(t, "correctness", e.Name())
	_, isComposite := e.(*Composite)
	assert.False(t, isComposite)
	res := e.Evaluate(ctx, "f()", "")
	assert.Equal(t, "correctness", res.Evaluator)
	assert.InDelta(t, 1.0, res.Score, 1e-9)

	e, err = cat.Build("time", "", Params{})
	require.NoError(t, err)
	assert.Equal(t, "time", e.Name())
	assert.InDelta(t, 1.0, e.Evaluate(ctx, "x = 1", "").Score, 1e-9)

	runner := &scriptedExecutor{respond: func(string) (string, error) { return `{"timings": {"1": 1}}`, nil }}
	e, err = cat.Build("time", "", Params{Command: "bench", Executor: runner})
	require.NoError(t, err)
	assert.IsType(t, &SpeedupEvaluator{}, e)

	_, err = cat.Build("tests", KindCommand, Params{})
	require.ErrorIs(t, err, evoerrors.ErrInvalidInput)

	_, err = cat.Build("nope", "", Params{})
	require.ErrorIs(t, err, evoerrors.ErrEvaluatorNotFound)
}
