package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
	"github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/evaluator"
	"github.com/mrz1836/evo/internal/task"
)

const runTaskID = "7d1c0a52-9a3e-4f2b-8c61-0f4b5e2a9d10"

// scriptedRunner replays statuses, one per GetStatus call.
type scriptedRunner struct {
	startErr error
	statuses []domain.StatusSnapshot
	final    *domain.Task
	calls    int
	started  task.StartRequest
}

func (s *scriptedRunner) Start(_ context.Context, req task.StartRequest) (string, error) {
	s.started = req
	if s.startErr != nil {
		return "", s.startErr
	}
	return runTaskID, nil
}

func (s *scriptedRunner) GetStatus(string) (domain.StatusSnapshot, error) {
	i := s.calls
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	s.calls++
	return s.statuses[i], nil
}

func (s *scriptedRunner) GetTask(string) (*domain.Task, error) {
	return s.final, nil
}

func snap(status constants.TaskStatus, stage string, progress int) domain.StatusSnapshot {
	return domain.StatusSnapshot{ID: runTaskID, Status: status, Stage: stage, Progress: progress}
}

func completedTask() *domain.Task {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Task{
		ID:        runTaskID,
		Artifact:  "def f(n):\n    return n\n",
		Goal:      "make it faster",
		Status:    constants.TaskStatusCompleted,
		Stage:     constants.StageCompleted,
		Progress:  100,
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
		Results: &domain.TaskResults{
			Artifact:   "def f(n):\n    return n * 1\n",
			Iterations: 2,
			BestScore:  0.8,
			Metrics: domain.EvaluationResult{
				Score:        0.8,
				Metrics:      map[string]float64{"non_empty": 1},
				Improvements: map[string]string{"score": "+0.1000"},
			},
			Reflections: []domain.Reflection{{Stage: "iteration_1", Content: "Multiplying by one keeps the result."}},
		},
	}
}

func TestStartAndWait(t *testing.T) {
	t.Run("reports each change until terminal", func(t *testing.T) {
		runner := &scriptedRunner{
			statuses: []domain.StatusSnapshot{
				snap(constants.TaskStatusInProgress, constants.StagePreparation, 5),
				snap(constants.TaskStatusInProgress, constants.StagePreparation, 5),
				snap(constants.TaskStatusInProgress, "iteration_1", 36),
				snap(constants.TaskStatusCompleted, constants.StageCompleted, 100),
			},
			final: completedTask(),
		}

		var seen []int
		got, err := startAndWait(context.Background(), runner, task.StartRequest{Goal: "g"}, time.Millisecond,
			func(s domain.StatusSnapshot) { seen = append(seen, s.Progress) })
		require.NoError(t, err)
		assert.Equal(t, runTaskID, got.ID)
		assert.Equal(t, []int{5, 36, 100}, seen)
		assert.Equal(t, 4, runner.calls)
	})

	t.Run("unknown blueprint is invalid input", func(t *testing.T) {
		runner := &scriptedRunner{startErr: fmt.Errorf("%w: nope", errors.ErrBlueprintNotFound)}
		_, err := startAndWait(context.Background(), runner, task.StartRequest{}, time.Millisecond, func(domain.StatusSnapshot) {})
		require.ErrorIs(t, err, errors.ErrBlueprintNotFound)
		assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
	})

	t.Run("canceled while waiting", func(t *testing.T) {
		runner := &scriptedRunner{statuses: []domain.StatusSnapshot{snap(constants.TaskStatusInProgress, "iteration_1", 36)}}
		ctx, cancel := context.WithCancel(context.Background())
		_, err := startAndWait(ctx, runner, task.StartRequest{}, time.Hour, func(domain.StatusSnapshot) { cancel() })
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunOptions_StartRequest(t *testing.T) {
	dir := t.TempDir()
	artifactPath := filepath.Join(dir, "fib.py")
	require.NoError(t, os.WriteFile(artifactPath, []byte("def fib(n): pass\n"), 0o600))

	t.Run("reads the artifact file", func(t *testing.T) {
		opts := &runOptions{
			ArtifactPath:    artifactPath,
			Goal:            "faster",
			Blueprint:       "algorithm_optimization",
			MaxIterations:   2,
			PreferredAgents: []string{"gemini"},
			Variables:       map[string]string{"constraints": "no imports"},
		}
		req, err := opts.startRequest(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, "def fib(n): pass\n", req.Artifact)
		assert.Equal(t, "algorithm_optimization", req.Blueprint)
		assert.Equal(t, 2, req.Options.MaxIterations)
		assert.Equal(t, []string{"gemini"}, req.Options.PreferredAgents)
		assert.Equal(t, "no imports", req.Options.Variables["constraints"])
		assert.Empty(t, req.Options.Path)
	})

	t.Run("stdin", func(t *testing.T) {
		opts := &runOptions{ArtifactPath: "-", Goal: "g", CreatePR: true}
		req, err := opts.startRequest(strings.NewReader("x = 1\n"))
		require.NoError(t, err)
		assert.Equal(t, "x = 1\n", req.Artifact)
		assert.Empty(t, req.Options.Path)
	})

	t.Run("pull request path defaults to a relative artifact path", func(t *testing.T) {
		t.Chdir(dir)
		opts := &runOptions{ArtifactPath: "./fib.py", Goal: "g", CreatePR: true}
		req, err := opts.startRequest(nil)
		require.NoError(t, err)
		assert.Equal(t, "fib.py", req.Options.Path)
	})

	t.Run("missing or empty artifact", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.py")
		require.NoError(t, os.WriteFile(empty, nil, 0o600))

		for _, path := range []string{filepath.Join(dir, "nope.py"), empty} {
			_, err := (&runOptions{ArtifactPath: path, Goal: "g"}).startRequest(nil)
			require.ErrorIs(t, err, errors.ErrInvalidInput, path)
			assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
		}
	})
}

func TestReportRun(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	reg := blueprint.NewRegistry()
	require.NoError(t, blueprint.RegisterBuiltins(reg, evaluator.NewCatalog(evaluator.Params{})))

	t.Run("text", func(t *testing.T) {
		outFile := filepath.Join(t.TempDir(), "out.py")
		var buf bytes.Buffer
		opts := &runOptions{ArtifactPath: "f.py", ShowDiff: true, OutFile: outFile}

		require.NoError(t, reportRun(NewOutput(&buf, OutputText), completedTask(), reg, opts))

		text := buf.String()
		assert.Contains(t, text, "# Evolution: make it faster")
		assert.Contains(t, text, "Multiplying by one keeps the result.")
		assert.Contains(t, text, "2 iterations, best score 0.8000, +1 -1")
		assert.Contains(t, text, "--- a/f.py")
		assert.Contains(t, text, "+    return n * 1")
		assert.Contains(t, text, "evolved artifact written to "+outFile)

		written, err := os.ReadFile(outFile)
		require.NoError(t, err)
		assert.Equal(t, "def f(n):\n    return n * 1\n", string(written))
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, reportRun(NewOutput(&buf, OutputJSON), completedTask(), reg, &runOptions{}))

		var report runReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
		assert.Equal(t, runTaskID, report.TaskID)
		assert.Equal(t, constants.TaskStatusCompleted, report.Status)
		require.NotNil(t, report.Diff)
		assert.Equal(t, 1, report.Diff.Added)
		assert.InDelta(t, 0.8, report.Results.BestScore, 1e-9)
	})

	t.Run("pull request outcome", func(t *testing.T) {
		tk := completedTask()
		tk.Results.PR = &domain.PRReference{Branch: "evo-x", Error: "pull request target path not set"}
		var buf bytes.Buffer
		require.NoError(t, reportRun(NewOutput(&buf, OutputText), tk, reg, &runOptions{}))
		assert.Contains(t, buf.String(), "pull request not created: pull request target path not set")
	})

	t.Run("failed task", func(t *testing.T) {
		tk := completedTask()
		tk.Status = constants.TaskStatusFailed
		tk.Results = nil
		tk.Error = "agent invocation failed: claude down"

		var buf bytes.Buffer
		err := reportRun(NewOutput(&buf, OutputJSON), tk, reg, &runOptions{})
		require.ErrorIs(t, err, errors.ErrTaskFailed)
		assert.Contains(t, err.Error(), "claude down")
		assert.Contains(t, buf.String(), `"error": "agent invocation failed: claude down"`)
		assert.Equal(t, ExitError, ExitCodeForError(err))
	})
}
