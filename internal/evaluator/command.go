package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/mrz1836/evo/internal/ai"
	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// BaselineEnvVar names the file holding the baseline artifact for command evaluators.
const BaselineEnvVar = "EVO_BASELINE_FILE"

// CommandOutput is what an evaluator command prints to stdout.
type CommandOutput struct {
	Score   *float64           `json:"score"`
	Metrics map[string]float64 `json:"metrics"`
}

// CommandEvaluator runs a shell command with the artifact on stdin. The
// command reads the baseline from $EVO_BASELINE_FILE when one is given and
// prints {"score": 0.0-1.0, "metrics": {...}}.
type CommandEvaluator struct {
	name     string
	command  string
	timeout  time.Duration
	executor ai.CommandExecutor
}

var _ Evaluator = (*CommandEvaluator)(nil)

// NewCommandEvaluator creates a command evaluator. A nil executor runs real processes.
func NewCommandEvaluator(name, command string, timeout time.Duration, executor ai.CommandExecutor) *CommandEvaluator {
	if timeout <= 0 {
		timeout = constants.DefaultEvaluatorTimeout
	}
	if executor == nil {
		executor = &ai.DefaultExecutor{}
	}
	return &CommandEvaluator{name: name, command: command, timeout: timeout, executor: executor}
}

// Name returns the evaluator name.
func (c *CommandEvaluator) Name() string { return c.name }

// Evaluate runs the command and parses its score.
func (c *CommandEvaluator) Evaluate(ctx context.Context, artifact, baseline string) domain.EvaluationResult {
	stdout, err := runCommand(ctx, c.executor, c.command, c.timeout, artifact, baseline)
	if err != nil {
		return failed(c.name, err)
	}

	var out CommandOutput
	if err := decodeJSON(stdout, &out); err != nil {
		return failed(c.name, err)
	}
	if out.Score == nil {
		return failed(c.name, fmt.Errorf("%w: %w: missing score", evoerrors.ErrEvaluator, evoerrors.ErrEvaluatorOutput))
	}
	return domain.EvaluationResult{Evaluator: c.name, Score: clamp(*out.Score), Metrics: out.Metrics}
}

// runCommand executes command under sh with artifact on stdin.
func runCommand(ctx context.Context, executor ai.CommandExecutor, command string, timeout time.Duration, artifact, baseline string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command) //#nosec G204 -- command comes from a trusted blueprint
	cmd.Stdin = strings.NewReader(artifact)
	cmd.Env = os.Environ()

	if baseline != "" {
		f, err := os.CreateTemp("", "evo-baseline-*")
		if err != nil {
			return nil, fmt.Errorf("%w: baseline file: %w", evoerrors.ErrEvaluator, err)
		}
		defer func() { _ = os.Remove(f.Name()) }()
		if _, err := f.WriteString(baseline); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: baseline file: %w", evoerrors.ErrEvaluator, err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("%w: baseline file: %w", evoerrors.ErrEvaluator, err)
		}
		cmd.Env = append(cmd.Env, BaselineEnvVar+"="+f.Name())
	}

	stdout, stderr, err := executor.Execute(ctx, cmd)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", evoerrors.ErrEvaluator, command, msg)
	}
	return stdout, nil
}

// decodeJSON extracts the outermost JSON object from out, repairing it if needed.
func decodeJSON(out []byte, v any) error {
	s := string(out)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return fmt.Errorf("%w: %w: no JSON object in output", evoerrors.ErrEvaluator, evoerrors.ErrEvaluatorOutput)
	}

	raw := s[start : end+1]
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", evoerrors.ErrEvaluator, evoerrors.ErrEvaluatorOutput, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %w: %w", evoerrors.ErrEvaluator, evoerrors.ErrEvaluatorOutput, err)
	}
	return nil
}

// BenchmarkOutput is what a benchmark command prints: seconds per input size.
type BenchmarkOutput struct {
	Timings map[string]float64 `json:"timings"`
}

// SpeedupEvaluator runs a benchmark command on the artifact and the baseline
// and scores min(average speedup / cap, 1).
type SpeedupEvaluator struct {
	name     string
	command  string
	maxRatio float64
	timeout  time.Duration
	executor ai.CommandExecutor
}

var _ Evaluator = (*SpeedupEvaluator)(nil)

// NewSpeedupEvaluator creates a speedup evaluator. A non-positive cap uses the default.
func NewSpeedupEvaluator(name, command string, speedupCap float64, timeout time.Duration, executor ai.CommandExecutor) *SpeedupEvaluator {
	if speedupCap <= 0 {
		speedupCap = constants.DefaultSpeedupCap
	}
	if timeout <= 0 {
		timeout = constants.DefaultEvaluatorTimeout
	}
	if executor == nil {
		executor = &ai.DefaultExecutor{}
	}
	return &SpeedupEvaluator{name: name, command: command, maxRatio: speedupCap, timeout: timeout, executor: executor}
}

// Name returns the evaluator name.
func (s *SpeedupEvaluator) Name() string { return s.name }

// Evaluate benchmarks both versions. Without a baseline the speedup is 1.
func (s *SpeedupEvaluator) Evaluate(ctx context.Context, artifact, baseline string) domain.EvaluationResult {
	candidate, err := s.benchmark(ctx, artifact)
	if err != nil {
		return failed(s.name, err)
	}

	avg := 1.0
	if baseline != "" {
		base, err := s.benchmark(ctx, baseline)
		if err != nil {
			return failed(s.name, err)
		}
		avg = AverageSpeedup(base, candidate)
	}

	return domain.EvaluationResult{
		Evaluator: s.name,
		Score:     clamp(min(avg/s.maxRatio, 1)),
		Metrics: map[string]float64{
			"average_speedup":        avg,
			"improvement_percentage": (avg - 1) * 100,
		},
	}
}

func (s *SpeedupEvaluator) benchmark(ctx context.Context, artifact string) (map[string]float64, error) {
	stdout, err := runCommand(ctx, s.executor, s.command, s.timeout, artifact, "")
	if err != nil {
		return nil, err
	}
	var out BenchmarkOutput
	if err := decodeJSON(stdout, &out); err != nil {
		return nil, err
	}
	return out.Timings, nil
}

// AverageSpeedup averages base/candidate over the sizes both timed. With no
// comparable sizes it returns 1.
func AverageSpeedup(base, candidate map[string]float64) float64 {
	var sum float64
	var n int
	for size, t := range candidate {
		b, ok := base[size]
		if !ok || t <= 0 {
			continue
		}
		sum += b / t
		n++
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}
