package ai

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/config"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/logging"
)

// cliSpec describes how to drive one vendor CLI in non-interactive mode.
// The prompt is always written to stdin so it is never limited by argv size.
type cliSpec struct {
	info        CLIInfo
	defaultBin  string
	buildArgs   func(model string) []string
	supportsSys bool
}

//nolint:gochecknoglobals // static CLI table
var cliSpecs = map[domain.AgentKind]cliSpec{
	domain.AgentClaude: {
		info:        CLIInfo{Name: "claude", InstallHint: "npm install -g @anthropic-ai/claude-code", EnvVar: "ANTHROPIC_API_KEY"},
		defaultBin:  "claude",
		supportsSys: true,
		buildArgs: func(model string) []string {
			return []string{"-p", "--output-format", "text", "--model", model}
		},
	},
	domain.AgentGPT: {
		info:       CLIInfo{Name: "codex", InstallHint: "npm install -g @openai/codex", EnvVar: "OPENAI_API_KEY"},
		defaultBin: "codex",
		buildArgs: func(model string) []string {
			return []string{"exec", "--model", model, "--skip-git-repo-check", "-"}
		},
	},
	domain.AgentGemini: {
		info:       CLIInfo{Name: "gemini", InstallHint: "npm install -g @google/gemini-cli", EnvVar: "GEMINI_API_KEY"},
		defaultBin: "gemini",
		buildArgs: func(model string) []string {
			return []string{"--model", model}
		},
	},
}

// CLIRunner drives a hosted model through its vendor CLI.
type CLIRunner struct {
	base     BaseRunner
	spec     cliSpec
	command  string
	model    string
	executor CommandExecutor
	logger   zerolog.Logger
}

// CLIRunnerOption configures a CLIRunner.
type CLIRunnerOption func(*CLIRunner)

// WithExecutor replaces the process executor.
func WithExecutor(e CommandExecutor) CLIRunnerOption {
	return func(r *CLIRunner) {
		if e != nil {
			r.executor = e
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger zerolog.Logger) CLIRunnerOption {
	return func(r *CLIRunner) {
		r.logger = logger
		r.base.Logger = logger
	}
}

// NewCLIRunner returns a runner for a CLI-backed kind.
func NewCLIRunner(kind domain.AgentKind, agentCfg config.AgentConfig, agents *config.AgentsConfig, opts ...CLIRunnerOption) (*CLIRunner, error) {
	spec, ok := cliSpecs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no CLI backend", evoerrors.ErrAgentUnavailable, kind)
	}

	r := &CLIRunner{
		base: BaseRunner{
			Kind:       kind,
			Timeout:    agents.Timeout,
			MaxRetries: agents.MaxRetries,
			Logger:     zerolog.Nop(),
		},
		spec:     spec,
		command:  agentCfg.Command,
		model:    agentCfg.Model,
		executor: &DefaultExecutor{},
		logger:   zerolog.Nop(),
	}
	if r.command == "" {
		r.command = spec.defaultBin
	}
	if r.model == "" {
		r.model = kind.DefaultModel()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

var _ StreamRunner = (*CLIRunner)(nil)

// Run executes req and returns the CLI's stdout.
func (r *CLIRunner) Run(ctx context.Context, req *domain.AIRequest) (*domain.AIResult, error) {
	return r.base.RunWithTimeout(ctx, req, func(ctx context.Context, req *domain.AIRequest) (*domain.AIResult, error) {
		cmd := r.buildCommand(ctx, req)
		stdout, stderr, err := r.executor.Execute(ctx, cmd)
		return r.finish(req, stdout, stderr, err)
	})
}

// Stream executes req, forwarding stdout lines as they arrive. Executors that
// cannot stream deliver the whole output as one chunk. Streams are not retried
// because chunks may already have been delivered.
func (r *CLIRunner) Stream(ctx context.Context, req *domain.AIRequest, onChunk ChunkFunc) (*domain.AIResult, error) {
	streaming, ok := r.executor.(StreamingCommandExecutor)
	if !ok {
		result, err := r.Run(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := onChunk(result.Output); err != nil {
			return nil, err
		}
		return result, nil
	}

	single := r.base
	single.MaxRetries = 1
	return single.RunWithTimeout(ctx, req, func(ctx context.Context, req *domain.AIRequest) (*domain.AIResult, error) {
		cmd := r.buildCommand(ctx, req)
		stdout, stderr, err := streaming.ExecuteStreaming(ctx, cmd, onChunk)
		return r.finish(req, stdout, stderr, err)
	})
}

func (r *CLIRunner) buildCommand(ctx context.Context, req *domain.AIRequest) *exec.Cmd {
	model := req.Model
	if model == "" {
		model = r.model
	}
	args := r.spec.buildArgs(model)
	if req.SystemPrompt != "" && r.spec.supportsSys {
		args = append(args, "--append-system-prompt", req.SystemPrompt)
	}

	prompt := req.Prompt
	if req.SystemPrompt != "" && !r.spec.supportsSys {
		prompt = req.SystemPrompt + "\n\n" + prompt
	}

	r.logger.Debug().
		Str("agent", r.base.Kind.String()).
		Str("command", r.command).
		Str("model", model).
		Str("prompt_preview", logging.Preview(prompt)).
		Msg("invoking agent CLI")

	cmd := exec.CommandContext(ctx, r.command, args...) //#nosec G204 -- binary comes from trusted config
	cmd.Stdin = strings.NewReader(prompt)
	return cmd
}

func (r *CLIRunner) finish(req *domain.AIRequest, stdout, stderr []byte, err error) (*domain.AIResult, error) {
	if err != nil {
		return nil, WrapCLIExecutionError(r.spec.info, err, stderr)
	}
	out := strings.TrimSpace(string(stdout))
	if out == "" {
		return nil, fmt.Errorf("%w: %w: %s", evoerrors.ErrAgentInvocation, evoerrors.ErrEmptyResponse, r.spec.info.Name)
	}
	model := req.Model
	if model == "" {
		model = r.model
	}
	return &domain.AIResult{Success: true, Output: out, Model: model}, nil
}
