package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/ai"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/prompts"
)

// RunnerAgent is an Agent backed by an ai.Runner.
type RunnerAgent struct {
	kind   domain.AgentKind
	caps   domain.CapabilitySet
	runner ai.Runner
	logger zerolog.Logger
}

var (
	_ Agent    = (*RunnerAgent)(nil)
	_ Streamer = (*RunnerAgent)(nil)
)

// NewRunnerAgent wraps runner as an agent of kind.
func NewRunnerAgent(kind domain.AgentKind, runner ai.Runner, logger zerolog.Logger) *RunnerAgent {
	return &RunnerAgent{
		kind:   kind,
		caps:   CapabilitiesOf(kind),
		runner: runner,
		logger: logger.With().Str("agent", kind.String()).Logger(),
	}
}

// Name returns the agent name, which is its kind.
func (a *RunnerAgent) Name() string { return a.kind.String() }

// Kind returns the agent kind.
func (a *RunnerAgent) Kind() domain.AgentKind { return a.kind }

// Capabilities returns the agent's capability tags.
func (a *RunnerAgent) Capabilities() domain.CapabilitySet {
	return append(domain.CapabilitySet(nil), a.caps...)
}

func (a *RunnerAgent) request(prompt string, opts GenerateOptions) *domain.AIRequest {
	return &domain.AIRequest{
		Agent:        a.kind,
		Prompt:       prompt,
		SystemPrompt: opts.SystemPrompt,
		Model:        opts.Model,
		Temperature:  opts.Temperature,
		Timeout:      opts.Timeout,
	}
}

// Generate runs prompt through the backend.
func (a *RunnerAgent) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	result, err := a.runner.Run(ctx, a.request(prompt, opts))
	if err != nil {
		return "", wrapInvocation(a.kind, err)
	}
	a.logger.Debug().Int64("duration_ms", result.DurationMs).Str("model", result.Model).Msg("generation complete")
	return result.Output, nil
}

// Stream delivers the response chunk by chunk. Backends that cannot stream
// deliver one chunk.
func (a *RunnerAgent) Stream(ctx context.Context, prompt string, onChunk ChunkFunc, opts GenerateOptions) error {
	streamer, ok := a.runner.(ai.StreamRunner)
	if !ok {
		out, err := a.Generate(ctx, prompt, opts)
		if err != nil {
			return err
		}
		return onChunk(out)
	}

	if _, err := streamer.Stream(ctx, a.request(prompt, opts), ai.ChunkFunc(onChunk)); err != nil {
		return wrapInvocation(a.kind, err)
	}
	return nil
}

// Reflect asks the backend for a structured critique of text.
func (a *RunnerAgent) Reflect(ctx context.Context, text string, opts ReflectOptions) map[string]any {
	kind := opts.Type
	if kind == "" {
		kind = prompts.ReflectionGeneral
	}

	out, err := a.Generate(ctx, prompts.ReflectionPrompt(kind, text), opts.GenerateOptions)
	if err != nil {
		a.logger.Warn().Err(err).Str("reflection_type", string(kind)).Msg("reflection failed")
		return rawReflection(text)
	}
	if structured, ok := ExtractStructured(out); ok {
		return structured
	}
	return rawReflection(out)
}

func wrapInvocation(kind domain.AgentKind, err error) error {
	if errors.Is(err, evoerrors.ErrAgentInvocation) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", evoerrors.ErrAgentInvocation, kind, err)
}
