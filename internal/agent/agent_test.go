package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/evo/internal/ai"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/prompts"
)

// fakeRunner answers every request with RunFunc.
type fakeRunner struct {
	mu      sync.Mutex
	RunFunc func(req *domain.AIRequest) (*domain.AIResult, error)
	reqs    []*domain.AIRequest
}

func (f *fakeRunner) Run(_ context.Context, req *domain.AIRequest) (*domain.AIResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.RunFunc(req)
}

// fakeStreamRunner additionally streams the output word by word.
type fakeStreamRunner struct {
	fakeRunner
}

func (f *fakeStreamRunner) Stream(ctx context.Context, req *domain.AIRequest, onChunk ai.ChunkFunc) (*domain.AIResult, error) {
	res, err := f.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, w := range strings.SplitAfter(res.Output, " ") {
		if err := onChunk(w); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func answer(out string) func(*domain.AIRequest) (*domain.AIResult, error) {
	return func(*domain.AIRequest) (*domain.AIResult, error) {
		return &domain.AIResult{Success: true, Output: out}, nil
	}
}

func TestRunnerAgent_Generate(t *testing.T) {
	runner := &fakeRunner{RunFunc: answer("improved")}
	a := NewRunnerAgent(domain.AgentGemini, runner, zerolog.Nop())

	assert.Equal(t, "gemini", a.Name())
	assert.True(t, a.Capabilities().Has(domain.CapTestGeneration))

	out, err := a.Generate(context.Background(), "prompt", GenerateOptions{SystemPrompt: "sys", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "improved", out)
	require.Len(t, runner.reqs, 1)
	assert.Equal(t, domain.AgentGemini, runner.reqs[0].Agent)
	assert.Equal(t, "sys", runner.reqs[0].SystemPrompt)
	assert.Equal(t, "m", runner.reqs[0].Model)
}

func TestRunnerAgent_GenerateWrapsErrors(t *testing.T) {
	runner := &fakeRunner{RunFunc: func(*domain.AIRequest) (*domain.AIResult, error) {
		return nil, errors.New("socket closed")
	}}
	_, err := NewRunnerAgent(domain.AgentClaude, runner, zerolog.Nop()).Generate(context.Background(), "p", GenerateOptions{})
	require.ErrorIs(t, err, evoerrors.ErrAgentInvocation)
	assert.Equal(t, 1, strings.Count(err.Error(), evoerrors.ErrAgentInvocation.Error()))
}

func TestRunnerAgent_Stream(t *testing.T) {
	ctx := context.Background()

	t.Run("streaming backend", func(t *testing.T) {
		runner := &fakeStreamRunner{fakeRunner{RunFunc: answer("a b c")}}
		var chunks []string
		err := NewRunnerAgent(domain.AgentLlama, runner, zerolog.Nop()).Stream(ctx, "p", func(c string) error {
			chunks = append(chunks, c)
			return nil
		}, GenerateOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a ", "b ", "c"}, chunks)
	})

	t.Run("non streaming backend", func(t *testing.T) {
		runner := &fakeRunner{RunFunc: answer("whole")}
		var chunks []string
		err := NewRunnerAgent(domain.AgentGPT, runner, zerolog.Nop()).Stream(ctx, "p", func(c string) error {
			chunks = append(chunks, c)
			return nil
		}, GenerateOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"whole"}, chunks)
	})
}

func TestRunnerAgent_Reflect(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		output string
		err    error
		check  func(t *testing.T, got map[string]any)
	}{
		{
			name:   "clean json",
			output: `Sure! {"strengths": ["fast"], "confidence": 0.8} hope this helps`,
			check: func(t *testing.T, got map[string]any) {
				assert.InDelta(t, 0.8, got["confidence"], 1e-9)
				assert.Equal(t, []any{"fast"}, got["strengths"])
			},
		},
		{
			name:   "repaired json",
			output: `{'strengths': ['fast',], 'confidence': 0.5,}`,
			check: func(t *testing.T, got map[string]any) {
				assert.InDelta(t, 0.5, got["confidence"], 1e-9)
			},
		},
		{
			name:   "no json",
			output: "It looks fine to me.",
			check: func(t *testing.T, got map[string]any) {
				assert.Equal(t, map[string]any{RawReflectionKey: "It looks fine to me."}, got)
			},
		},
		{
			name: "backend failure",
			err:  errors.New("down"),
			check: func(t *testing.T, got map[string]any) {
				assert.Equal(t, map[string]any{RawReflectionKey: "the text"}, got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{RunFunc: func(*domain.AIRequest) (*domain.AIResult, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &domain.AIResult{Output: tt.output}, nil
			}}
			got := NewRunnerAgent(domain.AgentClaude, runner, zerolog.Nop()).
				Reflect(ctx, "the text", ReflectOptions{Type: prompts.ReflectionAlgorithm})
			tt.check(t, got)
			assert.Contains(t, runner.reqs[0].Prompt, "time_complexity")
		})
	}
}

func TestExtractStructured(t *testing.T) {
	_, ok := ExtractStructured("no braces")
	assert.False(t, ok)
	_, ok = ExtractStructured("} backwards {")
	assert.False(t, ok)

	got, ok := ExtractStructured(`{"a": 1}`)
	require.True(t, ok)
	assert.InDelta(t, 1.0, got["a"], 1e-9)
}

func TestFactory(t *testing.T) {
	runners := ai.NewRunnerRegistry()
	runners.Register(domain.AgentClaude, &fakeRunner{RunFunc: answer("x")})
	f := NewFactory(runners, zerolog.Nop())

	a, err := f.Create("Claude")
	require.NoError(t, err)
	assert.Equal(t, "claude", a.Name())

	_, err = f.Create("gpt")
	require.ErrorIs(t, err, evoerrors.ErrAgentUnavailable)

	_, err = f.Create("hal9000")
	require.ErrorIs(t, err, evoerrors.ErrAgentNotFound)

	f.Register("custom", func() (Agent, error) { return &fakeAgent{name: "custom"}, nil })
	assert.Equal(t, []string{"claude", "custom"}, f.Names())

	assert.Empty(t, NewFactory(nil, zerolog.Nop()).Names())
}
