package agent

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/evaluator"
)

// fakeAgent is a minimal Agent with fixed capabilities.
type fakeAgent struct {
	name string
	caps domain.CapabilitySet
}

func (f *fakeAgent) Name() string                       { return f.name }
func (f *fakeAgent) Kind() domain.AgentKind             { return domain.AgentKind(f.name) }
func (f *fakeAgent) Capabilities() domain.CapabilitySet { return f.caps }
func (f *fakeAgent) Generate(context.Context, string, GenerateOptions) (string, error) {
	return "", nil
}

func (f *fakeAgent) Reflect(_ context.Context, text string, _ ReflectOptions) map[string]any {
	return rawReflection(text)
}

// fakeProvider creates agents for the listed kinds only.
type fakeProvider struct {
	available map[string]bool
	created   []string
}

func newFakeProvider(kinds ...domain.AgentKind) *fakeProvider {
	p := &fakeProvider{available: make(map[string]bool)}
	for _, k := range kinds {
		p.available[k.String()] = true
	}
	return p
}

func (p *fakeProvider) Create(name string) (Agent, error) {
	p.created = append(p.created, name)
	if !p.available[name] {
		return nil, evoerrors.ErrAgentUnavailable
	}
	return &fakeAgent{name: name, caps: CapabilitiesOf(domain.AgentKind(name))}, nil
}

func allKinds() []domain.AgentKind { return domain.AgentKinds() }

func testRegistry(t *testing.T) *blueprint.Registry {
	t.Helper()
	reg := blueprint.NewRegistry()
	require.NoError(t, blueprint.RegisterBuiltins(reg, evaluator.NewCatalog(evaluator.Params{})))
	return reg
}

func TestSelector_BlueprintWins(t *testing.T) {
	s := NewSelector(newFakeProvider(allKinds()...), testRegistry(t), "claude")
	task := &domain.Task{
		ID:        "t",
		Blueprint: blueprint.AlgorithmOptimizationName,
		Options:   domain.TaskOptions{PreferredAgents: []string{"gpt"}},
	}

	a, err := s.Select(task, "initial_optimization")
	require.NoError(t, err)
	assert.Equal(t, "gemini", a.Name())
}

func TestSelector_BlueprintErrorsFallThrough(t *testing.T) {
	s := NewSelector(newFakeProvider(allKinds()...), testRegistry(t), "claude")

	// unknown blueprint
	a, err := s.Select(&domain.Task{Blueprint: "missing", Options: domain.TaskOptions{PreferredAgents: []string{"gpt"}}}, "code_review")
	require.NoError(t, err)
	assert.Equal(t, "gpt", a.Name())

	// role not in the blueprint
	a, err = s.Select(&domain.Task{Blueprint: blueprint.AlgorithmOptimizationName}, "iteration_3")
	require.NoError(t, err)
	assert.Equal(t, "gpt", a.Name())
}

func TestSelector_BlueprintAgentUnavailable(t *testing.T) {
	s := NewSelector(newFakeProvider(domain.AgentClaude, domain.AgentGPT), testRegistry(t), "claude")
	a, err := s.Select(&domain.Task{Blueprint: blueprint.AlgorithmOptimizationName}, "initial_optimization")
	require.NoError(t, err)
	// gemini is bound but unavailable, so the stage preferences continue with claude
	assert.Equal(t, "claude", a.Name())
}

func TestSelector_PreferredNeedsCapabilityOverlap(t *testing.T) {
	s := NewSelector(newFakeProvider(allKinds()...), nil, "claude")

	// llama lacks critique but shares code_analysis with the stage
	a, err := s.Select(&domain.Task{Options: domain.TaskOptions{PreferredAgents: []string{"llama"}}}, "code_review")
	require.NoError(t, err)
	assert.Equal(t, "llama", a.Name())

	// gemini has neither creativity nor innovation, so iteration_3 skips it
	a, err = s.Select(&domain.Task{Options: domain.TaskOptions{PreferredAgents: []string{"gemini", "mistral"}}}, "iteration_3")
	require.NoError(t, err)
	assert.Equal(t, "gpt", a.Name())
}

func TestSelector_StagePreferences(t *testing.T) {
	s := NewSelector(newFakeProvider(allKinds()...), nil, "claude")
	tests := map[string]string{
		"initial_optimization": "gemini",
		"code_review":          "claude",
		"edge_case_testing":    "gpt",
		"iteration_1":          "gemini",
		"iteration_3":          "gpt",
		"iteration_4":          "claude",
	}
	for stage, want := range tests {
		a, err := s.Select(&domain.Task{}, stage)
		require.NoError(t, err)
		assert.Equal(t, want, a.Name(), stage)
	}
}

func TestSelector_CapabilityRanking(t *testing.T) {
	s := NewSelector(newFakeProvider(domain.AgentMistral, domain.AgentLlama), nil, "")

	// iteration_7 has no preferences and needs code_generation, which every
	// kind holds, so table order decides among the available ones
	a, err := s.Select(&domain.Task{}, "iteration_7")
	require.NoError(t, err)
	assert.Equal(t, "mistral", a.Name())

	assert.Equal(t,
		[]domain.AgentKind{domain.AgentClaude, domain.AgentGemini, domain.AgentMistral, domain.AgentGPT, domain.AgentLlama},
		rankByCapability(RequiredCapabilities("initial_optimization")),
	)
}

func TestSelector_DefaultAndExhaustion(t *testing.T) {
	p := &fakeProvider{available: map[string]bool{"custom": true}}
	s := NewSelector(p, nil, "custom")
	a, err := s.Select(&domain.Task{}, "code_review")
	require.NoError(t, err)
	assert.Equal(t, "custom", a.Name())

	s = NewSelector(newFakeProvider(), nil, "claude")
	_, err = s.Select(&domain.Task{}, "code_review")
	require.ErrorIs(t, err, evoerrors.ErrNoAgentsAvailable)
}

func TestSelector_SelectFallback(t *testing.T) {
	t.Run("never returns the failed agent", func(t *testing.T) {
		s := NewSelector(newFakeProvider(allKinds()...), nil, "claude", WithRand(rand.New(rand.NewPCG(1, 2))))
		for _, stage := range []string{"code_review", "iteration_3", "initial_optimization", "unknown"} {
			for _, failed := range []string{"claude", "gpt", "gemini"} {
				a, err := s.SelectFallback(&domain.Task{}, stage, failed)
				require.NoError(t, err)
				assert.NotEqual(t, failed, a.Name(), "%s/%s", stage, failed)
			}
		}
	})

	t.Run("prefers a full capability match", func(t *testing.T) {
		s := NewSelector(newFakeProvider(allKinds()...), nil, "claude")
		// code_review needs code_analysis and critique: only claude has both
		a, err := s.SelectFallback(&domain.Task{}, "code_review", "gpt")
		require.NoError(t, err)
		assert.Equal(t, "claude", a.Name())
	})

	t.Run("random among partial matches", func(t *testing.T) {
		s := NewSelector(newFakeProvider(domain.AgentClaude, domain.AgentMistral, domain.AgentLlama), nil, "claude",
			WithRand(rand.New(rand.NewPCG(7, 7))))
		for range 20 {
			a, err := s.SelectFallback(&domain.Task{}, "code_review", "claude")
			require.NoError(t, err)
			assert.Contains(t, []string{"mistral", "llama"}, a.Name())
		}
	})

	t.Run("default when nothing else", func(t *testing.T) {
		s := NewSelector(newFakeProvider(domain.AgentClaude), nil, "claude")
		a, err := s.SelectFallback(&domain.Task{}, "code_review", "claude")
		require.NoError(t, err)
		assert.Equal(t, "claude", a.Name())
	})
}
