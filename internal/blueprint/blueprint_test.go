package blueprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/evaluator"
)

func testCatalog() *evaluator.Catalog {
	return evaluator.NewCatalog(evaluator.Params{})
}

func fullVars() map[string]string {
	return map[string]string{
		"artifact":            "def f(): pass",
		"original_artifact":   "def f(): pass",
		"goal":                "speed",
		"language":            "python",
		"stage":               "code_review",
		"iteration":           "2",
		"max_iterations":      "5",
		"reflection_summary":  "",
		"guidance_summary":    "",
		"recent_guidance":     "",
		"residue_patterns":    "",
		"previous_reflection": "",
	}
}

func TestAlgorithmOptimization(t *testing.T) {
	bp, err := New(AlgorithmOptimization(), testCatalog())
	require.NoError(t, err)

	assert.Equal(t, "algorithm_optimization", bp.Name())
	assert.Equal(t, "1.0.0", bp.Version())
	assert.Equal(t, "algorithms", bp.Domain())

	seq := bp.AgentSequence()
	require.Len(t, seq, 4)
	roles := []string{seq[0].Role, seq[1].Role, seq[2].Role, seq[3].Role}
	assert.Equal(t, []string{"initial_optimization", "code_review", "edge_case_testing", "final_synthesis"}, roles)

	agent, err := bp.AgentForStage("edge_case_testing")
	require.NoError(t, err)
	assert.Equal(t, "gpt", agent)

	_, err = bp.AgentForStage("nope")
	require.ErrorIs(t, err, evoerrors.ErrStageNotFound)

	params := bp.EvolutionParameters()
	assert.Equal(t, 5, params.MaxIterations)
	assert.InDelta(t, 0.01, params.ConvergenceThreshold, 1e-9)
	assert.InDelta(t, 0.3, params.ResidueInjectionRate, 1e-9)

	comp, ok := bp.Evaluator().(*evaluator.Composite)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.5, 0.3, 0.1, 0.1}, comp.Weights(), 1e-9)

	res := bp.Evaluator().Evaluate(context.Background(), "def f(x):\n    return x", "def f(x):\n    return x")
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Contains(t, res.Metrics, "correctness")

	for _, p := range bp.ResiduePatterns() {
		assert.Equal(t, "algorithms", p.Domain)
	}
	assert.NotEmpty(t, bp.MetaInstructions())
	assert.NotEmpty(t, bp.TestCases())
}

func TestStatic_PromptForStage(t *testing.T) {
	bp, err := New(AlgorithmOptimization(), testCatalog())
	require.NoError(t, err)

	out, err := bp.PromptForStage("code_review", fullVars())
	require.NoError(t, err)
	assert.Contains(t, out, "def f(): pass")

	vars := fullVars()
	delete(vars, "language")
	_, err = bp.PromptForStage("code_review", vars)
	require.ErrorIs(t, err, evoerrors.ErrTemplateVariableMissing)

	_, err = bp.PromptForStage("unknown", fullVars())
	require.ErrorIs(t, err, evoerrors.ErrStageNotFound)
}

func TestNew_CustomPrompts(t *testing.T) {
	def := Definition{
		Name: "custom",
		Sequence: []StageSpec{
			{Role: "draft", Agent: "claude", PromptTemplate: "draft_prompt"},
			{Role: "polish", Agent: "gpt"},
		},
		Prompts: map[string]string{"draft_prompt": "Draft {{goal}} for {{audience}}"},
	}
	bp, err := New(def, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, bp.EvolutionParameters().MaxIterations)
	assert.Equal(t, "general", bp.Domain())
	assert.Equal(t, "0.0.0", bp.Version())

	_, err = bp.PromptForStage("draft", map[string]string{"goal": "g"})
	require.ErrorIs(t, err, evoerrors.ErrTemplateVariableMissing)

	out, err := bp.PromptForStage("draft", map[string]string{"goal": "g", "audience": "devs"})
	require.NoError(t, err)
	assert.Equal(t, "Draft g for devs", out)

	// polish has no template of its own and falls back to the generic iteration prompt
	out, err = bp.PromptForStage("polish", fullVars())
	require.NoError(t, err)
	assert.Contains(t, out, "Improve the following")
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"no name", Definition{Sequence: []StageSpec{{Role: "a", Agent: "claude"}}}},
		{"no stages", Definition{Name: "x"}},
		{"unknown agent", Definition{Name: "x", Sequence: []StageSpec{{Role: "a", Agent: "hal"}}}},
		{"duplicate role", Definition{Name: "x", Sequence: []StageSpec{{Role: "a", Agent: "claude"}, {Role: "a", Agent: "gpt"}}}},
		{"too many iterations", Definition{Name: "x", Sequence: []StageSpec{{Role: "a", Agent: "claude"}}, Parameters: EvolutionParameters{MaxIterations: 500}}},
		{"negative weight", Definition{Name: "x", Sequence: []StageSpec{{Role: "a", Agent: "claude"}}, Evaluators: []EvaluatorSpec{{Name: "space", Weight: -1}}}},
		{"unknown evaluator", Definition{Name: "x", Sequence: []StageSpec{{Role: "a", Agent: "claude"}}, Evaluators: []EvaluatorSpec{{Name: "vibes", Weight: 1}}}},
		{"missing template", Definition{Name: "x", Sequence: []StageSpec{{Role: "a", Agent: "claude", PromptTemplate: "ghost"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.def, testCatalog())
			require.ErrorIs(t, err, evoerrors.ErrBlueprintInvalid)
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg, testCatalog()))

	bp, err := reg.Get(AlgorithmOptimizationName)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmOptimizationName, bp.Name())

	_, err = reg.Get("missing")
	require.ErrorIs(t, err, evoerrors.ErrBlueprintNotFound)
	assert.True(t, evoerrors.IsNotFound(err))

	err = reg.Register(bp)
	require.ErrorIs(t, err, evoerrors.ErrBlueprintInvalid)

	custom, err := New(Definition{Name: "a_first", Sequence: []StageSpec{{Role: "r", Agent: "gemini"}}}, nil)
	require.NoError(t, err)
	require.NoError(t, reg.Register(custom))

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a_first", list[0].Name())
}
