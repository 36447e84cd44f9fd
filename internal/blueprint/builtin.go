package blueprint

import (
	"github.com/mrz1836/evo/internal/domain"
	"github.com/mrz1836/evo/internal/evaluator"
	"github.com/mrz1836/evo/internal/prompts"
)

// AlgorithmOptimizationName names the built-in algorithm blueprint.
const AlgorithmOptimizationName = "algorithm_optimization"

// AlgorithmOptimization returns the definition of the built-in blueprint for
// speeding up algorithms while keeping them correct.
func AlgorithmOptimization() Definition {
	return Definition{
		Name:        AlgorithmOptimizationName,
		Version:     "1.0.0",
		Domain:      "algorithms",
		Description: "Optimize an algorithm for time and space while preserving correctness.",
		Sequence: []StageSpec{
			{Role: prompts.RoleInitialOptimization, Agent: string(domain.AgentGemini), PromptTemplate: prompts.RoleInitialOptimization},
			{Role: prompts.RoleCodeReview, Agent: string(domain.AgentClaude), PromptTemplate: prompts.RoleCodeReview},
			{Role: prompts.RoleEdgeCaseTesting, Agent: string(domain.AgentGPT), PromptTemplate: prompts.RoleEdgeCaseTesting},
			{Role: prompts.RoleFinalSynthesis, Agent: string(domain.AgentClaude), PromptTemplate: prompts.RoleFinalSynthesis},
		},
		Evaluators: []EvaluatorSpec{
			{Name: "correctness", Weight: 0.5},
			{Name: "time", Weight: 0.3},
			{Name: "space", Weight: 0.1},
			{Name: "readability", Weight: 0.1},
		},
		Parameters: EvolutionParameters{
			MaxIterations:         5,
			ConvergenceThreshold:  0.01,
			ExplorationRate:       0.2,
			DivergenceProbability: 0.1,
			ResidueInjectionRate:  0.3,
		},
		MetaInstructions: []string{
			"Preserve the function signature and observable behaviour.",
			"Prefer a better complexity class over constant-factor tuning.",
			"State the time and space complexity of the result in the reflection.",
		},
		Residue: []domain.ResiduePattern{
			{
				ID:             "algorithms-memoization",
				Type:           domain.ResidueInnovativeFragment,
				PatternText:    "Cache results of pure recursive calls keyed by their arguments to turn exponential recursion into linear time.",
				PotentialValue: 0.8,
			},
			{
				ID:             "algorithms-two-pointers",
				Type:           domain.ResidueInnovativeFragment,
				PatternText:    "On sorted input, replace nested scans with two pointers moving towards each other.",
				PotentialValue: 0.7,
			},
			{
				ID:             "algorithms-hash-lookup",
				Type:           domain.ResidueNearMiss,
				PatternText:    "Replace repeated linear membership tests with a hash set built once up front.",
				PotentialValue: 0.75,
			},
		},
		TestCases: []TestCase{
			{Name: "empty input", Input: "[]", Expected: "[]"},
			{Name: "single element", Input: "[1]", Expected: "[1]"},
			{Name: "already sorted", Input: "[1, 2, 3]", Expected: "[1, 2, 3]"},
			{Name: "reverse sorted", Input: "[3, 2, 1]", Expected: "[1, 2, 3]"},
		},
	}
}

// RegisterBuiltins adds the built-in blueprints to reg.
func RegisterBuiltins(reg *Registry, catalog *evaluator.Catalog) error {
	for _, def := range []Definition{AlgorithmOptimization()} {
		bp, err := New(def, catalog)
		if err != nil {
			return err
		}
		if err := reg.RegisterOrReplace(bp); err != nil {
			return err
		}
	}
	return nil
}
