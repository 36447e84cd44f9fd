// Package blueprint provides evolution recipes: which agent and prompt each
// stage uses, how candidates are scored and how long the loop runs.
package blueprint

import (
	"fmt"

	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/evaluator"
	"github.com/mrz1836/evo/internal/prompts"
)

// Blueprint is a reusable recipe for one domain.
type Blueprint interface {
	Name() string
	Version() string
	Domain() string
	Description() string

	// AgentSequence lists the stage roles in order.
	AgentSequence() []StageSpec

	// AgentForStage returns the agent name bound to a role.
	AgentForStage(stage string) (string, error)

	// PromptForStage renders the role's prompt template. Every placeholder
	// in the template must be present in vars.
	PromptForStage(stage string, vars map[string]string) (string, error)

	Evaluator() evaluator.Evaluator
	DetailedEvaluator() evaluator.Evaluator
	EvolutionParameters() EvolutionParameters
	MetaInstructions() []string
	ResiduePatterns() []domain.ResiduePattern
	TestCases() []TestCase
}

// StageSpec binds a role to an agent and a prompt template.
type StageSpec struct {
	Role           string `yaml:"role" json:"role"`
	Agent          string `yaml:"agent" json:"agent"`
	PromptTemplate string `yaml:"prompt_template,omitempty" json:"prompt_template,omitempty"`
}

// EvolutionParameters bound the evolve loop.
type EvolutionParameters struct {
	MaxIterations         int     `yaml:"max_iterations" json:"max_iterations"`
	ConvergenceThreshold  float64 `yaml:"convergence_threshold" json:"convergence_threshold"`
	ExplorationRate       float64 `yaml:"exploration_rate,omitempty" json:"exploration_rate,omitempty"`
	DivergenceProbability float64 `yaml:"divergence_probability,omitempty" json:"divergence_probability,omitempty"`
	ResidueInjectionRate  float64 `yaml:"residue_injection_rate,omitempty" json:"residue_injection_rate,omitempty"`
}

// EvaluatorSpec names a catalog evaluator and its weight.
type EvaluatorSpec struct {
	Name       string  `yaml:"name" json:"name"`
	Kind       string  `yaml:"kind,omitempty" json:"kind,omitempty"`
	Weight     float64 `yaml:"weight" json:"weight"`
	Command    string  `yaml:"command,omitempty" json:"command,omitempty"`
	SpeedupCap float64 `yaml:"speedup_cap,omitempty" json:"speedup_cap,omitempty"`
}

// TestCase is an input/expected pair a blueprint ships for its domain.
type TestCase struct {
	Name     string `yaml:"name" json:"name"`
	Input    string `yaml:"input" json:"input"`
	Expected string `yaml:"expected" json:"expected"`
}

// Definition is the declarative form of a blueprint, as stored in YAML or JSON.
type Definition struct {
	Name             string                  `yaml:"name" json:"name"`
	Version          string                  `yaml:"version" json:"version"`
	Domain           string                  `yaml:"domain" json:"domain"`
	Description      string                  `yaml:"description,omitempty" json:"description,omitempty"`
	Sequence         []StageSpec             `yaml:"agent_sequence" json:"agent_sequence"`
	Prompts          map[string]string       `yaml:"prompts,omitempty" json:"prompts,omitempty"`
	Evaluators       []EvaluatorSpec         `yaml:"evaluators,omitempty" json:"evaluators,omitempty"`
	Parameters       EvolutionParameters     `yaml:"parameters" json:"parameters"`
	MetaInstructions []string                `yaml:"meta_instructions,omitempty" json:"meta_instructions,omitempty"`
	Residue          []domain.ResiduePattern `yaml:"residue_patterns,omitempty" json:"residue_patterns,omitempty"`
	TestCases        []TestCase              `yaml:"test_cases,omitempty" json:"test_cases,omitempty"`
}

// Static is an immutable Blueprint built from a Definition.
type Static struct {
	def       Definition
	eval      evaluator.Evaluator
	detailed  evaluator.Evaluator
	templates map[string]string
}

var _ Blueprint = (*Static)(nil)

var _ prompts.StageRenderer = (*Static)(nil)

// New validates def and builds its evaluator from catalog. A definition
// without evaluators scores with evaluator.Default.
func New(def Definition, catalog *evaluator.Catalog) (*Static, error) {
	def = withDefaults(def)
	if err := Validate(&def); err != nil {
		return nil, err
	}

	b := &Static{def: def, templates: make(map[string]string, len(def.Sequence))}
	for _, stage := range def.Sequence {
		src, err := resolveTemplate(def, stage)
		if err != nil {
			return nil, err
		}
		b.templates[stage.Role] = src
	}

	if len(def.Evaluators) == 0 {
		b.eval = evaluator.Default()
	} else {
		if catalog == nil {
			return nil, fmt.Errorf("%w: %s: evaluators declared but no catalog", evoerrors.ErrBlueprintInvalid, def.Name)
		}
		members := make([]evaluator.Weighted, 0, len(def.Evaluators))
		for _, spec := range def.Evaluators {
			e, err := catalog.Build(spec.Name, spec.Kind, evaluator.Params{Command: spec.Command, SpeedupCap: spec.SpeedupCap})
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", evoerrors.ErrBlueprintInvalid, def.Name, err)
			}
			members = append(members, evaluator.Weighted{Evaluator: e, Weight: spec.Weight})
		}
		b.eval = evaluator.NewComposite(def.Name, members...)
	}
	b.detailed = evaluator.NewDetailed(b.eval)
	return b, nil
}

// resolveTemplate picks the stage's template source: a prompt declared in
// the definition, else the embedded default for the template id or role.
func resolveTemplate(def Definition, stage StageSpec) (string, error) {
	id := stage.PromptTemplate
	if id == "" {
		id = stage.Role
	}
	if src, ok := def.Prompts[id]; ok {
		return src, nil
	}
	if prompts.HasStageTemplate(id) {
		return prompts.StageTemplate(id), nil
	}
	if stage.PromptTemplate != "" {
		return "", fmt.Errorf("%w: %s: stage %s: %w: %s", evoerrors.ErrBlueprintInvalid, def.Name, stage.Role, evoerrors.ErrTemplateNotFound, id)
	}
	return prompts.StageTemplate(prompts.RoleIteration), nil
}

// withDefaults fills unset fields. A zero convergence threshold counts as unset.
func withDefaults(def Definition) Definition {
	if def.Parameters.MaxIterations == 0 {
		def.Parameters.MaxIterations = constants.DefaultMaxIterations
	}
	if def.Parameters.ConvergenceThreshold == 0 {
		def.Parameters.ConvergenceThreshold = constants.DefaultConvergenceThreshold
	}
	if def.Version == "" {
		def.Version = "0.0.0"
	}
	if def.Domain == "" {
		def.Domain = constants.DefaultDomain
	}
	return def
}

// Name returns the blueprint name.
func (b *Static) Name() string { return b.def.Name }

// Version returns the blueprint version.
func (b *Static) Version() string { return b.def.Version }

// Domain returns the residue domain.
func (b *Static) Domain() string { return b.def.Domain }

// Description returns the human-readable description.
func (b *Static) Description() string { return b.def.Description }

// AgentSequence returns a copy of the stage list.
func (b *Static) AgentSequence() []StageSpec {
	return append([]StageSpec(nil), b.def.Sequence...)
}

// AgentForStage returns the agent bound to stage.
func (b *Static) AgentForStage(stage string) (string, error) {
	for _, s := range b.def.Sequence {
		if s.Role == stage {
			return s.Agent, nil
		}
	}
	return "", fmt.Errorf("%w: %s: %s", evoerrors.ErrStageNotFound, b.def.Name, stage)
}

// PromptForStage renders the template bound to stage.
func (b *Static) PromptForStage(stage string, vars map[string]string) (string, error) {
	src, ok := b.templates[stage]
	if !ok {
		return "", fmt.Errorf("%w: %s: %s", evoerrors.ErrStageNotFound, b.def.Name, stage)
	}
	out, err := prompts.Render(src, vars, prompts.Variables(src))
	if err != nil {
		return "", fmt.Errorf("blueprint %s stage %s: %w", b.def.Name, stage, err)
	}
	return out, nil
}

// Evaluator returns the per-iteration evaluator.
func (b *Static) Evaluator() evaluator.Evaluator { return b.eval }

// DetailedEvaluator returns the finalization evaluator, which adds
// improvements over the baseline.
func (b *Static) DetailedEvaluator() evaluator.Evaluator { return b.detailed }

// EvolutionParameters returns the loop bounds.
func (b *Static) EvolutionParameters() EvolutionParameters { return b.def.Parameters }

// MetaInstructions returns the blueprint's standing instructions.
func (b *Static) MetaInstructions() []string {
	return append([]string(nil), b.def.MetaInstructions...)
}

// ResiduePatterns returns the seed residue, tagged with the blueprint domain.
func (b *Static) ResiduePatterns() []domain.ResiduePattern {
	out := make([]domain.ResiduePattern, len(b.def.Residue))
	for i, p := range b.def.Residue {
		if p.Domain == "" {
			p.Domain = b.def.Domain
		}
		out[i] = p
	}
	return out
}

// TestCases returns the blueprint's test cases.
func (b *Static) TestCases() []TestCase {
	return append([]TestCase(nil), b.def.TestCases...)
}

// Definition returns a copy of the underlying definition.
func (b *Static) Definition() Definition {
	return b.def
}
