package blueprint

import (
	"fmt"
	"strings"

	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// maxIterationsLimit matches the engine configuration bound.
const maxIterationsLimit = 100

// Validate checks a definition has all required fields and sane values.
func Validate(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", evoerrors.ErrBlueprintInvalid)
	}
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: name is required", evoerrors.ErrBlueprintInvalid)
	}
	if len(def.Sequence) == 0 {
		return fmt.Errorf("%w: %s: agent_sequence must have at least one stage", evoerrors.ErrBlueprintInvalid, def.Name)
	}

	seen := make(map[string]bool, len(def.Sequence))
	for i, stage := range def.Sequence {
		if err := validateStage(def.Name, &stage, i); err != nil {
			return err
		}
		if seen[stage.Role] {
			return fmt.Errorf("%w: %s: stage %d: duplicate role %q", evoerrors.ErrBlueprintInvalid, def.Name, i, stage.Role)
		}
		seen[stage.Role] = true
	}

	p := def.Parameters
	if p.MaxIterations < 1 || p.MaxIterations > maxIterationsLimit {
		return fmt.Errorf("%w: %s: max_iterations must be between 1 and %d", evoerrors.ErrBlueprintInvalid, def.Name, maxIterationsLimit)
	}
	if p.ConvergenceThreshold < 0 {
		return fmt.Errorf("%w: %s: convergence_threshold cannot be negative", evoerrors.ErrBlueprintInvalid, def.Name)
	}

	for i, e := range def.Evaluators {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: %s: evaluator %d: name is required", evoerrors.ErrBlueprintInvalid, def.Name, i)
		}
		if e.Weight < 0 {
			return fmt.Errorf("%w: %s: evaluator %s: weight cannot be negative", evoerrors.ErrBlueprintInvalid, def.Name, e.Name)
		}
	}
	return nil
}

func validateStage(name string, stage *StageSpec, index int) error {
	if strings.TrimSpace(stage.Role) == "" {
		return fmt.Errorf("%w: %s: stage %d: role is required", evoerrors.ErrBlueprintInvalid, name, index)
	}
	if !domain.AgentKind(stage.Agent).IsValid() {
		return fmt.Errorf("%w: %s: stage %d (%s): unknown agent %q", evoerrors.ErrBlueprintInvalid, name, index, stage.Role, stage.Agent)
	}
	return nil
}
