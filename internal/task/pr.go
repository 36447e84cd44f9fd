package task

import (
	"context"
	"fmt"

	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/prompts"
)

// createPR opens the pull request for a finished task. Failures are recorded
// on the returned reference and never fail the task.
func (e *Engine) createPR(ctx context.Context, task *domain.Task, bp blueprint.Blueprint, results *domain.TaskResults) *domain.PRReference {
	branch := task.Options.Branch
	if branch == "" {
		branch = prompts.PRBranch(task.ID)
	}
	ref := &domain.PRReference{Branch: branch}

	if e.prCreator == nil {
		ref.Error = fmt.Errorf("%w: no pull request creator configured", evoerrors.ErrPRCreation).Error()
		return ref
	}

	var bpName, bpVersion string
	if bp != nil {
		bpName, bpVersion = bp.Name(), bp.Version()
	}
	body, err := prompts.RenderPRDescription(prompts.NewPRDescriptionData(
		task, results.Metrics, results.Reflections, bpName, bpVersion, e.clock.Now()))
	if err != nil {
		ref.Error = err.Error()
		return ref
	}

	url, err := e.prCreator.Create(ctx, domain.PRRequest{
		Repository: task.Options.Repository,
		Branch:     branch,
		Title:      prompts.PRTitle(task.Goal),
		Body:       body,
		Artifact:   results.Artifact,
		Baseline:   task.Artifact,
		Path:       task.Options.Path,
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("task_id", task.ID).Msg("pull request creation failed")
		ref.Error = err.Error()
		return ref
	}

	e.logger.Info().Str("task_id", task.ID).Str("url", url).Msg("pull request created")
	ref.URL = url
	return ref
}
