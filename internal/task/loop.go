package task

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/evo/internal/agent"
	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/diff"
	"github.com/mrz1836/evo/internal/domain"
	"github.com/mrz1836/evo/internal/evaluator"
	"github.com/mrz1836/evo/internal/prompts"
	"github.com/mrz1836/evo/internal/residue"
)

// StageRole resolves the blueprint role for a 1-based iteration. The first
// iteration uses the first role and the last iteration the last one.
// Iterations in between cycle through the middle roles in sequence order,
// starting with the second role. Without a blueprint the role is iteration_N.
func StageRole(bp blueprint.Blueprint, iteration, maxIterations int) string {
	var seq []blueprint.StageSpec
	if bp != nil {
		seq = bp.AgentSequence()
	}
	switch {
	case len(seq) == 0:
		return constants.StageIterationPrefix + strconv.Itoa(iteration)
	case len(seq) < 2:
		return seq[0].Role
	case iteration == 1:
		return seq[0].Role
	case iteration == maxIterations:
		return seq[len(seq)-1].Role
	case len(seq) == 2:
		return seq[1].Role
	default:
		return seq[(iteration-2)%(len(seq)-2)+1].Role
	}
}

// IterationProgress is the progress reported when iteration n of max starts.
func IterationProgress(n, maxIterations int) int {
	return int(constants.ProgressIterationBase + float64(n)/float64(maxIterations)*constants.ProgressIterationSpan)
}

// loopParams are the resolved bounds of one task's loop.
type loopParams struct {
	maxIterations int
	threshold     float64
	domain        string
	evaluator     evaluator.Evaluator
	detailed      evaluator.Evaluator
	generate      agent.GenerateOptions
	reflectType   prompts.ReflectionType
}

func (e *Engine) params(t *domain.Task, bp blueprint.Blueprint) loopParams {
	p := loopParams{
		maxIterations: e.config.MaxIterations,
		threshold:     e.config.ConvergenceThreshold,
		domain:        constants.DefaultDomain,
		evaluator:     e.evaluator,
		detailed:      e.detailed,
		generate:      e.config.Generate,
		reflectType:   prompts.ReflectionCode,
	}
	if bp != nil {
		ep := bp.EvolutionParameters()
		if ep.MaxIterations > 0 {
			p.maxIterations = ep.MaxIterations
		}
		if ep.ConvergenceThreshold >= 0 {
			p.threshold = ep.ConvergenceThreshold
		}
		if bp.Domain() != "" {
			p.domain = bp.Domain()
		}
		if ev := bp.Evaluator(); ev != nil {
			p.evaluator = ev
		}
		if ev := bp.DetailedEvaluator(); ev != nil {
			p.detailed = ev
		}
		if meta := bp.MetaInstructions(); len(meta) > 0 {
			parts := append([]string{}, strings.TrimSpace(p.generate.SystemPrompt))
			parts = append(parts, meta...)
			p.generate.SystemPrompt = strings.TrimSpace(strings.Join(parts, "\n"))
		}
		if p.domain == "algorithms" {
			p.reflectType = prompts.ReflectionAlgorithm
		}
	}
	if t.Options.MaxIterations > 0 {
		p.maxIterations = t.Options.MaxIterations
	}
	if p.maxIterations <= 0 {
		p.maxIterations = constants.DefaultMaxIterations
	}
	return p
}

// run owns the task until it is terminal. Panics become task failures.
func (e *Engine) run(ctx context.Context, ent *entry, bp blueprint.Blueprint) {
	defer e.wg.Done()
	defer close(ent.done)

	started := e.clock.Now()
	taskID := ent.task.ID
	e.metrics.TaskStarted(taskID)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("task_id", taskID).Interface("panic", r).Msg("evolve loop panicked")
			e.fail(ent, fmt.Errorf("panic: %v", r))
		}
		final := e.snapshotTask(ent)
		e.metrics.TaskFinished(taskID, string(final.Status), e.clock.Now().Sub(started))
		e.persist(ctx, final)
	}()

	if err := e.evolve(ctx, ent, bp); err != nil {
		e.fail(ent, err)
	}
}

// evolve is the evolve loop. Any returned error is fatal for the task.
func (e *Engine) evolve(ctx context.Context, ent *entry, bp blueprint.Blueprint) error {
	var transitionErr error
	e.update(ent, func(t *domain.Task, now time.Time) {
		transitionErr = Transition(t, constants.TaskStatusInProgress, "evolution started", now)
		t.Stage = constants.StagePreparation
		t.Progress = constants.ProgressPreparation
	})
	if transitionErr != nil {
		return transitionErr
	}

	task := e.snapshotTask(ent)
	p := e.params(task, bp)
	log := e.logger.With().Str("task_id", task.ID).Logger()
	log.Info().
		Int("max_iterations", p.maxIterations).
		Float64("convergence_threshold", p.threshold).
		Msg("evolution started")

	var renderer prompts.StageRenderer
	if bp != nil {
		renderer = bp
	}

	var (
		current        = task.Artifact
		best           = task.Artifact
		bestScore      float64
		previousScore  float64
		reflections    []domain.Reflection
		recentGuidance string
		iterations     int
	)

	for n := 1; n <= p.maxIterations; n++ {
		iterations = n
		stage := constants.StageIterationPrefix + strconv.Itoa(n)
		e.setStage(ent, stage, IterationProgress(n, p.maxIterations))
		role := StageRole(bp, n, p.maxIterations)

		// guidance is read only here, at the iteration boundary
		guidance := e.snapshotTask(ent).GuidanceHistory

		pc := &prompts.Context{
			Stage:            role,
			Iteration:        n,
			MaxIterations:    p.maxIterations,
			OriginalArtifact: task.Artifact,
			Artifact:         current,
			Goal:             task.Goal,
			Language:         task.Options.Language,
			Domain:           p.domain,
			Reflections:      reflections,
			Guidance:         guidance,
			RecentGuidance:   recentGuidance,
			Extra:            task.Options.Variables,
		}
		if e.residue != nil {
			pc.Residue = e.residue.Relevant(ctx, current, task.Goal, p.domain, e.config.ResidueLimit)
		}

		prompt, err := e.builder.Build(pc, renderer)
		if err != nil {
			return err
		}

		response, used, fallbackFrom, err := e.generate(ctx, task, role, prompt, p.generate)
		if err != nil {
			return err
		}

		reflection := domain.Reflection{
			TaskID:    task.ID,
			Stage:     role,
			AgentName: used.Name(),
			Content:   diff.ExtractReflection(response),
			Metadata:  map[string]any{},
			CreatedAt: e.clock.Now(),
		}
		if fallbackFrom != "" {
			reflection.Metadata[domain.ReflectionMetaFallback] = fallbackFrom
		}

		evolved, err := e.applier.Apply(current, diff.Extract(response))
		if err != nil {
			evolved = current
			reflection.Metadata[domain.ReflectionMetaDiffApplied] = false
			reflection.Metadata[domain.ReflectionMetaDiffError] = err.Error()
			log.Warn().Err(err).Str("stage", role).Msg("diff not applied, keeping current artifact")
		} else {
			reflection.Metadata[domain.ReflectionMetaDiffApplied] = true
		}

		if e.config.StructuredReflections && reflection.Content != "" {
			structured := used.Reflect(ctx, reflection.Content, agent.ReflectOptions{GenerateOptions: p.generate, Type: p.reflectType})
			if _, raw := structured[agent.RawReflectionKey]; !raw {
				reflection.Metadata[domain.ReflectionMetaStructured] = structured
			}
		}

		result := evaluator.Safe(ctx, p.evaluator, evolved, task.Artifact)
		score := result.Score
		reflection.Metadata[domain.ReflectionMetaScore] = score

		reflections = append(reflections, reflection)
		e.reflections.Register(task.ID, reflection)

		if e.collector != nil {
			e.collector.Collect(ctx, residue.Observation{
				TaskID:   task.ID,
				Domain:   p.domain,
				Stage:    role,
				Response: response,
				Evolved:  evolved,
				Score:    score,
				Best:     bestScore,
			})
		}

		if score > bestScore {
			best = evolved
			bestScore = score
		}
		e.metrics.IterationCompleted(task.ID, role, score)

		log.Info().
			Int("iteration", n).
			Str("stage", role).
			Str("agent", used.Name()).
			Float64("score", score).
			Float64("best_score", bestScore).
			Msg("iteration complete")

		if math.Abs(score-previousScore) < p.threshold {
			log.Info().Int("iteration", n).Msg("converged")
			break
		}
		previousScore = score
		current = evolved

		if g := e.snapshotTask(ent).GuidanceHistory; len(g) > 0 {
			recentGuidance = g[len(g)-1].Text
		}
	}

	return e.finalize(ctx, ent, task, bp, p, finalState{
		best:        best,
		bestScore:   bestScore,
		reflections: reflections,
		iterations:  iterations,
	})
}

type finalState struct {
	best        string
	bestScore   float64
	reflections []domain.Reflection
	iterations  int
}

func (e *Engine) finalize(ctx context.Context, ent *entry, task *domain.Task, bp blueprint.Blueprint, p loopParams, fs finalState) error {
	e.setStage(ent, constants.StageFinalization, constants.ProgressFinalization)

	results := &domain.TaskResults{
		Artifact:    fs.best,
		Metrics:     evaluator.Safe(ctx, p.detailed, fs.best, task.Artifact),
		Reflections: fs.reflections,
		Iterations:  fs.iterations,
		BestScore:   fs.bestScore,
	}
	if results.Reflections == nil {
		results.Reflections = []domain.Reflection{}
	}

	if task.Options.CreatePR {
		results.PR = e.createPR(ctx, task, bp, results)
	}

	var transitionErr error
	e.update(ent, func(t *domain.Task, now time.Time) {
		if transitionErr = Transition(t, constants.TaskStatusCompleted, "evolution completed", now); transitionErr != nil {
			return
		}
		t.Stage = constants.StageCompleted
		t.Progress = constants.ProgressComplete
		t.Results = results
	})
	if transitionErr != nil {
		return transitionErr
	}

	e.logger.Info().
		Str("task_id", task.ID).
		Int("iterations", fs.iterations).
		Float64("best_score", fs.bestScore).
		Float64("final_score", results.Metrics.Score).
		Msg("evolution completed")
	return nil
}

// generate invokes the selected agent and, if it fails, one fallback agent.
// It returns the agent that produced the response and, after a fallback, the
// name of the agent that failed.
func (e *Engine) generate(ctx context.Context, task *domain.Task, role, prompt string, opts agent.GenerateOptions) (string, agent.Agent, string, error) {
	primary, err := e.selector.Select(task, role)
	if err != nil {
		return "", nil, "", err
	}

	out, err := primary.Generate(ctx, prompt, opts)
	if err == nil {
		e.metrics.AgentInvoked(primary.Name(), OutcomeSuccess)
		return out, primary, "", nil
	}
	e.metrics.AgentInvoked(primary.Name(), OutcomeFailure)
	e.logger.Warn().Err(err).
		Str("task_id", task.ID).
		Str("stage", role).
		Str("agent", primary.Name()).
		Msg("agent failed, selecting fallback")

	fallback, ferr := e.selector.SelectFallback(task, role, primary.Name())
	if ferr != nil || fallback.Name() == primary.Name() {
		return "", nil, "", err
	}
	e.metrics.AgentFallback(primary.Name(), fallback.Name())

	out, err = fallback.Generate(ctx, prompt, opts)
	if err != nil {
		e.metrics.AgentInvoked(fallback.Name(), OutcomeFailure)
		return "", nil, "", err
	}
	e.metrics.AgentInvoked(fallback.Name(), OutcomeSuccess)
	return out, fallback, primary.Name(), nil
}

// setStage records the stage label and raises progress. Progress never decreases.
func (e *Engine) setStage(ent *entry, stage string, progress int) {
	e.update(ent, func(t *domain.Task, _ time.Time) {
		t.Stage = stage
		t.Progress = max(t.Progress, progress)
	})
}

// fail moves a non-terminal task to failed with err's message.
func (e *Engine) fail(ent *entry, err error) {
	e.update(ent, func(t *domain.Task, now time.Time) {
		if t.Status.IsTerminal() {
			return
		}
		if terr := Transition(t, constants.TaskStatusFailed, "evolution failed", now); terr != nil {
			t.Status = constants.TaskStatusFailed
		}
		t.Stage = constants.StageError
		t.Error = err.Error()
		t.Results = nil
	})
	e.logger.Error().Err(err).Str("task_id", ent.task.ID).Msg("evolution failed")
}

func (e *Engine) persist(ctx context.Context, t *domain.Task) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, t); err != nil {
		e.logger.Warn().Err(err).Str("task_id", t.ID).Msg("failed to persist task snapshot")
	}
}
