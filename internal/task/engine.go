package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/agent"
	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/clock"
	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/diff"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/evaluator"
	"github.com/mrz1836/evo/internal/prompts"
	"github.com/mrz1836/evo/internal/residue"
)

// NotCompletedMessage is returned by GetResults until a task completes.
const NotCompletedMessage = "Task not yet completed"

// StartRequest describes a task to start.
type StartRequest struct {
	Artifact  string             `json:"artifact"`
	Goal      string             `json:"goal"`
	Blueprint string             `json:"blueprint,omitempty"`
	Options   domain.TaskOptions `json:"options"`
}

// Selector picks agents for stages. *agent.Selector implements it.
type Selector interface {
	Select(task *domain.Task, stage string) (agent.Agent, error)
	SelectFallback(task *domain.Task, stage, failed string) (agent.Agent, error)
}

// PRCreator opens a pull request and returns its URL.
type PRCreator interface {
	Create(ctx context.Context, req domain.PRRequest) (string, error)
}

// Config holds the evolve loop defaults used when a task has no blueprint.
type Config struct {
	MaxIterations        int
	ConvergenceThreshold float64
	Language             string

	// ResidueLimit is how many residue patterns are offered to each prompt.
	ResidueLimit int

	// StructuredReflections enables the per-iteration Reflect call.
	StructuredReflections bool

	// Generate is passed to every agent call. Blueprint meta instructions
	// are appended to its system prompt.
	Generate agent.GenerateOptions
}

// DefaultConfig returns the built-in loop defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:        constants.DefaultMaxIterations,
		ConvergenceThreshold: constants.DefaultConvergenceThreshold,
		Language:             constants.DefaultLanguage,
		ResidueLimit:         constants.DefaultResidueLimit,
	}
}

// Engine runs one evolve loop goroutine per task and answers status,
// result and guidance requests. The task registry is the only state shared
// between callers and loops; every read returns a copy.
type Engine struct {
	blueprints  *blueprint.Registry
	selector    Selector
	builder     *prompts.Builder
	applier     *diff.Applier
	evaluator   evaluator.Evaluator
	detailed    evaluator.Evaluator
	reflections *residue.ReflectionRegistry
	residue     *residue.Registry
	collector   *residue.Collector
	prCreator   PRCreator
	store       Store
	metrics     Metrics
	observer    Observer
	clock       clock.Clock
	config      Config
	logger      zerolog.Logger

	mu    sync.RWMutex
	tasks map[string]*entry
	wg    sync.WaitGroup
}

// entry guards one task. Only the task's loop goroutine changes the loop
// fields; ProvideGuidance appends under the same lock.
type entry struct {
	mu   sync.Mutex
	task *domain.Task
	done chan struct{}
}

// Observer is called with a task's status after every loop update, outside
// the task lock. It must not block.
type Observer func(domain.StatusSnapshot)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConfig sets the loop defaults.
func WithConfig(cfg Config) EngineOption {
	return func(e *Engine) { e.config = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger.With().Str("component", "engine").Logger() }
}

// WithClock sets the clock used for timestamps.
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithBuilder sets the prompt builder.
func WithBuilder(b *prompts.Builder) EngineOption {
	return func(e *Engine) { e.builder = b }
}

// WithEvaluators sets the evaluators used for tasks without a blueprint.
// detailed scores the final artifact; nil wraps def with evaluator.NewDetailed.
func WithEvaluators(def, detailed evaluator.Evaluator) EngineOption {
	return func(e *Engine) {
		e.evaluator = def
		if detailed == nil {
			detailed = evaluator.NewDetailed(def)
		}
		e.detailed = detailed
	}
}

// WithReflections sets the reflection registry.
func WithReflections(r *residue.ReflectionRegistry) EngineOption {
	return func(e *Engine) { e.reflections = r }
}

// WithResidue enables residue retrieval and collection.
func WithResidue(r *residue.Registry) EngineOption {
	return func(e *Engine) { e.residue = r }
}

// WithPRCreator sets the pull request collaborator.
func WithPRCreator(p PRCreator) EngineOption {
	return func(e *Engine) { e.prCreator = p }
}

// WithStore persists every task once it reaches a terminal status.
func WithStore(s Store) EngineOption {
	return func(e *Engine) { e.store = s }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithObserver registers a status observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates an engine resolving blueprint names through blueprints
// and agents through selector.
func NewEngine(blueprints *blueprint.Registry, selector Selector, opts ...EngineOption) *Engine {
	def := evaluator.Default()
	e := &Engine{
		blueprints:  blueprints,
		selector:    selector,
		builder:     prompts.NewBuilder(constants.DefaultPromptTokenBudget),
		applier:     diff.NewApplier(),
		evaluator:   def,
		detailed:    evaluator.NewDetailed(def),
		reflections: residue.NewReflectionRegistry(),
		metrics:     NoopMetrics{},
		clock:       clock.RealClock{},
		config:      DefaultConfig(),
		logger:      zerolog.Nop(),
		tasks:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.blueprints == nil {
		e.blueprints = blueprint.NewRegistry()
	}
	if e.residue != nil && e.collector == nil {
		e.collector = residue.NewCollector(e.residue, e.logger)
	}
	return e
}

// Reflections returns the registry the engine records reflections in.
func (e *Engine) Reflections() *residue.ReflectionRegistry { return e.reflections }

// Start registers a new task and launches its evolve loop in the background.
// It returns as soon as the task is registered. The loop does not observe
// ctx cancellation.
func (e *Engine) Start(ctx context.Context, req StartRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var bp blueprint.Blueprint
	if req.Blueprint != "" {
		found, err := e.blueprints.Get(req.Blueprint)
		if err != nil {
			return "", err
		}
		bp = found
	}

	now := e.clock.Now()
	t := &domain.Task{
		ID:            uuid.NewString(),
		Artifact:      req.Artifact,
		Goal:          req.Goal,
		Blueprint:     req.Blueprint,
		Options:       req.Options,
		Status:        constants.TaskStatusInitialized,
		Stage:         string(constants.TaskStatusInitialized),
		CreatedAt:     now,
		UpdatedAt:     now,
		SchemaVersion: constants.TaskSchemaVersion,
	}
	if t.Options.Language == "" {
		t.Options.Language = e.config.Language
	}
	// detach caller-owned option slices
	t = t.Clone()

	ent := &entry{task: t, done: make(chan struct{})}
	e.mu.Lock()
	e.tasks[t.ID] = ent
	e.mu.Unlock()

	e.logger.Info().
		Str("task_id", t.ID).
		Str("blueprint", t.Blueprint).
		Str("goal", t.Goal).
		Msg("task created")

	e.wg.Add(1)
	go e.run(context.WithoutCancel(ctx), ent, bp)

	return t.ID, nil
}

// GetStatus returns the current status of a task.
func (e *Engine) GetStatus(id string) (domain.StatusSnapshot, error) {
	ent, err := e.entry(id)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.task.Snapshot(), nil
}

// GetTask returns a deep copy of a task.
func (e *Engine) GetTask(id string) (*domain.Task, error) {
	ent, err := e.entry(id)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.task.Clone(), nil
}

// GetResults returns the results of a completed task. Until then the view
// has Completed false and a message instead of partial data.
func (e *Engine) GetResults(id string) (domain.ResultsView, error) {
	ent, err := e.entry(id)
	if err != nil {
		return domain.ResultsView{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	view := domain.ResultsView{StatusSnapshot: ent.task.Snapshot()}
	switch ent.task.Status {
	case constants.TaskStatusCompleted:
		view.Completed = true
		view.Results = ent.task.Clone().Results
	case constants.TaskStatusFailed:
		view.Message = "Task failed: " + ent.task.Error
	case constants.TaskStatusInitialized, constants.TaskStatusInProgress:
		view.Message = NotCompletedMessage
	}
	return view, nil
}

// ProvideGuidance appends guidance to a task. A running loop picks it up at
// its next iteration boundary.
func (e *Engine) ProvideGuidance(id, text string) (domain.GuidanceAck, error) {
	if strings.TrimSpace(text) == "" {
		return domain.GuidanceAck{}, fmt.Errorf("%w: guidance text is empty", evoerrors.ErrInvalidInput)
	}
	ent, err := e.entry(id)
	if err != nil {
		return domain.GuidanceAck{}, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	now := e.clock.Now()
	ent.task.GuidanceHistory = append(ent.task.GuidanceHistory, domain.GuidanceEntry{Timestamp: now, Text: text})
	ent.task.UpdatedAt = now

	e.logger.Info().
		Str("task_id", id).
		Int("guidance_count", len(ent.task.GuidanceHistory)).
		Msg("guidance received")

	return domain.GuidanceAck{
		StatusSnapshot:       ent.task.Snapshot(),
		GuidanceAcknowledged: true,
		GuidanceCount:        len(ent.task.GuidanceHistory),
	}, nil
}

// List returns status snapshots of every task, oldest first.
func (e *Engine) List() []domain.StatusSnapshot {
	e.mu.RLock()
	entries := make([]*entry, 0, len(e.tasks))
	for _, ent := range e.tasks {
		entries = append(entries, ent)
	}
	e.mu.RUnlock()

	out := make([]domain.StatusSnapshot, 0, len(entries))
	for _, ent := range entries {
		ent.mu.Lock()
		out = append(out, ent.task.Snapshot())
		ent.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Wait blocks until the task reaches a terminal status or ctx is done.
func (e *Engine) Wait(ctx context.Context, id string) (domain.StatusSnapshot, error) {
	ent, err := e.entry(id)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	select {
	case <-ent.done:
		return e.GetStatus(id)
	case <-ctx.Done():
		return domain.StatusSnapshot{}, ctx.Err()
	}
}

// Drain blocks until every running loop has finished or ctx is done.
func (e *Engine) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) entry(id string) (*entry, error) {
	e.mu.RLock()
	ent, ok := e.tasks[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", evoerrors.ErrTaskNotFound, id)
	}
	return ent, nil
}

// update applies fn to the task under its lock and refreshes UpdatedAt.
func (e *Engine) update(ent *entry, fn func(t *domain.Task, now time.Time)) {
	ent.mu.Lock()
	now := e.clock.Now()
	fn(ent.task, now)
	ent.task.UpdatedAt = now
	snap := ent.task.Snapshot()
	ent.mu.Unlock()

	if e.observer != nil {
		e.observer(snap)
	}
}

// snapshotTask returns a copy of the task for reading outside the lock.
func (e *Engine) snapshotTask(ent *entry) *domain.Task {
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.task.Clone()
}
