package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/agent"
	"github.com/mrz1836/evo/internal/ai"
	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/config"
	"github.com/mrz1836/evo/internal/evaluator"
	"github.com/mrz1836/evo/internal/git"
	"github.com/mrz1836/evo/internal/prompts"
	"github.com/mrz1836/evo/internal/residue"
	"github.com/mrz1836/evo/internal/task"
)

// Services is everything a command needs to run evolution tasks.
type Services struct {
	Config     *config.Config
	Blueprints *blueprint.Registry
	Engine     *task.Engine
	Store      *task.FileStore
	Registry   *prometheus.Registry
}

// ServiceFactory builds Services from configuration.
type ServiceFactory struct {
	logger   zerolog.Logger
	executor ai.CommandExecutor
	workDir  string
}

// NewServiceFactory creates a factory. A nil executor runs real commands.
func NewServiceFactory(logger zerolog.Logger, executor ai.CommandExecutor) *ServiceFactory {
	if executor == nil {
		executor = &ai.DefaultExecutor{}
	}
	return &ServiceFactory{logger: logger, executor: executor}
}

// LoadConfig loads configuration and applies overrides. A broken config
// file is an error; a missing one is not.
func (f *ServiceFactory) LoadConfig(ctx context.Context, overrides config.Overrides) (*config.Config, error) {
	cfg, err := config.LoadWithOverrides(f.logger.WithContext(ctx), overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Catalog returns the evaluator catalog configured from cfg.
func (f *ServiceFactory) Catalog(cfg *config.Config) *evaluator.Catalog {
	return evaluator.NewCatalog(evaluator.Params{
		SpeedupCap: cfg.Evaluators.SpeedupCap,
		Timeout:    cfg.Evaluators.Timeout,
		Executor:   f.executor,
	})
}

// Blueprints registers the built-in blueprints and every file named in
// cfg.Blueprints. Custom blueprints may replace built-ins of the same name.
func (f *ServiceFactory) Blueprints(cfg *config.Config, catalog *evaluator.Catalog) (*blueprint.Registry, error) {
	reg := blueprint.NewRegistry()
	if err := blueprint.RegisterBuiltins(reg, catalog); err != nil {
		return nil, err
	}

	workDir, err := f.dir()
	if err != nil {
		return nil, err
	}
	loaded, err := blueprint.NewLoader(workDir, catalog).LoadAll(cfg.Blueprints)
	if err != nil {
		return nil, err
	}
	for _, bp := range loaded {
		if err := reg.RegisterOrReplace(bp); err != nil {
			return nil, err
		}
		f.logger.Debug().Str("blueprint", bp.Name()).Str("version", bp.Version()).Msg("custom blueprint loaded")
	}
	return reg, nil
}

// Build wires the full engine.
func (f *ServiceFactory) Build(ctx context.Context, cfg *config.Config) (*Services, error) {
	catalog := f.Catalog(cfg)
	blueprints, err := f.Blueprints(cfg, catalog)
	if err != nil {
		return nil, err
	}

	runners, err := ai.NewRegistryFromConfig(cfg, f.executor, f.logger)
	if err != nil {
		return nil, err
	}
	agents := agent.NewFactory(runners, f.logger)
	selector := agent.NewSelector(agents, blueprints, cfg.Agents.DefaultAgent, agent.WithSelectorLogger(f.logger))

	residueReg, err := residue.NewRegistry(cfg.Residue.CacheSize, residue.WithLogger(f.logger))
	if err != nil {
		return nil, err
	}
	for _, bp := range blueprints.List() {
		if err := residueReg.Seed(ctx, bp.Domain(), bp.ResiduePatterns()); err != nil {
			return nil, err
		}
	}

	workDir, err := f.dir()
	if err != nil {
		return nil, err
	}
	prCreator := git.NewPRCreator(workDir,
		git.WithExecutor(f.executor),
		git.WithRemote(cfg.PR.Remote),
		git.WithBaseBranch(cfg.PR.BaseBranch),
		git.WithTimeout(cfg.PR.Timeout),
		git.WithLogger(f.logger),
	)

	registry := prometheus.NewRegistry()
	opts := []task.EngineOption{
		task.WithConfig(task.Config{
			MaxIterations:         cfg.Engine.MaxIterations,
			ConvergenceThreshold:  cfg.Engine.ConvergenceThreshold,
			Language:              cfg.Engine.Language,
			ResidueLimit:          cfg.Residue.RelevanceLimit,
			StructuredReflections: cfg.Engine.StructuredReflections,
		}),
		task.WithLogger(f.logger),
		task.WithBuilder(prompts.NewBuilder(cfg.Engine.PromptTokenBudget)),
		task.WithResidue(residueReg),
		task.WithMetrics(task.MustNewPrometheusMetrics(registry)),
		task.WithPRCreator(prCreator),
	}

	var store *task.FileStore
	if cfg.Store.Enabled {
		dir, err := cfg.TasksDir()
		if err != nil {
			return nil, err
		}
		if store, err = task.NewFileStore(dir); err != nil {
			return nil, err
		}
		opts = append(opts, task.WithStore(store))
	}

	f.logger.Debug().
		Int("agents", len(runners.Kinds())).
		Int("blueprints", len(blueprints.List())).
		Int("residue_patterns", residueReg.Count()).
		Bool("store", store != nil).
		Msg("services ready")

	return &Services{
		Config:     cfg,
		Blueprints: blueprints,
		Engine:     task.NewEngine(blueprints, selector, opts...),
		Store:      store,
		Registry:   registry,
	}, nil
}

// OpenStore returns the snapshot store named by cfg, enabled or not.
func (f *ServiceFactory) OpenStore(cfg *config.Config) (*task.FileStore, error) {
	dir, err := cfg.TasksDir()
	if err != nil {
		return nil, err
	}
	return task.NewFileStore(dir)
}

func (f *ServiceFactory) dir() (string, error) {
	if f.workDir != "" {
		return f.workDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}
