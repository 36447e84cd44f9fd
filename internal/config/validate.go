package config

import (
	"github.com/mrz1836/evo/internal/domain"
	"github.com/mrz1836/evo/internal/errors"
)

// maxIterationsLimit guards against runaway loops from a typo in config.
const maxIterationsLimit = 100

// Validate checks the configuration for invalid or inconsistent values and
// returns the first failure found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}
	if err := validateEngine(&cfg.Engine); err != nil {
		return err
	}
	if err := validateAgents(&cfg.Agents); err != nil {
		return err
	}
	if cfg.Residue.CacheSize < 1 || cfg.Residue.RelevanceLimit < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidResidue,
			"residue.cache_size must be positive and relevance_limit non-negative, got %d/%d",
			cfg.Residue.CacheSize, cfg.Residue.RelevanceLimit)
	}
	if cfg.Server.Addr == "" {
		return errors.Wrap(errors.ErrConfigInvalidServer, "server.addr must not be empty")
	}
	return nil
}

func validateEngine(cfg *EngineConfig) error {
	if cfg.MaxIterations < 1 || cfg.MaxIterations > maxIterationsLimit {
		return errors.Wrapf(errors.ErrConfigInvalidEngine,
			"engine.max_iterations must be between 1 and %d, got %d", maxIterationsLimit, cfg.MaxIterations)
	}
	if cfg.ConvergenceThreshold < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidEngine,
			"engine.convergence_threshold must not be negative, got %g", cfg.ConvergenceThreshold)
	}
	if cfg.PromptTokenBudget < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidEngine,
			"engine.prompt_token_budget must not be negative, got %d", cfg.PromptTokenBudget)
	}
	return nil
}

func validateAgents(cfg *AgentsConfig) error {
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidAgents, "agents.timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.MaxRetries < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidAgents, "agents.max_retries must be at least 1, got %d", cfg.MaxRetries)
	}
	if !domain.AgentKind(cfg.DefaultAgent).IsValid() {
		return errors.Wrapf(errors.ErrConfigInvalidAgents, "agents.default_agent %q is not a known agent", cfg.DefaultAgent)
	}
	return nil
}
