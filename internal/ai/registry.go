package ai

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/config"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// RunnerRegistry maps agent kinds to runners. Safe for concurrent use.
type RunnerRegistry struct {
	mu      sync.RWMutex
	runners map[domain.AgentKind]Runner
}

// NewRunnerRegistry creates an empty registry.
func NewRunnerRegistry() *RunnerRegistry {
	return &RunnerRegistry{runners: make(map[domain.AgentKind]Runner)}
}

// Register adds or replaces the runner for kind.
func (r *RunnerRegistry) Register(kind domain.AgentKind, runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[kind] = runner
}

// Get returns the runner for kind or ErrAgentNotFound.
func (r *RunnerRegistry) Get(kind domain.AgentKind) (Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", evoerrors.ErrAgentNotFound, kind)
	}
	return runner, nil
}

// Has reports whether a runner is registered for kind.
func (r *RunnerRegistry) Has(kind domain.AgentKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.runners[kind]
	return ok
}

// Kinds returns registered kinds in capability-table order.
func (r *RunnerRegistry) Kinds() []domain.AgentKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.AgentKind, 0, len(r.runners))
	for _, k := range domain.AgentKinds() {
		if _, ok := r.runners[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// NewRegistryFromConfig registers a runner for every enabled kind. Local
// kinds share one Ollama client; if it cannot be built they are skipped
// with a warning rather than failing startup.
func NewRegistryFromConfig(cfg *config.Config, executor CommandExecutor, logger zerolog.Logger) (*RunnerRegistry, error) {
	reg := NewRunnerRegistry()

	var ollama OllamaGenerator
	for _, kind := range domain.AgentKinds() {
		agentCfg, _ := cfg.Agents.Agent(kind.String())
		if !agentCfg.Enabled {
			continue
		}

		if kind.IsLocal() {
			if ollama == nil {
				client, err := NewOllamaClient(cfg.Ollama.Host)
				if err != nil {
					logger.Warn().Err(err).Str("agent", kind.String()).Msg("skipping local agent")
					continue
				}
				ollama = client
			}
			runner, err := NewOllamaRunner(kind, ollama, agentCfg, &cfg.Agents, logger)
			if err != nil {
				return nil, err
			}
			reg.Register(kind, runner)
			continue
		}

		runner, err := NewCLIRunner(kind, agentCfg, &cfg.Agents, WithExecutor(executor), WithLogger(logger))
		if err != nil {
			return nil, err
		}
		reg.Register(kind, runner)
	}
	return reg, nil
}
