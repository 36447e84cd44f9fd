package agent

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/ai"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// Provider creates agents by name.
type Provider interface {
	Create(name string) (Agent, error)
}

// Constructor builds one agent.
type Constructor func() (Agent, error)

// Factory creates agents from registered constructors. NewFactory registers
// one constructor per runner in an ai.RunnerRegistry.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

var _ Provider = (*Factory)(nil)

// NewFactory returns a factory for every kind with a registered runner.
// A nil registry yields an empty factory.
func NewFactory(runners *ai.RunnerRegistry, logger zerolog.Logger) *Factory {
	f := &Factory{constructors: make(map[string]Constructor)}
	if runners == nil {
		return f
	}
	for _, kind := range runners.Kinds() {
		f.Register(kind.String(), func() (Agent, error) {
			runner, err := runners.Get(kind)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", evoerrors.ErrAgentUnavailable, err)
			}
			return NewRunnerAgent(kind, runner, logger), nil
		})
	}
	return f
}

// Register adds or replaces the constructor for name.
func (f *Factory) Register(name string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[strings.ToLower(name)] = ctor
}

// Create builds the agent called name. Known kinds without a backend are
// ErrAgentUnavailable; anything else is ErrAgentNotFound.
func (f *Factory) Create(name string) (Agent, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	f.mu.RLock()
	ctor, ok := f.constructors[key]
	f.mu.RUnlock()
	if !ok {
		if domain.AgentKind(key).IsValid() {
			return nil, fmt.Errorf("%w: %s is not enabled", evoerrors.ErrAgentUnavailable, key)
		}
		return nil, fmt.Errorf("%w: %s", evoerrors.ErrAgentNotFound, name)
	}
	return ctor()
}

// Names lists the registered agent names in capability-table order, followed
// by any custom names.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.constructors))
	seen := make(map[string]bool, len(f.constructors))
	for _, kind := range domain.AgentKinds() {
		if _, ok := f.constructors[kind.String()]; ok {
			names = append(names, kind.String())
			seen[kind.String()] = true
		}
	}
	var custom []string
	for name := range f.constructors {
		if !seen[name] {
			custom = append(custom, name)
		}
	}
	sort.Strings(custom)
	return append(names, custom...)
}
