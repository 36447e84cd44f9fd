package agent

import (
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// Selector picks the agent for a stage through a priority cascade and picks
// a replacement when that agent fails.
type Selector struct {
	provider     Provider
	blueprints   *blueprint.Registry
	defaultAgent string
	logger       zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithSelectorLogger sets the logger.
func WithSelectorLogger(logger zerolog.Logger) SelectorOption {
	return func(s *Selector) { s.logger = logger }
}

// WithRand sets the source used for random fallback choices.
func WithRand(r *rand.Rand) SelectorOption {
	return func(s *Selector) {
		if r != nil {
			s.rng = r
		}
	}
}

// NewSelector creates a selector. blueprints may be nil.
func NewSelector(provider Provider, blueprints *blueprint.Registry, defaultAgent string, opts ...SelectorOption) *Selector {
	s := &Selector{
		provider:     provider,
		blueprints:   blueprints,
		defaultAgent: defaultAgent,
		logger:       zerolog.Nop(),
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the agent for stage. The first strategy whose agent can be
// created wins:
//
//  1. the agent the task's blueprint binds to stage;
//  2. the first preferred agent sharing a capability with the stage;
//  3. the stage preference table;
//  4. every known agent ranked by required capabilities held;
//  5. the default agent.
func (s *Selector) Select(task *domain.Task, stage string) (Agent, error) {
	log := s.logger.With().Str("task_id", task.ID).Str("stage", stage).Logger()

	if name, ok := s.blueprintAgent(task, stage); ok {
		if a, err := s.provider.Create(name); err == nil {
			log.Debug().Str("agent", a.Name()).Msg("selected blueprint agent")
			return a, nil
		}
	}

	required := RequiredCapabilities(stage)
	for _, name := range task.Options.PreferredAgents {
		if !CapabilitiesOf(domain.AgentKind(name)).Intersects(required) {
			continue
		}
		if a, err := s.provider.Create(name); err == nil {
			log.Debug().Str("agent", a.Name()).Msg("selected preferred agent")
			return a, nil
		}
	}

	for _, kind := range StagePreferences(stage) {
		if a, err := s.provider.Create(kind.String()); err == nil {
			log.Debug().Str("agent", a.Name()).Msg("selected stage preference")
			return a, nil
		}
	}

	for _, kind := range rankByCapability(required) {
		if a, err := s.provider.Create(kind.String()); err == nil {
			log.Debug().Str("agent", a.Name()).Msg("selected by capability rank")
			return a, nil
		}
	}

	return s.createDefault()
}

// SelectFallback returns an agent other than failed for stage. Agents holding
// every required capability are tried first, in preferred then table order.
// Otherwise a random remaining agent sharing a capability with the stage is
// chosen, then any remaining agent. The default agent is used only when no
// other agent can be created.
func (s *Selector) SelectFallback(task *domain.Task, stage, failed string) (Agent, error) {
	required := RequiredCapabilities(stage)

	var candidates []Agent
	seen := map[string]bool{failed: true}
	for _, name := range s.candidateOrder(task) {
		if seen[name] {
			continue
		}
		seen[name] = true
		if a, err := s.provider.Create(name); err == nil && a.Name() != failed {
			candidates = append(candidates, a)
		}
	}

	for _, a := range candidates {
		if a.Capabilities().Count(required) == len(required) {
			s.logFallback(task, stage, failed, a, "capability match")
			return a, nil
		}
	}

	var suitable []Agent
	for _, a := range candidates {
		if a.Capabilities().Intersects(required) {
			suitable = append(suitable, a)
		}
	}
	if len(suitable) == 0 {
		suitable = candidates
	}
	if len(suitable) > 0 {
		a := suitable[s.intn(len(suitable))]
		s.logFallback(task, stage, failed, a, "random")
		return a, nil
	}

	return s.createDefault()
}

func (s *Selector) logFallback(task *domain.Task, stage, failed string, a Agent, reason string) {
	s.logger.Info().
		Str("task_id", task.ID).
		Str("stage", stage).
		Str("failed_agent", failed).
		Str("agent", a.Name()).
		Str("reason", reason).
		Msg("selected fallback agent")
}

// candidateOrder lists preferred agents first, then every known kind.
func (s *Selector) candidateOrder(task *domain.Task) []string {
	names := append([]string(nil), task.Options.PreferredAgents...)
	for _, kind := range domain.AgentKinds() {
		names = append(names, kind.String())
	}
	return names
}

func (s *Selector) blueprintAgent(task *domain.Task, stage string) (string, bool) {
	if task.Blueprint == "" || s.blueprints == nil {
		return "", false
	}
	bp, err := s.blueprints.Get(task.Blueprint)
	if err != nil {
		return "", false
	}
	name, err := bp.AgentForStage(stage)
	if err != nil {
		return "", false
	}
	return name, true
}

func (s *Selector) createDefault() (Agent, error) {
	if s.defaultAgent == "" {
		return nil, evoerrors.ErrNoAgentsAvailable
	}
	a, err := s.provider.Create(s.defaultAgent)
	if err != nil {
		return nil, evoerrors.Wrapf(evoerrors.ErrNoAgentsAvailable, "default agent %s: %v", s.defaultAgent, err)
	}
	return a, nil
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// rankByCapability orders every known kind by how many of required it holds.
// Ties keep capability-table order.
func rankByCapability(required domain.CapabilitySet) []domain.AgentKind {
	kinds := domain.AgentKinds()
	sort.SliceStable(kinds, func(i, j int) bool {
		return CapabilitiesOf(kinds[i]).Count(required) > CapabilitiesOf(kinds[j]).Count(required)
	})
	return kinds
}
