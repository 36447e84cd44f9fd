package evaluator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mrz1836/evo/internal/ai"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// Catalog names for evaluators that need a command.
const (
	KindCommand = "command"
	KindSpeedup = "speedup"
)

// Params configures an evaluator built from the catalog.
type Params struct {
	Command    string
	SpeedupCap float64
	Timeout    time.Duration
	Executor   ai.CommandExecutor
}

// merge fills unset fields of p from defaults.
func (p Params) merge(defaults Params) Params {
	if p.SpeedupCap <= 0 {
		p.SpeedupCap = defaults.SpeedupCap
	}
	if p.Timeout <= 0 {
		p.Timeout = defaults.Timeout
	}
	if p.Executor == nil {
		p.Executor = defaults.Executor
	}
	return p
}

// Factory builds a named evaluator.
type Factory func(name string, p Params) (Evaluator, error)

// Catalog maps evaluator names used in blueprints to factories.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
	defaults  Params
}

// NewCatalog returns a catalog with every built-in evaluator registered.
// defaults supply the timeout, speedup cap and executor for command kinds.
func NewCatalog(defaults Params) *Catalog {
	c := &Catalog{factories: make(map[string]Factory), defaults: defaults}

	simple := map[string]func() Evaluator{
		NameNonEmpty:      NonEmpty,
		NameSimilarity:    Similarity,
		NameSyntaxBalance: SyntaxBalance,
		NameLengthRatio:   LengthRatio,
		NameLoopDepth:     LoopDepth,
		NameReadability:   Readability,
		"correctness":     func() Evaluator { return Correctness() },
		"space":           LengthRatio,
	}
	for name, build := range simple {
		// Wrapped: a nested correctness stays one named member, not flattened.
		c.Register(name, func(alias string, _ Params) (Evaluator, error) {
			return &renamed{name: alias, inner: build()}, nil
		})
	}

	c.Register(KindCommand, func(name string, p Params) (Evaluator, error) {
		if p.Command == "" {
			return nil, fmt.Errorf("%w: evaluator %q needs a command", evoerrors.ErrInvalidInput, name)
		}
		return NewCommandEvaluator(name, p.Command, p.Timeout, p.Executor), nil
	})
	c.Register(KindSpeedup, func(name string, p Params) (Evaluator, error) {
		if p.Command == "" {
			return nil, fmt.Errorf("%w: evaluator %q needs a benchmark command", evoerrors.ErrInvalidInput, name)
		}
		return NewSpeedupEvaluator(name, p.Command, p.SpeedupCap, p.Timeout, p.Executor), nil
	})
	// time benchmarks when given a command and estimates from loop nesting otherwise.
	c.Register("time", func(name string, p Params) (Evaluator, error) {
		if p.Command != "" {
			return NewSpeedupEvaluator(name, p.Command, p.SpeedupCap, p.Timeout, p.Executor), nil
		}
		return Renamed(name, LoopDepth()), nil
	})
	return c
}

// Register adds or replaces a factory.
func (c *Catalog) Register(name string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = f
}

// Build creates the evaluator registered under kind, reporting it as name.
// An empty kind means kind == name.
func (c *Catalog) Build(name, kind string, p Params) (Evaluator, error) {
	if kind == "" {
		kind = name
	}
	c.mu.RLock()
	f, ok := c.factories[kind]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", evoerrors.ErrEvaluatorNotFound, kind)
	}
	return f(name, p.merge(c.defaults))
}

// Names lists the registered names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// renamed reports an evaluator's results under another name.
type renamed struct {
	name  string
	inner Evaluator
}

// Renamed returns e reporting as name. It returns e itself when the names match.
func Renamed(name string, e Evaluator) Evaluator {
	if name == "" || e.Name() == name {
		return e
	}
	return &renamed{name: name, inner: e}
}

func (r *renamed) Name() string { return r.name }

func (r *renamed) Evaluate(ctx context.Context, artifact, baseline string) domain.EvaluationResult {
	res := Safe(ctx, r.inner, artifact, baseline)
	res.Evaluator = r.name
	return res
}
