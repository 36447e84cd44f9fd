package blueprint

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// Registry holds blueprints by name. It is passed explicitly to the engine
// and the selector. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	blueprints map[string]Blueprint
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{blueprints: make(map[string]Blueprint)}
}

// Register adds bp. A name already in use is an error.
func (r *Registry) Register(bp Blueprint) error {
	if bp == nil || strings.TrimSpace(bp.Name()) == "" {
		return fmt.Errorf("%w: blueprint name is required", evoerrors.ErrBlueprintInvalid)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.blueprints[bp.Name()]; exists {
		return fmt.Errorf("%w: %s already registered", evoerrors.ErrBlueprintInvalid, bp.Name())
	}
	r.blueprints[bp.Name()] = bp
	return nil
}

// RegisterOrReplace adds bp, replacing any blueprint of the same name.
// Custom blueprints use it to override built-ins.
func (r *Registry) RegisterOrReplace(bp Blueprint) error {
	if bp == nil || strings.TrimSpace(bp.Name()) == "" {
		return fmt.Errorf("%w: blueprint name is required", evoerrors.ErrBlueprintInvalid)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blueprints[bp.Name()] = bp
	return nil
}

// Get returns the blueprint called name or ErrBlueprintNotFound.
func (r *Registry) Get(name string) (Blueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.blueprints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", evoerrors.ErrBlueprintNotFound, name)
	}
	return bp, nil
}

// List returns every blueprint sorted by name.
func (r *Registry) List() []Blueprint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Blueprint, 0, len(r.blueprints))
	for _, bp := range r.blueprints {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
