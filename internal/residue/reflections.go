package residue

import (
	"sync"

	"github.com/mrz1836/evo/internal/domain"
)

// ReflectionRegistry keeps every reflection recorded per task. It only
// appends and is safe for concurrent use.
type ReflectionRegistry struct {
	mu     sync.RWMutex
	byTask map[string][]domain.Reflection
}

// NewReflectionRegistry returns an empty registry.
func NewReflectionRegistry() *ReflectionRegistry {
	return &ReflectionRegistry{byTask: make(map[string][]domain.Reflection)}
}

// Register appends r to taskID's reflections.
func (r *ReflectionRegistry) Register(taskID string, reflection domain.Reflection) {
	reflection = reflection.Clone()
	reflection.TaskID = taskID

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTask[taskID] = append(r.byTask[taskID], reflection)
}

// ForTask returns copies of taskID's reflections in registration order.
func (r *ReflectionRegistry) ForTask(taskID string) []domain.Reflection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.byTask[taskID]
	out := make([]domain.Reflection, len(src))
	for i, ref := range src {
		out[i] = ref.Clone()
	}
	return out
}

// Count returns the number of reflections across all tasks.
func (r *ReflectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, refs := range r.byTask {
		n += len(refs)
	}
	return n
}
