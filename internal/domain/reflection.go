package domain

import "time"

// Reflection metadata keys written by the evolve loop.
const (
	ReflectionMetaDiffApplied = "diff_applied"
	ReflectionMetaDiffError   = "diff_error"
	ReflectionMetaStructured  = "structured"
	ReflectionMetaScore       = "score"
	ReflectionMetaFallback    = "fallback_from"
)

// Reflection is the critique an agent produced alongside its transformation.
// One is recorded per completed iteration.
type Reflection struct {
	TaskID    string         `json:"task_id,omitempty"`
	Stage     string         `json:"stage"`
	AgentName string         `json:"agent"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a copy of r with its own metadata map. Metadata values are
// treated as immutable once recorded.
func (r Reflection) Clone() Reflection {
	c := r
	if r.Metadata != nil {
		c.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// ResidueType classifies a residue pattern.
type ResidueType string

// Residue pattern types.
const (
	// ResidueNearMiss is a candidate that scored well but not best.
	ResidueNearMiss ResidueType = "near_miss"

	// ResidueInnovativeFragment is proposed code that did not land in the artifact.
	ResidueInnovativeFragment ResidueType = "innovative_fragment"

	// ResidueFailedApproach is a candidate that scored poorly.
	ResidueFailedApproach ResidueType = "failed_approach"
)

// ResiduePattern is a catalogued fragment from a past evolution, reused as prompt context.
type ResiduePattern struct {
	ID             string      `json:"id" yaml:"id"`
	Type           ResidueType `json:"type" yaml:"type"`
	PatternText    string      `json:"pattern" yaml:"pattern"`
	PotentialValue float64     `json:"potential_value" yaml:"potential_value"`
	Domain         string      `json:"domain,omitempty" yaml:"domain,omitempty"`
	TaskID         string      `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at" yaml:"-"`
}
