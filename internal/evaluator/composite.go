package evaluator

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/evo/internal/domain"
)

// CompositeName is the name reported by composites without an explicit one.
const CompositeName = "composite"

// Weighted pairs an evaluator with its weight.
type Weighted struct {
	Evaluator Evaluator
	Weight    float64
}

// Composite runs its members concurrently and reports their weighted sum.
// Negative weights count as zero. Weights are normalized to sum to 1 at
// construction; when they sum to zero every contribution is zero.
type Composite struct {
	name    string
	members []Weighted
}

var _ Evaluator = (*Composite)(nil)

// NewComposite builds a composite. Composite members are flattened into the
// new one, their inner weights scaled by the member's weight.
func NewComposite(name string, members ...Weighted) *Composite {
	if name == "" {
		name = CompositeName
	}

	flat := make([]Weighted, 0, len(members))
	for _, m := range members {
		if m.Evaluator == nil {
			continue
		}
		if inner, ok := m.Evaluator.(*Composite); ok {
			for _, im := range inner.members {
				flat = append(flat, Weighted{Evaluator: im.Evaluator, Weight: im.Weight * m.Weight})
			}
			continue
		}
		flat = append(flat, m)
	}

	var sum float64
	for i := range flat {
		flat[i].Weight = max(flat[i].Weight, 0)
		sum += flat[i].Weight
	}
	if sum > 0 {
		for i := range flat {
			flat[i].Weight /= sum
		}
	}
	return &Composite{name: name, members: flat}
}

// Combine composes two evaluators into a flat composite.
func Combine(a, b Weighted) *Composite {
	return NewComposite("", a, b)
}

// Add returns a new composite with other appended at weight. Composites are
// flattened and the whole list is renormalized.
func (c *Composite) Add(other Evaluator, weight float64) *Composite {
	members := append(c.Members(), Weighted{Evaluator: other, Weight: weight})
	return NewComposite(c.name, members...)
}

// Name returns the composite name.
func (c *Composite) Name() string { return c.name }

// Members returns a copy of the normalized member list.
func (c *Composite) Members() []Weighted {
	return append([]Weighted(nil), c.members...)
}

// Weights returns the normalized weights in member order.
func (c *Composite) Weights() []float64 {
	w := make([]float64, len(c.members))
	for i, m := range c.members {
		w[i] = m.Weight
	}
	return w
}

// Evaluate runs every member and combines the scores. A failing member
// contributes 0 and keeps its error annotation in Individual.
func (c *Composite) Evaluate(ctx context.Context, artifact, baseline string) domain.EvaluationResult {
	individual := make([]domain.EvaluationResult, len(c.members))

	var g errgroup.Group
	for i, m := range c.members {
		g.Go(func() error {
			individual[i] = Safe(ctx, m.Evaluator, artifact, baseline)
			return nil
		})
	}
	_ = g.Wait()

	result := domain.EvaluationResult{
		Evaluator:  c.name,
		Metrics:    make(map[string]float64, len(c.members)),
		Individual: individual,
		Weights:    c.Weights(),
	}
	for i, r := range individual {
		score := r.Score
		if r.Failed() {
			score = 0
		}
		result.Score += score * c.members[i].Weight
		result.Metrics[metricKey(result.Metrics, r.Evaluator)] = score
	}
	result.Score = clamp(result.Score)
	return result
}

// metricKey returns name, or name#2, name#3... when members share a name.
func metricKey(metrics map[string]float64, name string) string {
	if _, taken := metrics[name]; !taken {
		return name
	}
	for n := 2; ; n++ {
		key := name + "#" + strconv.Itoa(n)
		if _, taken := metrics[key]; !taken {
			return key
		}
	}
}
