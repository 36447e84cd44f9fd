package evaluator

import (
	"context"
	"fmt"

	"github.com/mrz1836/evo/internal/domain"
)

// Detailed wraps an evaluator so its result also carries improvements over
// the baseline: the baseline is scored against itself and every metric, the
// overall score included, gets a signed delta.
type Detailed struct {
	inner Evaluator
}

// NewDetailed wraps e.
func NewDetailed(e Evaluator) *Detailed {
	return &Detailed{inner: e}
}

// Name returns the wrapped evaluator's name.
func (d *Detailed) Name() string { return d.inner.Name() }

// Evaluate scores artifact and, when a baseline is given, the baseline.
func (d *Detailed) Evaluate(ctx context.Context, artifact, baseline string) domain.EvaluationResult {
	result := Safe(ctx, d.inner, artifact, baseline)
	if baseline == "" || result.Failed() {
		return result
	}

	base := Safe(ctx, d.inner, baseline, baseline)
	if base.Failed() {
		return result
	}

	result.Improvements = make(map[string]string, len(result.Metrics)+1)
	result.Improvements["score"] = delta(result.Score, base.Score)
	for name, v := range result.Metrics {
		if bv, ok := base.Metrics[name]; ok {
			result.Improvements[name] = delta(v, bv)
		}
	}
	return result
}

func delta(v, base float64) string {
	return fmt.Sprintf("%+.4f", v-base)
}
