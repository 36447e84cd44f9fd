// Package evaluator scores artifacts. Evaluators never fail: internal errors
// and panics become a zero score with the Error field set.
package evaluator

import (
	"context"
	"fmt"
	"math"

	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// Evaluator scores an artifact against an optional baseline.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, artifact, baseline string) domain.EvaluationResult
}

// ScoreFunc computes a raw result. A returned error zeroes the score.
type ScoreFunc func(ctx context.Context, artifact, baseline string) (domain.EvaluationResult, error)

// Func adapts a ScoreFunc to the Evaluator interface.
type Func struct {
	name string
	fn   ScoreFunc
}

// NewFunc returns a named evaluator backed by fn.
func NewFunc(name string, fn ScoreFunc) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the evaluator name.
func (f *Func) Name() string { return f.name }

// Evaluate runs the score function, clamping the score to [0,1].
func (f *Func) Evaluate(ctx context.Context, artifact, baseline string) (result domain.EvaluationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failed(f.name, fmt.Errorf("%w: panic: %v", evoerrors.ErrEvaluator, r))
		}
	}()

	res, err := f.fn(ctx, artifact, baseline)
	if err != nil {
		return failed(f.name, err)
	}
	res.Evaluator = f.name
	res.Score = clamp(res.Score)
	return res
}

// Safe runs e, converting a panic into a failed result.
func Safe(ctx context.Context, e Evaluator, artifact, baseline string) (result domain.EvaluationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failed(e.Name(), fmt.Errorf("%w: panic: %v", evoerrors.ErrEvaluator, r))
		}
	}()
	return e.Evaluate(ctx, artifact, baseline)
}

func failed(name string, err error) domain.EvaluationResult {
	return domain.EvaluationResult{Evaluator: name, Score: 0, Error: err.Error()}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
