package evaluator

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mrz1836/evo/internal/domain"
)

// Names of the built-in evaluators.
const (
	NameNonEmpty      = "non_empty"
	NameSimilarity    = "similarity"
	NameSyntaxBalance = "syntax_balance"
	NameLengthRatio   = "length_ratio"
	NameLoopDepth     = "loop_depth"
	NameReadability   = "readability"
)

// maxReadableLineLength is the longest line readability counts as readable.
const maxReadableLineLength = 100

// NonEmpty scores 1 for an artifact with any non-whitespace content.
func NonEmpty() Evaluator {
	return NewFunc(NameNonEmpty, func(_ context.Context, artifact, _ string) (domain.EvaluationResult, error) {
		score := 0.0
		if strings.TrimSpace(artifact) != "" {
			score = 1
		}
		return domain.EvaluationResult{Score: score}, nil
	})
}

// Similarity scores how much of the baseline survives, as one minus the
// Levenshtein distance over the longer length. Without a baseline it scores 1.
func Similarity() Evaluator {
	return NewFunc(NameSimilarity, func(_ context.Context, artifact, baseline string) (domain.EvaluationResult, error) {
		if baseline == "" {
			return domain.EvaluationResult{Score: 1}, nil
		}
		ratio := SimilarityRatio(baseline, artifact)
		return domain.EvaluationResult{
			Score:   ratio,
			Metrics: map[string]float64{"similarity_ratio": ratio},
		}, nil
	})
}

// SimilarityRatio returns 1 - levenshtein(a, b)/max(len(a), len(b)) in runes.
func SimilarityRatio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	return 1 - float64(dmp.DiffLevenshtein(diffs))/float64(longest)
}

// SyntaxBalance checks that (), [] and {} are balanced. The score is the
// fraction of brackets that are matched.
func SyntaxBalance() Evaluator {
	return NewFunc(NameSyntaxBalance, func(_ context.Context, artifact, _ string) (domain.EvaluationResult, error) {
		total, unmatched := bracketBalance(artifact)
		score := 1.0
		if total > 0 {
			score = 1 - float64(unmatched)/float64(total)
		}
		return domain.EvaluationResult{
			Score:   score,
			Metrics: map[string]float64{"unmatched_brackets": float64(unmatched)},
		}, nil
	})
}

func bracketBalance(s string) (total, unmatched int) {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var stack []rune
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			total++
			stack = append(stack, r)
		case ')', ']', '}':
			total++
			if n := len(stack); n > 0 && stack[n-1] == pairs[r] {
				stack = stack[:n-1]
			} else {
				unmatched++
			}
		}
	}
	return total, unmatched + len(stack)
}

// LengthRatio penalizes artifacts that grew or shrank by more than a factor
// of two against the baseline. Without a baseline it scores 1.
func LengthRatio() Evaluator {
	return NewFunc(NameLengthRatio, func(_ context.Context, artifact, baseline string) (domain.EvaluationResult, error) {
		if baseline == "" {
			return domain.EvaluationResult{Score: 1}, nil
		}
		a := float64(len(strings.TrimSpace(artifact)))
		b := float64(len(strings.TrimSpace(baseline)))
		if a == 0 || b == 0 {
			return domain.EvaluationResult{Score: 0, Metrics: map[string]float64{"length_ratio": 0}}, nil
		}
		ratio := a / b
		return domain.EvaluationResult{
			Score:   min(1, 2*min(ratio, 1/ratio)),
			Metrics: map[string]float64{"length_ratio": ratio},
		}, nil
	})
}

//nolint:gochecknoglobals // compiled once, immutable
var loopPattern = regexp.MustCompile(`^\s*(for|while|foreach|loop)\b`)

// LoopDepth estimates time complexity from the deepest indentation-nested
// loop. One level scores 1, each additional level costs more.
func LoopDepth() Evaluator {
	return NewFunc(NameLoopDepth, func(_ context.Context, artifact, _ string) (domain.EvaluationResult, error) {
		depth := maxLoopDepth(artifact)
		var score float64
		switch {
		case depth <= 1:
			score = 1
		case depth == 2:
			score = 0.6
		case depth == 3:
			score = 0.3
		default:
			score = 0.1
		}
		return domain.EvaluationResult{
			Score:   score,
			Metrics: map[string]float64{"max_loop_depth": float64(depth)},
		}, nil
	})
}

func maxLoopDepth(s string) int {
	var indents []int
	deepest := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		for len(indents) > 0 && indents[len(indents)-1] >= indent {
			indents = indents[:len(indents)-1]
		}
		if loopPattern.MatchString(line) {
			indents = append(indents, indent)
			deepest = max(deepest, len(indents))
		}
	}
	return deepest
}

// Readability scores the fraction of non-blank lines no longer than 100 characters.
func Readability() Evaluator {
	return NewFunc(NameReadability, func(_ context.Context, artifact, _ string) (domain.EvaluationResult, error) {
		var lines, readable int
		for _, line := range strings.Split(artifact, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines++
			if utf8.RuneCountInString(line) <= maxReadableLineLength {
				readable++
			}
		}
		if lines == 0 {
			return domain.EvaluationResult{Score: 0}, nil
		}
		return domain.EvaluationResult{
			Score:   float64(readable) / float64(lines),
			Metrics: map[string]float64{"lines": float64(lines)},
		}, nil
	})
}

// Correctness combines NonEmpty and SyntaxBalance equally.
func Correctness() *Composite {
	return NewComposite("correctness",
		Weighted{Evaluator: NonEmpty(), Weight: 1},
		Weighted{Evaluator: SyntaxBalance(), Weight: 1},
	)
}

// Default is the evaluator used when a task has no blueprint.
func Default() *Composite {
	return NewComposite("default",
		Weighted{Evaluator: NonEmpty(), Weight: 0.4},
		Weighted{Evaluator: SyntaxBalance(), Weight: 0.3},
		Weighted{Evaluator: Similarity(), Weight: 0.15},
		Weighted{Evaluator: LengthRatio(), Weight: 0.15},
	)
}
