package diff

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

var (
	errSearchNotFound  = errors.New("search text not found")
	errSearchAmbiguous = errors.New("search text is ambiguous")
)

// Applier applies transformations to artifacts. Edits whose search text is
// not found verbatim may still land on a line-aligned region that differs
// from the search text by a few characters; anything looser is rejected.
type Applier struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewApplier returns an applier.
func NewApplier() *Applier {
	return &Applier{dmp: diffmatchpatch.New()}
}

// Apply returns current with t applied. Any failure wraps ErrDiffApplication
// and leaves current untouched.
func (a *Applier) Apply(current string, t Transform) (string, error) {
	switch t.Kind {
	case KindReplace:
		if strings.TrimSpace(t.Replacement) == "" {
			return current, fmt.Errorf("%w: empty replacement", evoerrors.ErrDiffApplication)
		}
		return matchTrailingNewline(current, t.Replacement), nil
	case KindEdits, KindPatch, KindJSON:
		out := current
		for i, e := range t.Edits {
			next, err := a.applyEdit(out, e)
			if err != nil {
				return current, fmt.Errorf("%w: edit %d: %w", evoerrors.ErrDiffApplication, i+1, err)
			}
			out = next
		}
		return out, nil
	default:
		return current, fmt.Errorf("%w: %w", evoerrors.ErrDiffApplication, evoerrors.ErrNoDiff)
	}
}

func (a *Applier) applyEdit(text string, e Edit) (string, error) {
	if e.Search == "" {
		if strings.TrimSpace(text) == "" {
			return e.Replace, nil
		}
		return "", fmt.Errorf("%w: empty search text", evoerrors.ErrEmptyValue)
	}

	switch n := strings.Count(text, e.Search); {
	case n == 1:
		return strings.Replace(text, e.Search, e.Replace, 1), nil
	case n > 1:
		return "", fmt.Errorf("%w: %d matches", errSearchAmbiguous, n)
	}

	// Models often drop trailing whitespace from the lines they quote.
	if trimmed := strings.TrimRight(e.Search, " \t\n"); trimmed != e.Search && strings.Count(text, trimmed) == 1 {
		return strings.Replace(text, trimmed, strings.TrimRight(e.Replace, " \t\n"), 1), nil
	}

	return a.applyNearMatch(text, e)
}

// nearMatchDivisor bounds fuzzy matches to one edit per this many runes of
// search text. Search texts shorter than this must match exactly.
const nearMatchDivisor = 20

// applyNearMatch replaces the one line-aligned window of text that is
// closest to e.Search, provided its edit distance is within the bound.
func (a *Applier) applyNearMatch(text string, e Edit) (string, error) {
	search := strings.TrimRight(e.Search, " \t\n")
	maxDist := utf8.RuneCountInString(search) / nearMatchDivisor
	if maxDist == 0 {
		return "", errSearchNotFound
	}

	lines := strings.SplitAfter(text, "\n")
	n := strings.Count(search, "\n") + 1
	best, bestAt, ties := maxDist+1, -1, 0
	for i := 0; i+n <= len(lines); i++ {
		window := strings.TrimRight(strings.Join(lines[i:i+n], ""), " \t\n")
		dist := a.dmp.DiffLevenshtein(a.dmp.DiffMain(window, search, false))
		switch {
		case dist < best:
			best, bestAt, ties = dist, i, 1
		case dist == best:
			ties++
		}
	}
	if bestAt < 0 {
		return "", errSearchNotFound
	}
	if ties > 1 {
		return "", fmt.Errorf("%w: %d near matches", errSearchAmbiguous, ties)
	}

	window := strings.Join(lines[bestAt:bestAt+n], "")
	replacement := strings.TrimRight(e.Replace, " \t\n")
	if strings.HasSuffix(window, "\n") {
		replacement += "\n"
	}
	return strings.Join(lines[:bestAt], "") + replacement + strings.Join(lines[bestAt+n:], ""), nil
}

func matchTrailingNewline(current, replacement string) string {
	if strings.HasSuffix(current, "\n") && !strings.HasSuffix(replacement, "\n") {
		return replacement + "\n"
	}
	return replacement
}
