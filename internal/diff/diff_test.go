package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

const source = `def total(values):
    result = 0
    for v in values:
        result += v
    return result
`

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		response string
		kind     Kind
		check    func(t *testing.T, tr Transform)
	}{
		{
			name: "search replace blocks",
			response: "Here you go.\n<<<<<<< SEARCH\n    result = 0\n    for v in values:\n        result += v\n    return result\n=======\n    return sum(values)\n>>>>>>> REPLACE\n",
			kind: KindEdits,
			check: func(t *testing.T, tr Transform) {
				require.Len(t, tr.Edits, 1)
				assert.Equal(t, "    return sum(values)", tr.Edits[0].Replace)
				assert.True(t, strings.HasPrefix(tr.Edits[0].Search, "    result = 0"))
			},
		},
		{
			name:     "fenced unified diff",
			response: "```diff\n--- a/f.py\n+++ b/f.py\n@@ -1,5 +1,2 @@\n def total(values):\n-    result = 0\n-    for v in values:\n-        result += v\n-    return result\n+    return sum(values)\n```\n",
			kind:     KindPatch,
			check: func(t *testing.T, tr Transform) {
				require.Len(t, tr.Edits, 1)
				assert.Equal(t, "def total(values):\n    return sum(values)", tr.Edits[0].Replace)
			},
		},
		{
			name:     "json edits",
			response: "```json\n{'edits': [{'search': 'result = 0', 'replace': 'result = 1'},]}\n```",
			kind:     KindJSON,
			check: func(t *testing.T, tr Transform) {
				assert.Equal(t, []Edit{{Search: "result = 0", Replace: "result = 1"}}, tr.Edits)
			},
		},
		{
			name:     "full replacement",
			response: "Improved:\n```python\ndef total(values):\n    return sum(values)\n```\n## Reflection\nUsed the builtin.",
			kind:     KindReplace,
			check: func(t *testing.T, tr Transform) {
				assert.Equal(t, "def total(values):\n    return sum(values)", tr.Replacement)
			},
		},
		{
			name:     "nothing",
			response: "I could not improve this.",
			kind:     KindNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Extract(tt.response)
			assert.Equal(t, tt.kind, tr.Kind)
			if tt.check != nil {
				tt.check(t, tr)
			}
		})
	}
}

func TestExtractReflection(t *testing.T) {
	tests := map[string]struct {
		response string
		want     string
	}{
		"heading": {
			response: "```python\nx = 1\n```\n\n## Reflection\nSimplified the loop.\n",
			want:     "Simplified the loop.",
		},
		"label": {
			response: "```go\nx := 1\n```\n**Reflection:** shorter now",
			want:     "shorter now",
		},
		"prose around code": {
			response: "Replaced the loop.\n```python\nx = 1\n```\nShould be faster.",
			want:     "Replaced the loop.\n\nShould be faster.",
		},
		"code only": {
			response: "```python\nx = 1\n```",
			want:     "",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReflection(tt.response))
		})
	}
}

func TestApplier_Apply(t *testing.T) {
	a := NewApplier()

	t.Run("exact edit", func(t *testing.T) {
		out, err := a.Apply(source, Transform{Kind: KindEdits, Edits: []Edit{
			{Search: "    result = 0\n    for v in values:\n        result += v\n    return result", Replace: "    return sum(values)"},
		}})
		require.NoError(t, err)
		assert.Equal(t, "def total(values):\n    return sum(values)\n", out)
	})

	t.Run("patch from extracted diff", func(t *testing.T) {
		tr := Extract("@@ -2,2 +2,2 @@\n-    result = 0\n+    result = start\n     for v in values:\n")
		require.Equal(t, KindPatch, tr.Kind)
		out, err := a.Apply(source, tr)
		require.NoError(t, err)
		assert.Contains(t, out, "result = start\n    for v in values:")
	})

	t.Run("trailing whitespace tolerated", func(t *testing.T) {
		out, err := a.Apply("x = 1\ny = 2\n", Transform{Kind: KindEdits, Edits: []Edit{{Search: "y = 2\n\n", Replace: "y = 3\n\n"}}})
		require.NoError(t, err)
		assert.Equal(t, "x = 1\ny = 3\n", out)
	})

	t.Run("ambiguous edit", func(t *testing.T) {
		out, err := a.Apply("a\na\n", Transform{Kind: KindEdits, Edits: []Edit{{Search: "a", Replace: "b"}}})
		require.ErrorIs(t, err, evoerrors.ErrDiffApplication)
		assert.Equal(t, "a\na\n", out)
	})

	t.Run("missing search text", func(t *testing.T) {
		_, err := a.Apply("x = 1\n", Transform{Kind: KindEdits, Edits: []Edit{{Search: "completely_unrelated()", Replace: "y"}}})
		require.ErrorIs(t, err, evoerrors.ErrDiffApplication)
	})

	t.Run("similar looking search text is rejected", func(t *testing.T) {
		area := "def area(r):\n    return 3.14 * r * r\n"
		for _, search := range []string{"def volume(h):\n    return h * h * h", "    return 2"} {
			out, err := a.Apply(area, Transform{Kind: KindEdits, Edits: []Edit{{Search: search, Replace: "    return 3"}}})
			require.ErrorIs(t, err, evoerrors.ErrDiffApplication, search)
			assert.Equal(t, area, out)
		}

		counter := "def f():\n    return 1\n"
		out, err := a.Apply(counter, Transform{Kind: KindEdits, Edits: []Edit{{Search: "    return 2", Replace: "    return 3"}}})
		require.ErrorIs(t, err, evoerrors.ErrDiffApplication)
		assert.Equal(t, counter, out)
	})

	t.Run("near match within a few characters", func(t *testing.T) {
		fib := "def fib(n):\n    a, b = 0, 1\n    for _ in range(n):\n        a, b = b, a + b\n    return a\n"
		out, err := a.Apply(fib, Transform{Kind: KindEdits, Edits: []Edit{{
			Search:  "    for _ in range(n) :\n        a, b = b, a + b",
			Replace: "    for _ in range(n):\n        a, b = b, a+b",
		}}})
		require.NoError(t, err)
		assert.Equal(t, "def fib(n):\n    a, b = 0, 1\n    for _ in range(n):\n        a, b = b, a+b\n    return a\n", out)
	})

	t.Run("replacement keeps trailing newline", func(t *testing.T) {
		out, err := a.Apply(source, Transform{Kind: KindReplace, Replacement: "print(1)"})
		require.NoError(t, err)
		assert.Equal(t, "print(1)\n", out)
	})

	t.Run("no transformation", func(t *testing.T) {
		out, err := a.Apply(source, Transform{Kind: KindNone})
		require.ErrorIs(t, err, evoerrors.ErrDiffApplication)
		require.ErrorIs(t, err, evoerrors.ErrNoDiff)
		assert.Equal(t, source, out)
	})

	t.Run("failed edit leaves artifact untouched", func(t *testing.T) {
		out, err := a.Apply(source, Transform{Kind: KindEdits, Edits: []Edit{
			{Search: "result = 0", Replace: "result = 1"},
			{Search: "completely_unrelated()", Replace: "y"},
		}})
		require.Error(t, err)
		assert.Equal(t, source, out)
	})
}

func TestCompareAndUnified(t *testing.T) {
	after := "def total(values):\n    return sum(values)\n"
	stats := Compare(source, after)
	assert.Equal(t, Stats{Added: 1, Deleted: 4}, stats)
	assert.Equal(t, "+1 -4", stats.String())
	assert.Equal(t, "no changes", Compare(source, source).String())

	out := Unified(source, after, "total.py", false)
	assert.True(t, strings.HasPrefix(out, "--- a/total.py\n+++ b/total.py\n"))
	assert.Contains(t, out, " def total(values):\n")
	assert.Contains(t, out, "-    result = 0\n")
	assert.Contains(t, out, "+    return sum(values)\n")
	assert.Empty(t, Unified(source, source, "total.py", false))
}
