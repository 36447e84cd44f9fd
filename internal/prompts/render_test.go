package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars map[string]string
		want string
	}{
		{
			name: "substitution",
			tmpl: "Goal: {{goal}} in {{language}}",
			vars: map[string]string{"goal": "speed", "language": "go"},
			want: "Goal: speed in go",
		},
		{
			name: "unknown placeholder left as-is",
			tmpl: "{{goal}} {{unknown}}",
			vars: map[string]string{"goal": "g"},
			want: "g {{unknown}}",
		},
		{
			name: "conditional kept when set",
			tmpl: "a{{#if extra}} [{{extra}}]{{/if}}b",
			vars: map[string]string{"extra": "x"},
			want: "a [x]b",
		},
		{
			name: "conditional dropped when blank",
			tmpl: "a{{#if extra}} [{{extra}}]{{/if}}b",
			vars: map[string]string{"extra": "  "},
			want: "ab",
		},
		{
			name: "conditional dropped when absent",
			tmpl: "a{{#if extra}}X{{/if}}b",
			vars: map[string]string{},
			want: "ab",
		},
		{
			name: "nested conditionals",
			tmpl: "{{#if a}}A{{#if b}}B{{/if}}{{/if}}|{{#if c}}C{{/if}}",
			vars: map[string]string{"a": "1", "c": "1"},
			want: "A|C",
		},
		{
			name: "substituted values are not rescanned",
			tmpl: "{{artifact}}",
			vars: map[string]string{"artifact": "x = {{goal}} {{#if goal}}"},
			want: "x = {{goal}} {{#if goal}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.vars, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_MissingRequired(t *testing.T) {
	_, err := Render("{{goal}}", map[string]string{"artifact": "a"}, []string{"artifact", "goal"})
	require.ErrorIs(t, err, evoerrors.ErrTemplateVariableMissing)
	assert.Contains(t, err.Error(), "goal")
}

func TestRender_RequiredMayBeEmpty(t *testing.T) {
	got, err := Render("[{{goal}}]", map[string]string{"goal": ""}, []string{"goal"})
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestRender_Malformed(t *testing.T) {
	for _, tmpl := range []string{"{{#if a}}no close", "stray {{/if}}", "{{#if a"} {
		_, err := Render(tmpl, map[string]string{"a": "1"}, nil)
		require.ErrorIs(t, err, evoerrors.ErrTemplateExecution, tmpl)
	}
}

func TestVariables(t *testing.T) {
	got := Variables("{{goal}} {{#if x}}{{artifact}}{{/if}} {{goal}}")
	assert.Equal(t, []string{"goal", "artifact"}, got)
}
