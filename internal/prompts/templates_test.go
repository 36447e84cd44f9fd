package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

func TestDefaultStageTemplates(t *testing.T) {
	for _, role := range []string{RoleInitialOptimization, RoleCodeReview, RoleEdgeCaseTesting, RoleFinalSynthesis, RoleIteration} {
		assert.True(t, HasStageTemplate(role), role)
	}
	assert.False(t, HasStageTemplate("iteration_3"))
	assert.Equal(t, StageTemplate(RoleIteration), StageTemplate("iteration_3"))
	assert.Contains(t, Roles(), RoleCodeReview)
}

func TestDefaultStagePrompt(t *testing.T) {
	vars := map[string]string{
		"artifact":         "def f(): pass",
		"goal":             "make it fast",
		"language":         "python",
		"iteration":        "1",
		"max_iterations":   "3",
		"residue_patterns": "",
	}
	out, err := DefaultStagePrompt(RoleInitialOptimization, vars)
	require.NoError(t, err)
	assert.Contains(t, out, "def f(): pass")
	assert.Contains(t, out, "Goal: make it fast")
	assert.NotContains(t, out, "Patterns from earlier evolutions")
	assert.NotContains(t, out, "{{#if")

	delete(vars, "goal")
	_, err = DefaultStagePrompt(RoleInitialOptimization, vars)
	require.ErrorIs(t, err, evoerrors.ErrTemplateVariableMissing)
}

func TestReflectionPrompt(t *testing.T) {
	out := ReflectionPrompt(ReflectionCode, "func main() {}")
	assert.Contains(t, out, "func main() {}")
	assert.Contains(t, out, "correctness_issues")

	assert.Equal(t, ReflectionPrompt(ReflectionGeneral, "x"), ReflectionPrompt("bogus", "x"))

	prompt := ReflectionPrompt(ReflectionTypePrompt, "Summarize the ticket.")
	assert.Contains(t, prompt, "Summarize the ticket.")
	assert.Contains(t, prompt, "ambiguities")
}

func TestRenderPRDescription(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task := &domain.Task{ID: "t-1", Goal: "Improve Speed", CreatedAt: created}
	metrics := domain.EvaluationResult{
		Score:        0.8,
		Metrics:      map[string]float64{"similarity": 0.5, "length_ratio": 1},
		Improvements: map[string]string{"similarity": "+0.10"},
	}
	reflections := []domain.Reflection{
		{Stage: "iteration_1", Content: "## Reflection\n\n" + strings.Repeat("x", 250) + "\n\nsecond paragraph"},
	}

	data := NewPRDescriptionData(task, metrics, reflections, "algorithm_optimization", "1.0.0", created.Add(time.Hour))
	body, err := RenderPRDescription(data)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(body, "# Evolution: Improve Speed\n"))
	assert.Contains(t, body, "This PR was generated by the evo framework to improve speed.")
	assert.Contains(t, body, "| Metric | Value | Improvement |")
	assert.Contains(t, body, "| score | 0.8000 | N/A |")
	assert.Contains(t, body, "| similarity | 0.5000 | +0.10 |")
	assert.Contains(t, body, "- **iteration_1**: "+strings.Repeat("x", 200)+"...")
	assert.NotContains(t, body, "second paragraph")
	assert.Contains(t, body, "- **ID**: t-1")
	assert.Contains(t, body, "- **Blueprint**: algorithm_optimization (v1.0.0)")

	// length_ratio sorts before similarity
	assert.Less(t, strings.Index(body, "| length_ratio"), strings.Index(body, "| similarity"))

	assert.Equal(t, "Evolution: Improve Speed", PRTitle(task.Goal))
	assert.Equal(t, "evo-t-1", PRBranch(task.ID))
}

func TestRenderPRDescription_NoBlueprintNoInsights(t *testing.T) {
	task := &domain.Task{ID: "t-2", Goal: "g"}
	body, err := RenderPRDescription(NewPRDescriptionData(task, domain.EvaluationResult{}, nil, "", "", time.Time{}))
	require.NoError(t, err)
	assert.NotContains(t, body, "Key Insights")
	assert.NotContains(t, body, "Blueprint")
}
