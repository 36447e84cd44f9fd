package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/evo/internal/domain"
)

type stubRenderer struct {
	stage string
	vars  map[string]string
}

func (s *stubRenderer) PromptForStage(stage string, vars map[string]string) (string, error) {
	s.stage = stage
	s.vars = vars
	return "rendered:" + stage, nil
}

func testContext() *Context {
	return &Context{
		Stage:            "iteration_2",
		Iteration:        2,
		MaxIterations:    3,
		OriginalArtifact: "orig",
		Artifact:         "current",
		Goal:             "goal",
		Language:         "go",
		Domain:           "general",
		Reflections: []domain.Reflection{
			{Stage: "iteration_1", AgentName: "claude", Content: "First para.\n\nSecond para."},
		},
		Guidance:       []domain.GuidanceEntry{{Text: "be careful"}, {Text: " use maps "}},
		RecentGuidance: "use maps",
		Residue: []domain.ResiduePattern{
			{Type: domain.ResidueNearMiss, PatternText: "cache results", PotentialValue: 0.9},
		},
		Extra: map[string]string{"custom": "yes", "goal": "overridden"},
	}
}

func TestBuilder_Variables(t *testing.T) {
	vars := NewBuilder(0).Variables(testContext())

	assert.Equal(t, "current", vars["artifact"])
	assert.Equal(t, "orig", vars["original_artifact"])
	assert.Equal(t, "goal", vars["goal"])
	assert.Equal(t, "yes", vars["custom"])
	assert.Equal(t, "2", vars["iteration"])
	assert.Equal(t, "3", vars["max_iterations"])
	assert.Equal(t, "- [iteration_1] claude: First para.", vars["reflection_summary"])
	assert.Equal(t, "1. be careful\n2. use maps", vars["guidance_summary"])
	assert.Equal(t, "use maps", vars["recent_guidance"])
	assert.Equal(t, "- (near_miss, value 0.90) cache results", vars["residue_patterns"])
	assert.Equal(t, "First para.\n\nSecond para.", vars["previous_reflection"])
}

func TestBuilder_TruncatesSummaries(t *testing.T) {
	pc := testContext()
	pc.Reflections = []domain.Reflection{{Stage: "s", AgentName: "a", Content: strings.Repeat("word ", 500)}}
	pc.Artifact = strings.Repeat("a", 10000)

	vars := NewBuilder(30, WithTokenizer(HeuristicTokenizer{})).Variables(pc)
	assert.True(t, strings.HasSuffix(vars["reflection_summary"], "..."))
	assert.LessOrEqual(t, len([]rune(vars["reflection_summary"])), 10*4+3)
	assert.Len(t, vars["artifact"], 10000)
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(0)

	out, err := b.Build(testContext(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Previous reflection:")
	assert.Contains(t, out, "Latest guidance: use maps")

	r := &stubRenderer{}
	out, err = b.Build(testContext(), r)
	require.NoError(t, err)
	assert.Equal(t, "rendered:iteration_2", out)
	assert.Equal(t, "current", r.vars["artifact"])
}

func TestFirstParagraph(t *testing.T) {
	assert.Equal(t, "one two", FirstParagraph("# Title\n\none\ntwo\n\nthree", 0))
	assert.Equal(t, "abc...", FirstParagraph("abcdef", 3))
	assert.Equal(t, "", FirstParagraph("   ", 10))
}

func TestHeuristicTokenizer(t *testing.T) {
	tok := HeuristicTokenizer{}
	assert.Equal(t, 0, tok.Count("  "))
	assert.Equal(t, 2, tok.Count("hello world"))
	assert.Equal(t, "abcd...", tok.Truncate("abcdefgh", 1))
	assert.Equal(t, "abc", tok.Truncate("abc", 1))
	assert.Equal(t, "abc", tok.Truncate("abc", 0))
}
