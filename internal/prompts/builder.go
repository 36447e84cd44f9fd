package prompts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mrz1836/evo/internal/domain"
)

// Context is everything the evolve loop knows when it builds a prompt.
type Context struct {
	Stage            string
	Iteration        int
	MaxIterations    int
	OriginalArtifact string
	Artifact         string
	Goal             string
	Language         string
	Domain           string
	Reflections      []domain.Reflection
	Guidance         []domain.GuidanceEntry

	// RecentGuidance is the latest guidance entry carried over from the
	// previous iteration boundary.
	RecentGuidance string
	Residue        []domain.ResiduePattern

	// Extra holds caller-supplied variables. Built-in names take precedence.
	Extra map[string]string
}

// StageRenderer renders the prompt for a stage from a variable set.
// Blueprints implement it.
type StageRenderer interface {
	PromptForStage(stage string, vars map[string]string) (string, error)
}

// Builder turns a Context into template variables and renders the stage prompt.
type Builder struct {
	budget    int
	tokenizer Tokenizer
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithTokenizer replaces the tokenizer used for budget truncation.
func WithTokenizer(t Tokenizer) BuilderOption {
	return func(b *Builder) {
		if t != nil {
			b.tokenizer = t
		}
	}
}

// NewBuilder creates a builder. budget is the token allowance shared by the
// derived summary sections; 0 disables truncation. The artifacts themselves
// are never truncated.
func NewBuilder(budget int, opts ...BuilderOption) *Builder {
	b := &Builder{budget: budget, tokenizer: &TiktokenTokenizer{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders the prompt for pc.Stage. A nil renderer selects the default
// template for the stage.
func (b *Builder) Build(pc *Context, renderer StageRenderer) (string, error) {
	vars := b.Variables(pc)
	if renderer == nil {
		return DefaultStagePrompt(pc.Stage, vars)
	}
	return renderer.PromptForStage(pc.Stage, vars)
}

// Variables returns the full variable set for pc.
func (b *Builder) Variables(pc *Context) map[string]string {
	vars := make(map[string]string, len(pc.Extra)+16)
	for k, v := range pc.Extra {
		vars[k] = v
	}

	vars["artifact"] = pc.Artifact
	vars["current_artifact"] = pc.Artifact
	vars["original_artifact"] = pc.OriginalArtifact
	vars["goal"] = pc.Goal
	vars["language"] = pc.Language
	vars["domain"] = pc.Domain
	vars["stage"] = pc.Stage
	vars["iteration"] = strconv.Itoa(pc.Iteration)
	vars["max_iterations"] = strconv.Itoa(pc.MaxIterations)
	vars["recent_guidance"] = pc.RecentGuidance
	vars["reflection_count"] = strconv.Itoa(len(pc.Reflections))

	vars["reflection_summary"] = b.truncate(ReflectionSummary(pc.Reflections), 3)
	vars["guidance_summary"] = b.truncate(GuidanceSummary(pc.Guidance), 6)
	vars["residue_patterns"] = b.truncate(ResidueSummary(pc.Residue), 4)
	if n := len(pc.Reflections); n > 0 {
		vars["previous_reflection"] = b.truncate(pc.Reflections[n-1].Content, 4)
	} else {
		vars["previous_reflection"] = ""
	}
	return vars
}

// truncate cuts s to budget/share tokens.
func (b *Builder) truncate(s string, share int) string {
	if b.budget <= 0 || s == "" {
		return s
	}
	return b.tokenizer.Truncate(s, b.budget/share)
}

// ReflectionSummary lists the first paragraph of each reflection, one per line.
func ReflectionSummary(reflections []domain.Reflection) string {
	lines := make([]string, 0, len(reflections))
	for _, r := range reflections {
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s", r.Stage, r.AgentName, FirstParagraph(r.Content, 0)))
	}
	return strings.Join(lines, "\n")
}

// GuidanceSummary numbers the guidance entries in submission order.
func GuidanceSummary(entries []domain.GuidanceEntry) string {
	lines := make([]string, 0, len(entries))
	for i, g := range entries {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(g.Text)))
	}
	return strings.Join(lines, "\n")
}

// ResidueSummary formats residue patterns as a bullet list.
func ResidueSummary(patterns []domain.ResiduePattern) string {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		lines = append(lines, fmt.Sprintf("- (%s, value %.2f) %s", p.Type, p.PotentialValue, strings.TrimSpace(p.PatternText)))
	}
	return strings.Join(lines, "\n")
}

// FirstParagraph returns the first non-blank paragraph of s with markdown
// heading lines skipped. With limit > 0 it is cut to limit runes plus "...".
func FirstParagraph(s string, limit int) string {
	var para []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && len(para) == 0 {
			continue
		}
		if trimmed == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, trimmed)
	}

	out := strings.Join(para, " ")
	if limit > 0 {
		if runes := []rune(out); len(runes) > limit {
			out = string(runes[:limit]) + truncationMarker
		}
	}
	return out
}
