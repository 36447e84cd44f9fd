package residue

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/diff"
	"github.com/mrz1836/evo/internal/domain"
)

// Classification thresholds.
const (
	NearMissThreshold       = 0.85
	FailedApproachThreshold = 0.2

	fragmentValue  = 0.5
	maxPatternText = 600
)

// Observation is one evaluated iteration handed to the collector.
type Observation struct {
	TaskID   string
	Domain   string
	Stage    string
	Response string
	Evolved  string
	Score    float64

	// Best is the best score before this iteration.
	Best float64
}

// Collector classifies iterations into residue patterns and registers them.
type Collector struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewCollector returns a collector writing to registry.
func NewCollector(registry *Registry, logger zerolog.Logger) *Collector {
	return &Collector{registry: registry, logger: logger.With().Str("component", "residue_collector").Logger()}
}

// Collect registers the residue of obs and returns what was registered.
// Registration failures are logged and skipped.
func (c *Collector) Collect(ctx context.Context, obs Observation) []domain.ResiduePattern {
	var out []domain.ResiduePattern
	for _, p := range Classify(obs) {
		registered, err := c.registry.Register(ctx, p)
		if err != nil {
			c.logger.Warn().Err(err).Str("task_id", obs.TaskID).Msg("residue registration failed")
			continue
		}
		out = append(out, registered)
	}
	return out
}

// Classify derives residue patterns from obs without registering them:
//   - a score at or above NearMissThreshold that did not beat Best is a near miss;
//   - a score below FailedApproachThreshold is a failed approach;
//   - each fenced code block in the response that is absent from the evolved
//     artifact is an innovative fragment.
func Classify(obs Observation) []domain.ResiduePattern {
	var out []domain.ResiduePattern
	base := domain.ResiduePattern{TaskID: obs.TaskID, Domain: obs.Domain}

	switch {
	case obs.Score >= NearMissThreshold && obs.Score < obs.Best:
		p := base
		p.Type = domain.ResidueNearMiss
		p.PotentialValue = obs.Score
		p.PatternText = fmt.Sprintf("Near miss from %s (score %.2f):\n%s", obs.Stage, obs.Score, clip(obs.Evolved))
		out = append(out, p)
	case obs.Score < FailedApproachThreshold:
		p := base
		p.Type = domain.ResidueFailedApproach
		p.PotentialValue = obs.Score
		p.PatternText = fmt.Sprintf("Approach from %s scored %.2f, avoid repeating it:\n%s",
			obs.Stage, obs.Score, clip(diff.ExtractReflection(obs.Response)))
		out = append(out, p)
	}

	for _, b := range diff.CodeBlocks(obs.Response) {
		body := strings.TrimSpace(b.Body)
		if body == "" || b.Lang == "diff" || b.Lang == "json" || strings.Contains(obs.Evolved, body) {
			continue
		}
		p := base
		p.Type = domain.ResidueInnovativeFragment
		p.PotentialValue = fragmentValue
		p.PatternText = clip(body)
		out = append(out, p)
	}
	return out
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxPatternText {
		return s
	}
	cut := maxPatternText
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
