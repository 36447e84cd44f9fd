// Package prompts assembles agent prompts. Stage and reflection prompts use a
// small template language:
//
//	{{name}}                  substituted with the variable's value
//	{{#if name}}...{{/if}}    kept only when name is set and not blank
//
// Conditionals may nest. Placeholders without a value are left untouched, and
// substituted values are never scanned again. PR descriptions use text/template.
package prompts

import (
	"fmt"
	"regexp"
	"strings"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// varPattern matches {{variable}} placeholders.
//
//nolint:gochecknoglobals // compiled once, immutable
var varPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

const (
	ifOpen  = "{{#if "
	ifClose = "{{/if}}"
)

// Render resolves tmpl against vars. Every name in required must be present
// in vars, otherwise ErrTemplateVariableMissing is returned.
func Render(tmpl string, vars map[string]string, required []string) (string, error) {
	for _, name := range required {
		if _, ok := vars[name]; !ok {
			return "", fmt.Errorf("%w: %s", evoerrors.ErrTemplateVariableMissing, name)
		}
	}

	resolved, err := resolveConditionals(tmpl, vars)
	if err != nil {
		return "", err
	}
	return expand(resolved, vars), nil
}

// Variables returns the distinct placeholder names used in tmpl, in order of
// first appearance. Names only used as conditions are not included.
func Variables(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range varPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// resolveConditionals repeatedly rewrites the innermost conditional block
// until none remain.
func resolveConditionals(s string, vars map[string]string) (string, error) {
	for {
		open := strings.LastIndex(s, ifOpen)
		if open < 0 {
			if strings.Contains(s, ifClose) {
				return "", fmt.Errorf("%w: unmatched %s", evoerrors.ErrTemplateExecution, ifClose)
			}
			return s, nil
		}

		tagEnd := strings.Index(s[open:], "}}")
		if tagEnd < 0 {
			return "", fmt.Errorf("%w: unterminated %s tag", evoerrors.ErrTemplateExecution, ifOpen)
		}
		name := strings.TrimSpace(s[open+len(ifOpen) : open+tagEnd])
		bodyStart := open + tagEnd + len("}}")

		closeAt := strings.Index(s[bodyStart:], ifClose)
		if closeAt < 0 {
			return "", fmt.Errorf("%w: missing %s for %q", evoerrors.ErrTemplateExecution, ifClose, name)
		}
		body := s[bodyStart : bodyStart+closeAt]
		if !truthy(vars, name) {
			body = ""
		}
		s = s[:open] + body + s[bodyStart+closeAt+len(ifClose):]
	}
}

func truthy(vars map[string]string, name string) bool {
	v, ok := vars[name]
	return ok && strings.TrimSpace(v) != ""
}

func expand(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.Trim(match, "{}")
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})
}
