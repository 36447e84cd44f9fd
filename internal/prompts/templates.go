package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

//go:embed templates/stages/*.md templates/reflection/*.md templates/pr/*.tmpl
var templateFS embed.FS

// Default stage roles with an embedded template.
const (
	RoleInitialOptimization = "initial_optimization"
	RoleCodeReview          = "code_review"
	RoleEdgeCaseTesting     = "edge_case_testing"
	RoleFinalSynthesis      = "final_synthesis"

	// RoleIteration is used for any role without a template of its own,
	// including the generic iteration_N stages.
	RoleIteration = "iteration"
)

// DefaultRequiredVariables must be set for every default stage prompt.
//
//nolint:gochecknoglobals // static list
var DefaultRequiredVariables = []string{"artifact", "goal"}

// ReflectionType selects the reflection prompt an agent uses to critique text.
type ReflectionType string

// Reflection prompt types.
const (
	ReflectionGeneral    ReflectionType = "general"
	ReflectionCode       ReflectionType = "code"
	ReflectionAlgorithm  ReflectionType = "algorithm"
	ReflectionTypePrompt ReflectionType = "prompt"
)

// registry holds the embedded templates, parsed once at init.
type registry struct {
	mu          sync.RWMutex
	stages      map[string]string
	reflections map[ReflectionType]string
	pr          *template.Template
}

//nolint:gochecknoglobals // embedded templates are loaded once and read-only afterwards
var globalRegistry = &registry{
	stages:      make(map[string]string),
	reflections: make(map[ReflectionType]string),
}

//nolint:gochecknoinits // embedded templates must be available before first use
func init() {
	if err := globalRegistry.loadAll(); err != nil {
		panic(fmt.Sprintf("failed to load embedded templates: %v", err))
	}
}

func (r *registry) loadAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := templateFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", p, err)
		}

		name := strings.TrimSuffix(path.Base(p), path.Ext(p))
		switch path.Base(path.Dir(p)) {
		case "stages":
			r.stages[name] = string(content)
		case "reflection":
			r.reflections[ReflectionType(name)] = string(content)
		case "pr":
			tmpl, err := template.New(name).Funcs(template.FuncMap{"lower": strings.ToLower}).Parse(string(content))
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", p, err)
			}
			r.pr = tmpl
		}
		return nil
	})
	if err != nil {
		return err
	}
	if _, ok := r.stages[RoleIteration]; !ok {
		return fmt.Errorf("%w: %s", evoerrors.ErrTemplateNotFound, RoleIteration)
	}
	return nil
}

// StageTemplate returns the default template source for role. Roles without
// a template of their own get the generic iteration template.
func StageTemplate(role string) string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	if src, ok := globalRegistry.stages[role]; ok {
		return src
	}
	return globalRegistry.stages[RoleIteration]
}

// HasStageTemplate reports whether role has a dedicated default template.
func HasStageTemplate(role string) bool {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	_, ok := globalRegistry.stages[role]
	return ok
}

// Roles lists the roles with a dedicated default template, sorted.
func Roles() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	roles := make([]string, 0, len(globalRegistry.stages))
	for role := range globalRegistry.stages {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// DefaultStagePrompt renders the default template for role.
func DefaultStagePrompt(role string, vars map[string]string) (string, error) {
	return Render(StageTemplate(role), vars, DefaultRequiredVariables)
}

// ReflectionPrompt builds the prompt asking an agent to critique text.
// Unknown types use the general prompt.
func ReflectionPrompt(t ReflectionType, text string) string {
	globalRegistry.mu.RLock()
	src, ok := globalRegistry.reflections[t]
	if !ok {
		src = globalRegistry.reflections[ReflectionGeneral]
	}
	globalRegistry.mu.RUnlock()

	return expand(src, map[string]string{"text": text})
}

func (r *registry) executePR(data PRDescriptionData) (string, error) {
	r.mu.RLock()
	tmpl := r.pr
	r.mu.RUnlock()
	if tmpl == nil {
		return "", fmt.Errorf("%w: pr description", evoerrors.ErrTemplateNotFound)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: pr description: %w", evoerrors.ErrTemplateExecution, err)
	}
	return buf.String(), nil
}
