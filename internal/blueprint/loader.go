package blueprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/evaluator"
)

// Loader loads blueprint definitions from YAML or JSON files.
type Loader struct {
	basePath string
	catalog  *evaluator.Catalog
}

// NewLoader creates a loader. Relative paths resolve against basePath.
func NewLoader(basePath string, catalog *evaluator.Catalog) *Loader {
	return &Loader{basePath: basePath, catalog: catalog}
}

// LoadFromFile loads one blueprint. .json files are parsed as JSON, anything else as YAML.
func (l *Loader) LoadFromFile(path string) (*Static, error) {
	def, err := l.ReadDefinition(path)
	if err != nil {
		return nil, err
	}
	return New(*def, l.catalog)
}

// ReadDefinition parses a file without building the blueprint.
func (l *Loader) ReadDefinition(path string) (*Definition, error) {
	resolved := l.resolvePath(path)

	data, err := os.ReadFile(resolved) //nolint:gosec // path comes from user config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", evoerrors.ErrBlueprintFileMissing, resolved)
		}
		return nil, fmt.Errorf("%w: %w", evoerrors.ErrBlueprintParse, err)
	}

	var def Definition
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &def)
	} else {
		err = yaml.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", evoerrors.ErrBlueprintParse, resolved, err)
	}
	return &def, nil
}

// LoadAll loads blueprints from name->path mappings. The map key becomes the
// blueprint name. It stops at the first failure.
func (l *Loader) LoadAll(paths map[string]string) ([]*Static, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	loaded := make([]*Static, 0, len(paths))
	for name, path := range paths {
		def, err := l.ReadDefinition(path)
		if err != nil {
			return nil, fmt.Errorf("blueprint %q from %q: %w", name, path, err)
		}
		def.Name = name
		bp, err := New(*def, l.catalog)
		if err != nil {
			return nil, fmt.Errorf("blueprint %q from %q: %w", name, path, err)
		}
		loaded = append(loaded, bp)
	}
	return loaded, nil
}

func (l *Loader) resolvePath(path string) string {
	if filepath.IsAbs(path) || l.basePath == "" {
		return path
	}
	return filepath.Join(l.basePath, path)
}
