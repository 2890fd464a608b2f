package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// lensFile is the on-disk YAML shape for lens definitions.
type lensFile struct {
	Lenses []LensConfig `yaml:"lenses"`
}

// LoadLensFile reads synthesis lens definitions from a YAML file. The file
// replaces the built-in defaults entirely; partial overrides are not merged.
func LoadLensFile(path string) ([]LensConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lens file %s: %w", path, err)
	}

	var f lensFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lens file %s: %w", path, err)
	}

	if len(f.Lenses) == 0 {
		return nil, fmt.Errorf("lens file %s defines no lenses", path)
	}

	for i, lens := range f.Lenses {
		if lens.Name == "" {
			return nil, fmt.Errorf("lens file %s: lens %d has no name", path, i)
		}
		if len(lens.Categories) == 0 {
			return nil, fmt.Errorf("lens file %s: lens %q has no categories", path, lens.Name)
		}
	}

	return f.Lenses, nil
}
