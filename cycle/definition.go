package cycle

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Definition is the declarative half of a cycle configuration: the parts
// that can live in YAML. Handlers, observer, and initial state are bound in
// code via FromDefinition.
type Definition struct {
	Name         string  `json:"name"         yaml:"name"`
	Stages       []Stage `json:"stages"       yaml:"stages"`
	Interval     string  `json:"interval"     yaml:"interval"` // Go duration string, e.g. "250ms"
	HistoryLimit int     `json:"historyLimit" yaml:"historyLimit"`
}

// LoadDefinition loads a cycle definition from a YAML file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %q: %w", path, err)
	}

	return LoadDefinitionFromBytes(data)
}

// LoadDefinitionFromBytes loads a cycle definition from YAML bytes.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	var def Definition

	err := yaml.Unmarshal(data, &def)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = def.Validate()
	if err != nil {
		return nil, err
	}

	return &def, nil
}

// LoadDefinitionFromFS loads a definition from an embedded filesystem.
// This is a convenience function for loading from embed.FS.
func LoadDefinitionFromFS(fsys fs.FS, path string) (*Definition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition from FS: %w", err)
	}

	return LoadDefinitionFromBytes(data)
}

// Validate checks if the definition is valid.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return ErrDefinitionNameRequired
	}

	if len(d.Stages) == 0 {
		return ErrNoStages
	}

	if d.HistoryLimit < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeHistoryLimit, d.HistoryLimit)
	}

	_, err := d.TickInterval()
	if err != nil {
		return err
	}

	return nil
}

// TickInterval parses the interval field. An empty field means no default
// interval.
func (d *Definition) TickInterval() (time.Duration, error) {
	if d.Interval == "" {
		return 0, nil
	}

	interval, err := time.ParseDuration(d.Interval)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrBadInterval, d.Interval, err)
	}

	if interval < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNegativeInterval, interval)
	}

	return interval, nil
}
