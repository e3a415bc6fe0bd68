package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// capabilityFile is the YAML shape of a registry override file.
type capabilityFile struct {
	Capabilities []models.Capability `yaml:"capabilities"`
}

// LoadFile builds a Registry from a YAML capability file.
// The file replaces the built-in table entirely; validation is the same
// as for New.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capability file: %w", err)
	}

	var file capabilityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse capability file %s: %w", path, err)
	}
	if len(file.Capabilities) == 0 {
		return nil, fmt.Errorf("capability file %s defines no capabilities", path)
	}

	r, err := New(file.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("capability file %s: %w", path, err)
	}
	return r, nil
}

// Load returns the registry from the given file path, or the built-in
// default table when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
