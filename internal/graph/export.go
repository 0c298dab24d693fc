package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/imyousuf/codescribe/internal/model"
)

// SaveJSON writes the dependency-graph artifact: a mapping of component
// id to the component record with its depends_on set as an array.
func SaveJSON(path string, registry model.Registry) error {
	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dependency graph: %w", err)
	}
	return writeAtomic(path, data)
}

// LoadJSON reads a dependency-graph artifact back into a registry.
func LoadJSON(path string) (model.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var registry model.Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("decoding dependency graph %s: %w", path, err)
	}
	return registry, nil
}

// SaveYAML writes the registry in YAML form for human review; the JSON
// artifact remains canonical.
func SaveYAML(path string, registry model.Registry) error {
	// Round-trip through JSON so the YAML carries the same field names
	// and depends_on arrays as the canonical artifact.
	raw, err := json.Marshal(registry)
	if err != nil {
		return fmt.Errorf("encoding dependency graph: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("encoding dependency graph: %w", err)
	}
	data, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("encoding dependency graph: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
