package customtest

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// File maps contract paths to named test definitions.
type File map[string]map[string]Definition

// LoadFile reads a custom test file from disk.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read custom test file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes custom test YAML.
func Parse(data []byte) (File, error) {
	f := File{}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse custom test file: %w", err)
	}
	return f, nil
}

// ForPath returns the definitions for path, falling back to the `all` key
// when path has none.
func (f File) ForPath(path string) map[string]Definition {
	if defs := f[path]; len(defs) > 0 {
		return defs
	}
	return f[AllPaths]
}

// SortedKeys returns the test keys of defs in lexical order, the order in
// which they execute.
func SortedKeys(defs map[string]Definition) []string {
	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
