package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/redcell/types"
)

// File represents a techniques YAML file.
//
// Expected structure:
//
//	version: "1"
//	techniques:
//	  - id: T1059
//	    name: Command and Scripting Interpreter
//	    source_tag: broad_it
//	    tactics: [execution]
//	    description: ...
type File struct {
	// Version identifies the file format version.
	Version string `yaml:"version,omitempty"`

	// Techniques is the list of technique entries.
	Techniques []types.TechniqueProfile `yaml:"techniques"`
}

// Load reads a techniques YAML file from disk and builds a catalog.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open %s: %w", path, err)
	}
	defer f.Close()

	c, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to load %s: %w", path, err)
	}
	return c, nil
}

// LoadReader parses techniques YAML from the reader and builds a catalog.
func LoadReader(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read failed: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: failed to parse YAML: %w", err)
	}

	if len(file.Techniques) == 0 {
		return nil, fmt.Errorf("catalog: no techniques defined")
	}

	return New(file.Techniques)
}
