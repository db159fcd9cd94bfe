// Package devseed loads YAML fixtures describing an initial GeoServer
// catalog for the mock backend and the sandbox.
package devseed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is the top-level fixture document.
type Seed struct {
	Workspaces []WorkspaceSeed `yaml:"workspaces"`
}

// WorkspaceSeed lists the stores of one workspace.
type WorkspaceSeed struct {
	Name           string      `yaml:"name"`
	DataStores     []StoreSeed `yaml:"datastores"`
	CoverageStores []StoreSeed `yaml:"coveragestores"`
	WmsStores      []StoreSeed `yaml:"wmsstores"`
}

// StoreSeed describes one store and the resources it publishes.
type StoreSeed struct {
	Name                 string `yaml:"name"`
	Enabled              *bool  `yaml:"enabled"`
	Type                 string `yaml:"type"`
	URL                  string `yaml:"url"`
	CapabilitiesURL      string `yaml:"capabilitiesURL"`
	ConnectionParameters Params `yaml:"connectionParameters"`
	Metadata             Params `yaml:"metadata"`
	// Resources are published feature types, coverages or WMS layers.
	Resources []string `yaml:"resources"`
	// Available lists remote layer names; WMS stores only.
	Available []string `yaml:"available"`
}

// Param is one ordered key/value pair.
type Param struct {
	Key   string
	Value string
}

// Params is a YAML mapping decoded with its key order preserved.
type Params []Param

// UnmarshalYAML decodes a mapping node in document order.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("devseed: line %d: expected a mapping", node.Line)
	}
	out := make(Params, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("devseed: line %d: value of %q must be a scalar", value.Line, key.Value)
		}
		out = append(out, Param{Key: key.Value, Value: value.Value})
	}
	*p = out
	return nil
}

// Load reads and validates a seed file.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates seed YAML.
func Parse(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("devseed: parse: %w", err)
	}
	for i, ws := range seed.Workspaces {
		if strings.TrimSpace(ws.Name) == "" {
			return nil, fmt.Errorf("devseed: workspace #%d missing name", i)
		}
		for _, group := range [][]StoreSeed{ws.DataStores, ws.CoverageStores, ws.WmsStores} {
			for j, st := range group {
				if strings.TrimSpace(st.Name) == "" {
					return nil, fmt.Errorf("devseed: workspace %q: store #%d missing name", ws.Name, j)
				}
			}
		}
	}
	return &seed, nil
}
