package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a workflow graph file (YAML or JSON)
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses a graph from bytes. ext is the file extension used as a format
// hint; when empty or unknown the format is detected from content.
// Editor exports wrapped as {"workflow": {...}} are unwrapped.
func Load(data []byte, ext string) (*Graph, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("empty graph data")
	}

	var doc struct {
		Graph    `yaml:",inline"`
		Workflow *Graph `json:"workflow" yaml:"workflow"`
	}

	switch detectFormat(data, ext) {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse graph json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse graph yaml: %w", err)
		}
	}

	if doc.Workflow != nil {
		return doc.Workflow, nil
	}
	g := doc.Graph
	return &g, nil
}

func detectFormat(data []byte, ext string) string {
	switch strings.ToLower(ext) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		return "json"
	}
	return "yaml"
}
