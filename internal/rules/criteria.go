package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects the validator a rule is dispatched to
type Kind string

const (
	KindNodeCount         Kind = "node_count"
	KindConnectionCount   Kind = "connection_count"
	KindNodeType          Kind = "node_type"
	KindDataFlow          Kind = "data_flow"
	KindWorkflowExecution Kind = "workflow_execution"
	KindCustom            Kind = "custom"
)

// Kinds lists every supported rule kind in dispatch order
func Kinds() []Kind {
	return []Kind{
		KindNodeCount, KindConnectionCount, KindNodeType,
		KindDataFlow, KindWorkflowExecution, KindCustom,
	}
}

// Valid reports whether k names a known validator
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Criteria is a declarative validation rule. Parameters are kind-specific
// and read-only to the engine.
type Criteria struct {
	Kind       Kind           `json:"kind" yaml:"kind"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Message    string         `json:"message,omitempty" yaml:"message,omitempty"`
	Hints      []string       `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// criteriaDoc accepts both the current keys and the editor's legacy
// type/criteria keys
type criteriaDoc struct {
	Kind       Kind           `json:"kind" yaml:"kind"`
	Type       Kind           `json:"type" yaml:"type"`
	Parameters map[string]any `json:"parameters" yaml:"parameters"`
	Criteria   map[string]any `json:"criteria" yaml:"criteria"`
	Message    string         `json:"message" yaml:"message"`
	Hints      []string       `json:"hints" yaml:"hints"`
}

func (d criteriaDoc) criteria() Criteria {
	c := Criteria{Kind: d.Kind, Parameters: d.Parameters, Message: d.Message, Hints: d.Hints}
	if c.Kind == "" {
		c.Kind = d.Type
	}
	if c.Parameters == nil {
		c.Parameters = d.Criteria
	}
	return c
}

// Check reports authoring mistakes the engine would otherwise turn into a
// generic failure at validation time: an unknown kind or a custom
// expression that does not compile.
func (c Criteria) Check() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("unknown rule kind %q", c.Kind)
	}
	if c.Kind != KindCustom {
		return nil
	}
	checks, err := parseExpressionChecks(params(c.Parameters))
	if err != nil {
		return err
	}
	for _, ec := range checks {
		if _, err := CompileExpression(ec.Expr); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON decodes a rule, accepting legacy keys
func (c *Criteria) UnmarshalJSON(data []byte) error {
	var d criteriaDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*c = d.criteria()
	return nil
}

// UnmarshalYAML decodes a rule, accepting legacy keys
func (c *Criteria) UnmarshalYAML(value *yaml.Node) error {
	var d criteriaDoc
	if err := value.Decode(&d); err != nil {
		return err
	}
	*c = d.criteria()
	return nil
}

// LoadCriteriaFile reads a rule from a YAML or JSON file
func LoadCriteriaFile(path string) (Criteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Criteria{}, fmt.Errorf("read rule: %w", err)
	}
	return ParseCriteria(data, filepath.Ext(path))
}

// ParseCriteria decodes a rule. ext is a format hint (".json", ".yaml");
// without one, input starting with '{' is treated as JSON.
func ParseCriteria(data []byte, ext string) (Criteria, error) {
	var c Criteria
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return c, fmt.Errorf("empty rule")
	}

	isJSON := strings.EqualFold(ext, ".json") || (ext == "" && strings.HasPrefix(trimmed, "{"))
	if isJSON {
		if err := json.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse rule json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse rule yaml: %w", err)
	}

	if c.Kind == "" {
		return c, fmt.Errorf("rule has no kind")
	}
	return c, nil
}
