package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"flowlab/grader/internal/rules"
)

//go:embed exercises.yaml
var builtinYAML []byte

// Difficulty levels, easiest first
const (
	Beginner     = "beginner"
	Intermediate = "intermediate"
	Advanced     = "advanced"
)

var difficultyRank = map[string]int{Beginner: 0, Intermediate: 1, Advanced: 2}

// Exercise is one tutorial step with the rule that grades it
type Exercise struct {
	ID             string         `json:"id" yaml:"id"`
	Title          string         `json:"title" yaml:"title"`
	Description    string         `json:"description,omitempty" yaml:"description,omitempty"`
	Objective      string         `json:"objective,omitempty" yaml:"objective,omitempty"`
	Difficulty     string         `json:"difficulty" yaml:"difficulty"`
	EstimatedTime  string         `json:"estimated_time,omitempty" yaml:"estimated_time,omitempty"`
	Category       string         `json:"category,omitempty" yaml:"category,omitempty"`
	Instructions   []string       `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Hints          []string       `json:"hints,omitempty" yaml:"hints,omitempty"`
	SampleData     map[string]any `json:"sample_data,omitempty" yaml:"sample_data,omitempty"`
	ExpectedOutput string         `json:"expected_output,omitempty" yaml:"expected_output,omitempty"`
	Validation     rules.Criteria `json:"validation" yaml:"validation"`
}

// Rule returns the exercise's validation rule. The exercise hints are used
// when the rule carries none of its own.
func (e Exercise) Rule() rules.Criteria {
	c := e.Validation
	if len(c.Hints) == 0 && len(e.Hints) > 0 {
		c.Hints = append([]string(nil), e.Hints...)
	}
	return c
}

// Catalog is an ordered, read-only set of exercises
type Catalog struct {
	exercises []Exercise
	byID      map[string]int
}

type catalogFile struct {
	Exercises []Exercise `yaml:"exercises"`
}

// Default returns the built-in tutorial catalog
func Default() *Catalog {
	c, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin catalog: %v", err))
	}
	return c
}

// Parse decodes and checks a catalog document
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{byID: make(map[string]int, len(f.Exercises))}
	for _, ex := range f.Exercises {
		if err := c.add(ex); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadFile reads a catalog file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Load returns the built-in catalog overlaid with the file at path. An
// empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	user, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return base.Merge(user), nil
}

func (c *Catalog) add(ex Exercise) error {
	if ex.ID == "" {
		return fmt.Errorf("exercise without id")
	}
	if _, dup := c.byID[ex.ID]; dup {
		return fmt.Errorf("duplicate exercise %q", ex.ID)
	}
	if _, ok := difficultyRank[ex.Difficulty]; !ok {
		return fmt.Errorf("exercise %q: unknown difficulty %q", ex.ID, ex.Difficulty)
	}
	if err := ex.Validation.Check(); err != nil {
		return fmt.Errorf("exercise %q: %w", ex.ID, err)
	}
	c.byID[ex.ID] = len(c.exercises)
	c.exercises = append(c.exercises, ex)
	return nil
}

// Merge returns a new catalog: exercises of other replace same-id
// exercises in place, new ones are appended
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{
		exercises: append([]Exercise(nil), c.exercises...),
		byID:      make(map[string]int, len(c.byID)),
	}
	for id, i := range c.byID {
		out.byID[id] = i
	}
	for _, ex := range other.exercises {
		if i, ok := out.byID[ex.ID]; ok {
			out.exercises[i] = ex
			continue
		}
		out.byID[ex.ID] = len(out.exercises)
		out.exercises = append(out.exercises, ex)
	}
	return out
}

// Get returns the exercise with the given id
func (c *Catalog) Get(id string) (Exercise, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Exercise{}, false
	}
	return c.exercises[i], true
}

// List returns all exercises ordered by difficulty, then catalog order
func (c *Catalog) List() []Exercise {
	out := append([]Exercise(nil), c.exercises...)
	sort.SliceStable(out, func(i, j int) bool {
		return difficultyRank[out[i].Difficulty] < difficultyRank[out[j].Difficulty]
	})
	return out
}

// ByDifficulty returns the exercises of one level in catalog order
func (c *Catalog) ByDifficulty(level string) []Exercise {
	var out []Exercise
	for _, ex := range c.exercises {
		if ex.Difficulty == level {
			out = append(out, ex)
		}
	}
	return out
}

// Len returns the number of exercises
func (c *Catalog) Len() int { return len(c.exercises) }
