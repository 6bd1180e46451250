package rules

import (
	"errors"
	"fmt"
	"math"
)

// ErrBadParameter marks a rule parameter of the wrong type
var ErrBadParameter = errors.New("bad parameter")

// params is the read-only parameter bag of a rule. Accessors report
// whether a key is present; a present key of the wrong type is an error.
type params map[string]any

func badParam(key, want string, v any) error {
	return fmt.Errorf("%w: %s must be %s, got %T", ErrBadParameter, key, want, v)
}

// Int reads an integer. YAML decodes integers as int, JSON as float64.
func (p params) Int(key string) (int, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case uint64:
		return int(n), true, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false, badParam(key, "a finite number", v)
		}
		return int(n), true, nil
	}
	return 0, false, badParam(key, "a number", v)
}

// Bool reads a flag; absent means false
func (p params) Bool(key string) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, badParam(key, "a boolean", v)
	}
	return b, nil
}

// Strings reads a list of strings
func (p params) Strings(key string) ([]string, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	switch list := v.(type) {
	case []string:
		return list, true, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, isStr := item.(string)
			if !isStr {
				return nil, false, badParam(key, "a list of strings", item)
			}
			out = append(out, s)
		}
		return out, true, nil
	}
	return nil, false, badParam(key, "a list of strings", v)
}

// StringListMap reads a mapping of name -> list of strings
func (p params) StringListMap(key string) (map[string][]string, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	switch m := v.(type) {
	case map[string][]string:
		return m, true, nil
	case map[string]any:
		out := make(map[string][]string, len(m))
		for name := range m {
			list, _, err := params(m).Strings(name)
			if err != nil {
				return nil, false, fmt.Errorf("%s: %w", key, err)
			}
			out[name] = list
		}
		return out, true, nil
	}
	return nil, false, badParam(key, "a mapping of lists", v)
}

// Maps reads a list of mappings
func (p params) Maps(key string) ([]map[string]any, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	switch list := v.(type) {
	case []map[string]any:
		return list, true, nil
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			m, isMap := item.(map[string]any)
			if !isMap {
				return nil, false, badParam(key, "a list of mappings", item)
			}
			out = append(out, m)
		}
		return out, true, nil
	}
	return nil, false, badParam(key, "a list of mappings", v)
}

// String reads a string
func (p params) String(key string) (string, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", false, badParam(key, "a string", v)
	}
	return s, true, nil
}
