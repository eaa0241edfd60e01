// Package config provides typed accessors over a CheckDefinition's opaque
// Config map, shared by every pkg/providers implementation. Grounded on
// the teacher's executor.BaseExecutor accessor set
// (pkg/executor/executor.go), adapted from methods on an embedded base
// type to plain functions since providers here don't share a base struct.
package config

import "fmt"

// String returns config[key] as a string, erroring if absent or the
// wrong type.
func String(cfg map[string]any, key string) (string, error) {
	val, ok := cfg[key]
	if !ok {
		return "", fmt.Errorf("field not found: %s", key)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("field %s is not a string", key)
	}
	return str, nil
}

// StringDefault returns config[key] as a string, or def if absent/wrong type.
func StringDefault(cfg map[string]any, key, def string) string {
	val, ok := cfg[key]
	if !ok {
		return def
	}
	str, ok := val.(string)
	if !ok {
		return def
	}
	return str
}

// IntDefault returns config[key] as an int (accepting JSON's float64), or
// def if absent/wrong type.
func IntDefault(cfg map[string]any, key string, def int) int {
	val, ok := cfg[key]
	if !ok {
		return def
	}
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// BoolDefault returns config[key] as a bool, or def if absent/wrong type.
func BoolDefault(cfg map[string]any, key string, def bool) bool {
	val, ok := cfg[key]
	if !ok {
		return def
	}
	b, ok := val.(bool)
	if !ok {
		return def
	}
	return b
}

// StringSlice returns config[key] as a []string, accepting both []string
// and []any of strings (the shape json.Unmarshal into map[string]any
// produces).
func StringSlice(cfg map[string]any, key string) []string {
	val, ok := cfg[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Map returns config[key] as a map[string]string, accepting both a
// pre-typed map and a map[string]any of strings.
func Map(cfg map[string]any, key string) map[string]string {
	val, ok := cfg[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

// Required checks that every name in fields is present in cfg.
func Required(cfg map[string]any, fields ...string) error {
	for _, f := range fields {
		if _, ok := cfg[f]; !ok {
			return fmt.Errorf("required field missing: %s", f)
		}
	}
	return nil
}
