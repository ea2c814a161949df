// Package typeutil provides comma-ok helpers for probing untyped JSON values.
//
// Envelopes arrive as map[string]any before their shape is known. Every probe
// made by the classifier goes through these helpers so that a malformed field
// never panics, it simply fails to match.
package typeutil

import (
	"strconv"
)

// SafeMapStringAny safely asserts value to map[string]any.
// Returns the map and true if successful, or nil and false if not.
func SafeMapStringAny(value any) (map[string]any, bool) {
	if value == nil {
		return nil, false
	}
	m, ok := value.(map[string]any)
	return m, ok
}

// SafeString safely asserts value to string.
func SafeString(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// SafeNonEmptyString asserts value to a string and rejects "".
func SafeNonEmptyString(value any) (string, bool) {
	s, ok := SafeString(value)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// SafeBool safely asserts value to bool.
func SafeBool(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	b, ok := value.(bool)
	return b, ok
}

// SafeSlice safely asserts value to []any.
func SafeSlice(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	s, ok := value.([]any)
	return s, ok
}

// SafeStringSlice safely asserts value to []string.
// Also handles []any containing strings (common from JSON).
func SafeStringSlice(value any) ([]string, bool) {
	if value == nil {
		return nil, false
	}

	if s, ok := value.([]string); ok {
		return s, true
	}

	if anySlice, ok := value.([]any); ok {
		result := make([]string, 0, len(anySlice))
		for _, item := range anySlice {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, str)
		}
		return result, true
	}

	return nil, false
}

// HasKey reports whether key is present in data, even with a null value.
func HasKey(data map[string]any, key string) bool {
	if data == nil {
		return false
	}
	_, ok := data[key]
	return ok
}

// GetNestedValue gets a nested value using a dot-separated path.
// Numeric segments index into arrays, so "Records.0.eventSource" reads
// data["Records"][0]["eventSource"].
func GetNestedValue(data map[string]any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}

	current := any(data)
	for _, key := range splitPath(path) {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// GetNestedString gets a nested string value from a map.
func GetNestedString(data map[string]any, path string) (string, bool) {
	v, ok := GetNestedValue(data, path)
	if !ok {
		return "", false
	}
	return SafeString(v)
}

// GetNestedMap gets a nested object from a map.
func GetNestedMap(data map[string]any, path string) (map[string]any, bool) {
	v, ok := GetNestedValue(data, path)
	if !ok {
		return nil, false
	}
	return SafeMapStringAny(v)
}

// splitPath splits a dot-separated path into keys.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	result := make([]string, 0, 4)
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			if i > start {
				result = append(result, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		result = append(result, path[start:])
	}
	return result
}
