package typeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SCALAR TESTS
// =============================================================================

func TestSafeMapStringAny(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantMap  map[string]any
		wantBool bool
	}{
		{"valid map", map[string]any{"key": "value"}, map[string]any{"key": "value"}, true},
		{"nil value", nil, nil, false},
		{"wrong type string", "not a map", nil, false},
		{"empty map", map[string]any{}, map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeMapStringAny(tt.input)
			assert.Equal(t, tt.wantBool, ok)
			assert.Equal(t, tt.wantMap, got)
		})
	}
}

func TestSafeNonEmptyString(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
		ok    bool
	}{
		{"value", "aws:sqs", "aws:sqs", true},
		{"empty", "", "", false},
		{"nil", nil, "", false},
		{"number", 12.0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeNonEmptyString(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSafeBool(t *testing.T) {
	b, ok := SafeBool(true)
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = SafeBool("true")
	assert.False(t, ok)

	_, ok = SafeBool(nil)
	assert.False(t, ok)
}

func TestSafeStringSlice(t *testing.T) {
	got, ok := SafeStringSlice([]any{"a=1", "b=2"})
	require.True(t, ok)
	assert.Equal(t, []string{"a=1", "b=2"}, got)

	got, ok = SafeStringSlice([]string{"x"})
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, got)

	_, ok = SafeStringSlice([]any{"a", 1})
	assert.False(t, ok)

	_, ok = SafeStringSlice("a")
	assert.False(t, ok)
}

// =============================================================================
// NESTED PATH TESTS
// =============================================================================

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"requestContext": map[string]any{
			"http": map[string]any{"method": "POST"},
			"elb":  map[string]any{"targetGroupArn": "arn"},
		},
		"Records": []any{
			map[string]any{"eventSource": "aws:sqs"},
		},
		"nothing": nil,
	}

	tests := []struct {
		name string
		path string
		want any
		ok   bool
	}{
		{"nested map", "requestContext.http.method", "POST", true},
		{"array index", "Records.0.eventSource", "aws:sqs", true},
		{"index out of range", "Records.1.eventSource", nil, false},
		{"non numeric index", "Records.first", nil, false},
		{"missing key", "requestContext.identity", nil, false},
		{"through scalar", "requestContext.http.method.x", nil, false},
		{"null value present", "nothing", nil, true},
		{"empty path", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetNestedValue(data, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetNestedString(t *testing.T) {
	data := map[string]any{"a": map[string]any{"b": "c", "n": 1.0}}

	s, ok := GetNestedString(data, "a.b")
	assert.True(t, ok)
	assert.Equal(t, "c", s)

	_, ok = GetNestedString(data, "a.n")
	assert.False(t, ok)
}

func TestGetNestedMap(t *testing.T) {
	data := map[string]any{"requestContext": map[string]any{"elb": map[string]any{}}}

	m, ok := GetNestedMap(data, "requestContext.elb")
	assert.True(t, ok)
	assert.Empty(t, m)

	_, ok = GetNestedMap(nil, "requestContext")
	assert.False(t, ok)
}

func TestHasKey(t *testing.T) {
	data := map[string]any{"multiValueHeaders": nil}
	assert.True(t, HasKey(data, "multiValueHeaders"))
	assert.False(t, HasKey(data, "headers"))
	assert.False(t, HasKey(nil, "headers"))
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitPath("a.b.c"))
	assert.Equal(t, []string{"a", "b"}, splitPath(".a..b."))
	assert.Nil(t, splitPath(""))
}
