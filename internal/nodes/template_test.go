package nodes

import "testing"

func TestInterpolate(t *testing.T) {
	fields := map[string]any{
		"name":  "world",
		"count": float64(42),
		"ok":    true,
		"tags":  []any{"a", "b"},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "string field",
			template: "hello {{name}}",
			expected: "hello world",
		},
		{
			name:     "number field",
			template: "count={{count}}",
			expected: "count=42",
		},
		{
			name:     "bool field",
			template: "ok={{ok}}",
			expected: "ok=true",
		},
		{
			name:     "composite field as json",
			template: "tags={{tags}}",
			expected: `tags=["a","b"]`,
		},
		{
			name:     "unknown placeholder stays verbatim",
			template: "hello {{missing}}",
			expected: "hello {{missing}}",
		},
		{
			name:     "multiple placeholders",
			template: "{{name}}-{{count}}-{{missing}}",
			expected: "world-42-{{missing}}",
		},
		{
			name:     "no placeholders",
			template: "plain text",
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Interpolate(tt.template, fields)
			if result != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	fields := map[string]any{
		"response": map[string]any{
			"data": map[string]any{
				"items": []any{1, 2},
			},
		},
		"flat": "value",
	}

	tests := []struct {
		name   string
		path   string
		wantOK bool
	}{
		{name: "flat key", path: "flat", wantOK: true},
		{name: "nested path", path: "response.data.items", wantOK: true},
		{name: "missing segment", path: "response.missing.items", wantOK: false},
		{name: "through non-object", path: "flat.deeper", wantOK: false},
		{name: "empty path", path: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Lookup(fields, tt.path)
			if ok != tt.wantOK {
				t.Errorf("Lookup(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
		})
	}
}
