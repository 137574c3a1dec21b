package provider

import (
	"testing"
)

func TestSchemaValidator_Object(t *testing.T) {
	validator := NewSchemaValidator()

	schema := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"name":  {Type: "string"},
			"count": {Type: "integer"},
		},
		Required: []string{"name"},
	}

	tests := []struct {
		name    string
		data    map[string]any
		wantErr bool
	}{
		{
			name:    "valid object",
			data:    map[string]any{"name": "budget review", "count": 3},
			wantErr: false,
		},
		{
			name:    "missing required field",
			data:    map[string]any{"count": 3},
			wantErr: true,
		},
		{
			name:    "wrong property type",
			data:    map[string]any{"name": 42},
			wantErr: true,
		},
		{
			name:    "extra properties pass through",
			data:    map[string]any{"name": "ok", "note": "ignored"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.Validate(schema, tt.data)
			if tt.wantErr && len(errs) == 0 {
				t.Error("expected validation errors")
			}
			if !tt.wantErr && len(errs) > 0 {
				t.Errorf("unexpected validation errors: %v", errs)
			}
		})
	}
}

func TestSchemaValidator_NumberBounds(t *testing.T) {
	validator := NewSchemaValidator()
	schema := &Schema{
		Type:    "number",
		Minimum: float64Ptr(0),
		Maximum: float64Ptr(100),
	}

	if errs := validator.Validate(schema, float64(55)); len(errs) > 0 {
		t.Errorf("in-range value rejected: %v", errs)
	}
	if errs := validator.Validate(schema, float64(-1)); len(errs) == 0 {
		t.Error("below-minimum value accepted")
	}
	if errs := validator.Validate(schema, float64(101)); len(errs) == 0 {
		t.Error("above-maximum value accepted")
	}
	// JSON numbers decode as float64; whole floats count as integers.
	intSchema := &Schema{Type: "integer"}
	if errs := validator.Validate(intSchema, float64(5)); len(errs) > 0 {
		t.Errorf("whole float rejected as integer: %v", errs)
	}
	if errs := validator.Validate(intSchema, 5.5); len(errs) == 0 {
		t.Error("fractional float accepted as integer")
	}
}

func TestSchemaValidator_ArrayItems(t *testing.T) {
	validator := NewSchemaValidator()
	schema := &Schema{
		Type:  "array",
		Items: &Schema{Type: "string"},
	}

	if errs := validator.Validate(schema, []any{"a", "b"}); len(errs) > 0 {
		t.Errorf("valid array rejected: %v", errs)
	}
	if errs := validator.Validate(schema, []any{"a", 1}); len(errs) == 0 {
		t.Error("array with wrong item type accepted")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "bare object",
			text: `{"shouldProgress": true}`,
			want: `{"shouldProgress": true}`,
		},
		{
			name: "object inside prose",
			text: "Here is my verdict:\n{\"shouldProgress\": false}\nThanks!",
			want: `{"shouldProgress": false}`,
		},
		{
			name: "nested braces",
			text: `{"extractedData": {"rootProblem": "churn"}}`,
			want: `{"extractedData": {"rootProblem": "churn"}}`,
		},
		{
			name: "braces inside strings",
			text: `{"progressReason": "covers {all} cases"}`,
			want: `{"progressReason": "covers {all} cases"}`,
		},
		{
			name: "no object",
			text: "I cannot answer that.",
			want: "",
		},
		{
			name: "unbalanced",
			text: `{"shouldProgress": true`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.text); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
