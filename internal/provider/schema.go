package provider

import (
	"fmt"
	"reflect"
	"strings"
)

// Schema is a small JSON Schema subset used to validate analyzer output.
type Schema struct {
	Type       string             `json:"type,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Minimum    *float64           `json:"minimum,omitempty"`
	Maximum    *float64           `json:"maximum,omitempty"`
}

// SchemaValidator validates decoded JSON values against a Schema.
type SchemaValidator struct{}

// NewSchemaValidator creates a schema validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

// Validate checks data against the schema and returns the violations found.
func (v *SchemaValidator) Validate(schema *Schema, data any) []string {
	var errs []string
	v.validateValue(schema, data, "", &errs)
	return errs
}

func (v *SchemaValidator) validateValue(schema *Schema, value any, path string, errs *[]string) {
	if schema == nil {
		return
	}

	if schema.Type != "" && !checkType(schema.Type, value) {
		*errs = append(*errs,
			fmt.Sprintf("%s: expected type %s, got %T", pathOrRoot(path), schema.Type, value))
		return
	}

	switch schema.Type {
	case "object":
		v.validateObject(schema, value, path, errs)
	case "array":
		v.validateArray(schema, value, path, errs)
	case "number", "integer":
		v.validateNumber(schema, value, path, errs)
	}
}

func (v *SchemaValidator) validateObject(schema *Schema, value any, path string, errs *[]string) {
	obj, ok := value.(map[string]any)
	if !ok {
		return
	}

	for _, field := range schema.Required {
		if _, exists := obj[field]; !exists {
			*errs = append(*errs,
				fmt.Sprintf("%s: missing required field '%s'", pathOrRoot(path), field))
		}
	}

	for name, propSchema := range schema.Properties {
		if propValue, exists := obj[name]; exists {
			v.validateValue(propSchema, propValue, joinPath(path, name), errs)
		}
	}
}

func (v *SchemaValidator) validateArray(schema *Schema, value any, path string, errs *[]string) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return
	}
	if schema.Items != nil {
		for i := 0; i < rv.Len(); i++ {
			v.validateValue(schema.Items, rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i), errs)
		}
	}
}

func (v *SchemaValidator) validateNumber(schema *Schema, value any, path string, errs *[]string) {
	var num float64
	switch val := value.(type) {
	case float64:
		num = val
	case int:
		num = float64(val)
	case int64:
		num = float64(val)
	default:
		return
	}

	if schema.Minimum != nil && num < *schema.Minimum {
		*errs = append(*errs,
			fmt.Sprintf("%s: value %v is less than minimum %v", pathOrRoot(path), num, *schema.Minimum))
	}
	if schema.Maximum != nil && num > *schema.Maximum {
		*errs = append(*errs,
			fmt.Sprintf("%s: value %v is greater than maximum %v", pathOrRoot(path), num, *schema.Maximum))
	}
}

func checkType(schemaType string, value any) bool {
	if value == nil {
		return schemaType == "null"
	}

	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int64, int32:
			return true
		}
		return false
	case "integer":
		switch val := value.(type) {
		case int, int64, int32:
			return true
		case float64:
			return val == float64(int64(val))
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		return reflect.ValueOf(value).Kind() == reflect.Slice
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return false
}

func pathOrRoot(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}

// extractJSON returns the first balanced JSON object found in text, or ""
// when none exists. Braces inside string literals are ignored.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if escape {
			escape = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escape = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return ""
}
