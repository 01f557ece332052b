package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// Schema describes the expected JSON shape of a structured completion. It
// is sent to providers that enforce schemas server-side and always used to
// validate the model's output before it reaches the caller.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Items      *Property           `json:"items,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single field within a Schema.
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Required    []string            `json:"required,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
}

// Validate checks that data is valid JSON conforming to the schema.
func (s *Schema) Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	root := Property{
		Type:       s.Type,
		Properties: s.Properties,
		Items:      s.Items,
		Required:   s.Required,
	}
	return checkValue("$", v, root)
}

func checkValue(path string, v any, p Property) error {
	switch p.Type {
	case "object":
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %s", path, jsonType(v))
		}
		for _, name := range p.Required {
			if _, ok := m[name]; !ok {
				return fmt.Errorf("%s: missing required property %q", path, name)
			}
		}
		for name, sub := range p.Properties {
			if val, ok := m[name]; ok {
				if err := checkValue(path+"."+name, val, sub); err != nil {
					return err
				}
			}
		}
	case "array":
		arr, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %s", path, jsonType(v))
		}
		if p.Items != nil {
			for i, item := range arr {
				if err := checkValue(fmt.Sprintf("%s[%d]", path, i), item, *p.Items); err != nil {
					return err
				}
			}
		}
	case "string":
		str, ok := v.(string)
		if !ok {
			return fmt.Errorf("%s: expected string, got %s", path, jsonType(v))
		}
		if len(p.Enum) > 0 && !slices.Contains(p.Enum, str) {
			return fmt.Errorf("%s: %q is not one of %v", path, str, p.Enum)
		}
	case "number":
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("%s: expected number, got %s", path, jsonType(v))
		}
	case "integer":
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("%s: expected integer, got %s", path, jsonType(v))
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %s", path, jsonType(v))
		}
	case "":
		// No type constraint.
	default:
		return fmt.Errorf("%s: unsupported schema type %q", path, p.Type)
	}
	return nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
