// Package schema validates tool arguments against the small JSON-schema
// subset tools declare, and derives such schemas from Go structs.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// ValidationError describes the first argument that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var knownTypes = map[string]bool{
	"string": true, "integer": true, "number": true,
	"boolean": true, "array": true, "object": true, "null": true,
}

// Check reports whether s is a usable parameters schema: an object schema whose
// properties are maps with known types and whose required keys are strings.
// A nil schema is accepted and means "no parameters".
func Check(s map[string]any) error {
	if s == nil {
		return nil
	}
	if t, ok := s["type"]; ok && t != "object" {
		return fmt.Errorf("parameters schema must have type object, got %v", t)
	}

	props := map[string]any{}
	if raw, ok := s["properties"]; ok && raw != nil {
		p, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("properties must be an object, got %T", raw)
		}
		props = p
	}
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("property %q must be an object, got %T", name, raw)
		}
		if t, ok := prop["type"]; ok {
			ts, ok := t.(string)
			if !ok || !knownTypes[ts] {
				return fmt.Errorf("property %q has unsupported type %v", name, t)
			}
		}
	}

	required, err := requiredKeys(s)
	if err != nil {
		return err
	}
	for _, name := range required {
		if _, ok := props[name]; !ok {
			return fmt.Errorf("required key %q is not declared in properties", name)
		}
	}
	return nil
}

// Validate checks args against s: every required key must be present and
// every declared property must carry a value of the declared type.
// Undeclared keys are allowed.
func Validate(args map[string]any, s map[string]any) error {
	if s == nil {
		return nil
	}
	required, err := requiredKeys(s)
	if err != nil {
		return err
	}
	for _, name := range required {
		if v, ok := args[name]; !ok || v == nil {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	props, _ := s["properties"].(map[string]any)
	for name, value := range args {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		expected, _ := prop["type"].(string)
		if !isValidType(value, expected) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", expected, value),
			}
		}
	}
	return nil
}

// FromType reflects a parameters schema from the struct type T.
//
// Supported tags follow invopop/jsonschema: json names and omitempty,
// jsonschema:"required", jsonschema:"description=...", enum and bounds.
func FromType[T any]() (map[string]any, error) {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("parameters type must be a struct, got %s", typ)
	}

	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	m, err := toMap(r.Reflect(new(T)))
	if err != nil {
		return nil, fmt.Errorf("reflect schema: %w", err)
	}
	if m["type"] != "object" {
		return nil, fmt.Errorf("parameters type must be a struct, got schema type %v", m["type"])
	}

	out := map[string]any{"type": "object", "properties": map[string]any{}}
	if props, ok := m["properties"].(map[string]any); ok {
		out["properties"] = props
	}
	if req, ok := m["required"]; ok && req != nil {
		out["required"] = req
	}
	return out, nil
}

// Simple builds an object schema from property name to JSON type. Every
// property is required.
func Simple(props map[string]string) map[string]any {
	properties := make(map[string]any, len(props))
	required := make([]string, 0, len(props))
	for name, typ := range props {
		properties[name] = map[string]any{"type": typ}
		required = append(required, name)
	}
	return map[string]any{"type": "object", "properties": properties, "required": required}
}

func toMap(s *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}

// requiredKeys accepts both []string (hand-written schemas) and []any
// (schemas decoded from JSON).
func requiredKeys(s map[string]any) ([]string, error) {
	switch req := s["required"].(type) {
	case nil:
		return nil, nil
	case []string:
		return req, nil
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			name, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("required entries must be strings, got %T", v)
			}
			out = append(out, name)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("required must be a list, got %T", req)
	}
}

func isValidType(value any, expected string) bool {
	if value == nil {
		return expected == "" || expected == "null"
	}
	switch expected {
	case "null":
		return false
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // encoding/json decodes every number as float64
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		switch value.(type) {
		case []any, []string, []float64, []int:
			return true
		}
		return false
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
