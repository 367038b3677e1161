package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherArgs struct {
	City  string `json:"city" jsonschema:"required,description=City name"`
	Units string `json:"units,omitempty" jsonschema:"enum=metric|imperial"`
	Days  int    `json:"days,omitempty"`
}

func TestFromType(t *testing.T) {
	s, err := FromType[weatherArgs]()
	require.NoError(t, err)

	assert.Equal(t, "object", s["type"])
	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")
	assert.Contains(t, props, "units")
	assert.Contains(t, props, "days")

	city := props["city"].(map[string]any)
	assert.Equal(t, "string", city["type"])
	assert.Equal(t, "City name", city["description"])

	assert.ElementsMatch(t, []any{"city"}, s["required"])
	require.NoError(t, Check(s))
}

func TestFromType_NonStruct(t *testing.T) {
	_, err := FromType[string]()
	assert.Error(t, err)

	_, err = FromType[*[]int]()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
			"y": map[string]any{"type": "string"},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, Validate(map[string]any{"x": 5}, s))
	assert.NoError(t, Validate(map[string]any{"x": float64(5), "extra": true}, s))

	err := Validate(map[string]any{}, s)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = Validate(map[string]any{"x": "not-int"}, s)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type integer")

	err = Validate(map[string]any{"x": 1.5}, s)
	assert.Error(t, err)
}

func TestValidate_StringRequired(t *testing.T) {
	s := Simple(map[string]string{"expression": "string"})
	assert.NoError(t, Validate(map[string]any{"expression": "1+1"}, s))
	assert.Error(t, Validate(map[string]any{}, s))
	assert.Error(t, Validate(map[string]any{"expression": 3.0}, s))
}

func TestValidate_Null(t *testing.T) {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a":    map[string]any{"type": "number"},
			"b":    map[string]any{"type": "number"},
			"none": map[string]any{"type": "null"},
			"any":  map[string]any{},
		},
		"required": []any{"a"},
	}

	err := Validate(map[string]any{"a": nil}, s)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "a", vErr.Field)
	assert.Contains(t, vErr.Message, "missing")

	err = Validate(map[string]any{"a": 1.0, "b": nil}, s)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "b", vErr.Field)

	assert.NoError(t, Validate(map[string]any{"a": 1.0, "none": nil, "any": nil}, s))
	assert.Error(t, Validate(map[string]any{"a": 1.0, "none": 0.0}, s))
}

func TestValidate_NilSchema(t *testing.T) {
	assert.NoError(t, Validate(map[string]any{"anything": 1}, nil))
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		schema  map[string]any
		wantErr bool
	}{
		{name: "nil", schema: nil},
		{name: "simple", schema: Simple(map[string]string{"a": "string", "b": "number"})},
		{name: "wrong root type", schema: map[string]any{"type": "array"}, wantErr: true},
		{name: "properties not object", schema: map[string]any{"type": "object", "properties": []any{}}, wantErr: true},
		{name: "unknown property type", schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"a": map[string]any{"type": "datetime"}},
		}, wantErr: true},
		{name: "required undeclared", schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{"a"},
		}, wantErr: true},
		{name: "required not a list", schema: map[string]any{"type": "object", "required": "a"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.schema)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
