package tool

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/kforcode-ai/miniagent/internal/schema"
	"github.com/kforcode-ai/miniagent/retry"
)

// Func is the signature wrapped by FunctionTool.
type Func func(ctx context.Context, args map[string]any) (any, error)

// FunctionTool exposes a plain Go function as a Tool.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use. Errors returned by the function are normalized to
// *ToolError with code EXECUTION_ERROR unless the function already returned a
// *ToolError, which is forwarded unchanged.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          Func
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and function.
//
// Example:
//
//	sum := tool.NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  tool.SimpleSchema(map[string]string{"a": "number", "b": "number"}),
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(name, description string, parameters map[string]any, fn Func) *FunctionTool {
	return &FunctionTool{name: name, description: description, parameters: parameters, fn: fn}
}

// Name returns the tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the description shown to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args then invokes the wrapped function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := schema.Validate(args, t.parameters); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
			cause:   err,
		}
	}
	if t.fn == nil {
		return nil, NewToolError(t.name, "no implementation", CodeExecution)
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if retry.IsPermanent(err) {
			return nil, err
		}
		return nil, asToolError(t.name, CodeExecution, err)
	}
	return result, nil
}

// NewTypedTool builds a tool whose schema is reflected from Args and whose
// arguments are decoded into an Args value before fn runs.
//
// Example:
//
//	type WeatherArgs struct {
//	  City string `json:"city" jsonschema:"required,description=City name"`
//	}
//
//	weather, err := tool.NewTypedTool("get_weather", "Current weather for a city",
//	  func(ctx context.Context, a WeatherArgs) (any, error) { return lookup(a.City) })
func NewTypedTool[Args any](name, description string, fn func(ctx context.Context, args Args) (any, error)) (*FunctionTool, error) {
	params, err := schema.FromType[Args]()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, name, err)
	}

	return NewFunctionTool(name, description, params, func(ctx context.Context, raw map[string]any) (any, error) {
		var args Args
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &args,
			TagName:          "json",
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(raw); err != nil {
			// decoding is deterministic; retrying cannot help
			return nil, retry.Permanent(&ToolError{Tool: name, Message: err.Error(), Code: CodeValidation, cause: err})
		}
		return fn(ctx, args)
	}), nil
}

// SimpleSchema builds an object schema from property name to JSON type with
// every property required.
func SimpleSchema(props map[string]string) map[string]any {
	return schema.Simple(props)
}
