package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kforcode-ai/miniagent/retry"
)

func TestFunctionTool_Success(t *testing.T) {
	sumTool := NewFunctionTool("sum", "Add numbers",
		SimpleSchema(map[string]string{"a": "number", "b": "number"}),
		func(_ context.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		})

	result, err := sumTool.Call(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
	assert.Equal(t, "sum", sumTool.Name())
	assert.Equal(t, "Add numbers", sumTool.Description())
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
		"required": []any{"a"},
	}
	tTool := NewFunctionTool("test", "Test", params, func(context.Context, map[string]any) (any, error) {
		return 0, nil
	})

	_, err := tTool.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	boom := errors.New("boom")
	execTool := NewFunctionTool("fail", "Fails", SimpleSchema(nil), func(context.Context, map[string]any) (any, error) {
		return nil, boom
	})

	_, err := execTool.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.ErrorIs(t, err, boom)
}

func TestFunctionTool_ForwardsToolError(t *testing.T) {
	custom := NewToolError("quota", "limit reached", "RATE_LIMITED")
	qTool := NewFunctionTool("quota", "Quota", SimpleSchema(nil), func(context.Context, map[string]any) (any, error) {
		return nil, custom
	})

	_, err := qTool.Call(context.Background(), nil)
	assert.Same(t, custom, err)
}

type forecastArgs struct {
	City string `json:"city" jsonschema:"required,description=City name"`
	Days int    `json:"days,omitempty"`
}

func TestNewTypedTool(t *testing.T) {
	forecast, err := NewTypedTool("forecast", "Forecast", func(_ context.Context, a forecastArgs) (any, error) {
		return map[string]any{"city": a.City, "days": a.Days}, nil
	})
	require.NoError(t, err)

	props := forecast.Parameters()["properties"].(map[string]any)
	assert.Contains(t, props, "city")
	assert.Contains(t, props, "days")

	out, err := forecast.Call(context.Background(), map[string]any{"city": "Berlin", "days": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Berlin", "days": 3}, out)

	_, err = forecast.Call(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestNewTypedTool_DecodeFailureIsPermanent(t *testing.T) {
	type strictArgs struct {
		Tags []int `json:"tags"`
	}
	strict, err := NewTypedTool("strict", "Strict", func(_ context.Context, a strictArgs) (any, error) {
		return len(a.Tags), nil
	})
	require.NoError(t, err)

	_, err = strict.Call(context.Background(), map[string]any{"tags": []any{"x"}})
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestNewTypedTool_NonStructArgs(t *testing.T) {
	_, err := NewTypedTool("echo", "Echo", func(_ context.Context, s string) (any, error) { return s, nil })
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")

	plain := &ToolError{Tool: "demo", Message: "x"}
	assert.Equal(t, "tool error in demo: x", plain.Error())
}
