// Package tool implements the tool calling subsystem: the Tool capability,
// adapters that turn plain Go functions into tools, and the Registry that
// resolves model requested calls with schema validated arguments under a
// retry policy.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/kforcode-ai/miniagent/internal/schema"
)

// Tool is a named capability the model can request.
//
// Implementations must be safe for concurrent use: the agent may dispatch
// several calls of one tool in the same phase.
type Tool interface {
	// Name returns the unique identifier (snake_case recommended).
	Name() string

	// Description tells the model when and how to use the tool.
	Description() string

	// Parameters returns an object JSON schema describing the accepted arguments.
	Parameters() map[string]any

	// Call executes the tool with already validated arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodePanic      = "PANIC"
)

var (
	// ErrDuplicateToolName is returned by Register when the name is taken.
	ErrDuplicateToolName = errors.New("duplicate tool name")
	// ErrInvalidSchema is returned by Register when the parameters schema is unusable.
	ErrInvalidSchema = errors.New("invalid tool schema")
	// ErrUnknownTool is returned by Execute when no tool has the requested name.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned by Execute when arguments do not match the schema.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = schema.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *ToolError) Unwrap() error { return e.cause }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// asToolError passes a *ToolError through and wraps anything else with code.
func asToolError(tool, code string, err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Tool: tool, Message: err.Error(), Code: code, cause: err}
}
