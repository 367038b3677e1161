package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/kforcode-ai/miniagent/core"
	"github.com/kforcode-ai/miniagent/retry"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewFunctionDefinition is shorthand for a "function" ToolDefinition.
func NewFunctionDefinition(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{
		Type:     "function",
		Function: FunctionDefinition{Name: name, Description: description, Parameters: parameters},
	}
}

// Request is the provider neutral model input: the full thread history plus
// the system prompt and the tools on offer.
type Request struct {
	SystemPrompt string           `json:"system_prompt,omitempty"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is one item of a generation.
//
// Partial responses carry a text delta in Text. Exactly one final response
// (Partial == false) closes a successful generation; it carries the complete
// text and every requested tool call.
type Response struct {
	ID           string          `json:"id,omitempty"`
	Partial      bool            `json:"partial"`
	Text         string          `json:"text,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Client is the capability the agent drives to generate responses.
//
// Generate must be callable repeatedly within one turn. The response channel
// is closed when the generation ends; a failure is reported on the error
// channel, which is closed afterwards. Consumers read responses until the
// channel closes and then read the error channel.
type Client interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrIncompleteResponse reports a generation that ended without a final response.
var ErrIncompleteResponse = errors.New("model ended without a final response")

// TransportError marks a failure talking to the model provider. It is the
// distinguishable error kind the retry policy is applied to.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a TransportError for provider.
func NewTransportError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Provider: provider, Err: err}
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRetryable reports whether a failed generation may be attempted again.
// Cancellations and errors wrapped with retry.Permanent are never retryable.
func IsRetryable(err error) bool {
	return retry.Retryable(err)
}

// Collect drains a generation and returns the final response. Partial
// responses are passed to onPartial when it is non-nil.
func Collect(respCh <-chan Response, errCh <-chan error, onPartial func(Response)) (Response, error) {
	var (
		final    Response
		gotFinal bool
	)
	for resp := range respCh {
		if resp.Partial {
			if onPartial != nil {
				onPartial(resp)
			}
			continue
		}
		final = resp
		gotFinal = true
	}
	if err, ok := <-errCh; ok && err != nil {
		return Response{}, err
	}
	if !gotFinal {
		return Response{}, ErrIncompleteResponse
	}
	return final, nil
}
