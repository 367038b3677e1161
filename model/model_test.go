package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kforcode-ai/miniagent/core"
	"github.com/kforcode-ai/miniagent/retry"
)

func generate(c Client, req Request, onPartial func(Response)) (Response, error) {
	respCh, errCh := c.Generate(context.Background(), req)
	return Collect(respCh, errCh, onPartial)
}

func TestScriptedModel_ReplaysStepsThenRepeatsLast(t *testing.T) {
	m := NewScriptedModel(
		Step{ToolCalls: []core.ToolCall{{Name: "calculate", Arguments: `{"expression":"125*8"}`}}},
		Step{Text: "1000"},
	)

	first, err := generate(m, Request{}, nil)
	require.NoError(t, err)
	require.Len(t, first.ToolCalls, 1)
	assert.Equal(t, "call_1_1", first.ToolCalls[0].ID)
	assert.Equal(t, "tool_calls", first.FinishReason)

	second, err := generate(m, Request{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1000", second.Text)
	assert.Empty(t, second.ToolCalls)

	third, err := generate(m, Request{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1000", third.Text)
	assert.Equal(t, 3, m.Calls())
	assert.Len(t, m.Requests(), 3)
}

func TestScriptedModel_Streaming(t *testing.T) {
	m := NewScriptedModel(Step{Text: "hello brave new world"})

	var chunks []string
	final, err := generate(m, Request{Stream: true}, func(r Response) {
		chunks = append(chunks, r.Text)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello ", "brave ", "new ", "world"}, chunks)
	assert.Equal(t, strings.Join(chunks, ""), final.Text)
}

func TestScriptedModel_ErrorAfterChunks(t *testing.T) {
	boom := errors.New("connection reset")
	m := NewScriptedModel(Step{Chunks: []string{"par", "tial"}, Err: boom})

	var chunks int
	_, err := generate(m, Request{Stream: true}, func(Response) { chunks++ })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, chunks)
}

func TestScriptedModel_EmptyScript(t *testing.T) {
	_, err := generate(NewScriptedModel(), Request{}, nil)
	assert.Error(t, err)
}

func TestScriptFuncModel(t *testing.T) {
	m := NewScriptFuncModel(func(call int, req Request) Step {
		return Step{Text: fmt.Sprintf("call %d saw %d messages", call, len(req.Messages))}
	})

	resp, err := generate(m, Request{Messages: []core.Message{core.NewUserMessage("hi")}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "call 1 saw 1 messages", resp.Text)
	assert.Equal(t, "scripted", m.Info().Provider)
}

func TestCollect_IncompleteResponse(t *testing.T) {
	out := make(chan Response, 1)
	errCh := make(chan error)
	out <- Response{Partial: true, Text: "x"}
	close(out)
	close(errCh)

	_, err := Collect(out, errCh, nil)
	assert.ErrorIs(t, err, ErrIncompleteResponse)
}

func TestTransportError(t *testing.T) {
	cause := errors.New("502 bad gateway")
	err := NewTransportError("openai", cause)

	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "openai transport error")
	assert.Nil(t, NewTransportError("openai", nil))
	assert.False(t, IsTransportError(cause))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewTransportError("anthropic", errors.New("timeout"))))
	assert.True(t, IsRetryable(errors.New("anything else")))
	assert.False(t, IsRetryable(NewTransportError("anthropic", context.Canceled)))
	assert.False(t, IsRetryable(retry.Permanent(errors.New("bad request"))))
	assert.False(t, IsRetryable(nil))
}

func TestNewFunctionDefinition(t *testing.T) {
	def := NewFunctionDefinition("calculate", "Evaluate", map[string]any{"type": "object"})
	assert.Equal(t, "function", def.Type)
	assert.Equal(t, "calculate", def.Function.Name)
}
