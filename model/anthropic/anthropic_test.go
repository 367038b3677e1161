package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kforcode-ai/miniagent/core"
	"github.com/kforcode-ai/miniagent/model"
)

func TestBuildMessages_GroupsToolResults(t *testing.T) {
	a := core.ToolCall{ID: "tu_1", Name: "get_weather", Arguments: `{"city":"Paris"}`}
	b := core.ToolCall{ID: "tu_2", Name: "get_datetime", Arguments: ""}
	msgs := buildMessages([]core.Message{
		core.NewSystemMessage("ignored here"),
		core.NewUserMessage("weather and time?"),
		core.NewAssistantMessage("checking", []core.ToolCall{a, b}),
		core.NewToolMessage(a, "sunny", false),
		core.NewToolMessage(b, "Error: boom", true),
		core.NewAssistantMessage("sunny, noon", nil),
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Len(t, msgs[1].Content, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "tu_1", msgs[2].Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[3].Role)
}

func TestSystemBlocks(t *testing.T) {
	blocks := systemBlocks(model.Request{
		SystemPrompt: "be helpful",
		Messages:     []core.Message{core.NewSystemMessage("extra"), core.NewUserMessage("hi")},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "be helpful", blocks[0].Text)
	assert.Equal(t, "extra", blocks[1].Text)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{model.NewFunctionDefinition("calculate", "Evaluate math", map[string]any{
		"type":       "object",
		"properties": map[string]any{"expression": map[string]any{"type": "string"}},
		"required":   []any{"expression"},
	})})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "calculate", tools[0].OfTool.Name)
	assert.Equal(t, []string{"expression"}, tools[0].OfTool.InputSchema.Required)
}

func TestToResponse(t *testing.T) {
	msg := &anthropic.Message{
		ID:         "msg_1",
		StopReason: anthropic.StopReasonToolUse,
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "let me check"},
			{Type: "tool_use", ID: "tu_1", Name: "calculate", Input: []byte(`{"expression":"1+1"}`)},
		},
	}

	resp := toResponse(msg)
	assert.Equal(t, "let me check", resp.Text)
	assert.Equal(t, "tool_use", resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, core.ToolCall{ID: "tu_1", Name: "calculate", Arguments: `{"expression":"1+1"}`}, resp.ToolCalls[0])
}
