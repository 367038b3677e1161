package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvent_Constructors(t *testing.T) {
	scope := Scope{ThreadID: "th-1", TurnID: "turn-1", Agent: "TestAgent", Iteration: 2}

	e := NewEvent(EventAgentThinking, scope)
	if e.ID == "" || e.Timestamp.IsZero() || e.ThreadID != "th-1" || e.TurnID != "turn-1" || e.Iteration != 2 {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}

	started := NewToolStartedEvent(scope, ToolCall{ID: "c1", Name: "calculate", Arguments: `{"expression":"1+1"}`})
	assert.Equal(t, EventToolExecutionStarted, started.Kind)
	assert.Equal(t, "calculate", started.Tool.Name)
	assert.True(t, started.IsToolEvent())

	finished := NewToolFinishedEvent(scope, ToolEvent{CallID: "c1", Name: "calculate", Success: true, Result: 2, Attempts: 1})
	assert.Equal(t, EventToolExecutionFinished, finished.Kind)
	assert.Equal(t, 2, finished.Tool.Result)

	errEv := NewErrorEvent(scope, ErrorDetail{Source: ErrorSourceModel, Message: "boom", Attempt: 1, Retrying: true, Delay: time.Second})
	assert.Equal(t, EventError, errEv.Kind)
	assert.False(t, errEv.IsTerminal())

	terminal := NewErrorEvent(scope, ErrorDetail{Source: ErrorSourceTurn, Message: "model unavailable"})
	assert.True(t, terminal.IsTerminal())

	done := NewTurnCompletedEvent(scope, "1000")
	assert.True(t, done.IsTerminal())
	assert.Equal(t, "1000", done.Content)
}

func TestEventKinds(t *testing.T) {
	kinds := AllEventKinds()
	assert.Len(t, kinds, 7)
	assert.Equal(t, EventTurnStarted, kinds[0])
	assert.Equal(t, EventError, kinds[len(kinds)-1])

	for _, k := range kinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, EventKind("bogus").Valid())

	// mutation of the returned slice must not leak
	kinds[0] = "changed"
	assert.Equal(t, EventTurnStarted, AllEventKinds()[0])
}

func TestEvent_IDUniqueness(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Error("Expected unique IDs")
	}
}
