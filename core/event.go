package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind tags an Event. The set is closed; see AllEventKinds.
type EventKind string

const (
	EventTurnStarted           EventKind = "turn_started"
	EventAgentThinking         EventKind = "agent_thinking"
	EventStreamChunk           EventKind = "stream_chunk"
	EventToolExecutionStarted  EventKind = "tool_execution_started"
	EventToolExecutionFinished EventKind = "tool_execution_finished"
	EventTurnCompleted         EventKind = "turn_completed"
	EventError                 EventKind = "error"
)

var allEventKinds = []EventKind{
	EventTurnStarted,
	EventAgentThinking,
	EventStreamChunk,
	EventToolExecutionStarted,
	EventToolExecutionFinished,
	EventTurnCompleted,
	EventError,
}

// AllEventKinds returns every event kind in lifecycle order.
func AllEventKinds() []EventKind {
	return append([]EventKind(nil), allEventKinds...)
}

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	for _, known := range allEventKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Error sources carried by ErrorDetail.Source.
const (
	ErrorSourceModel   = "model"
	ErrorSourceTool    = "tool"
	ErrorSourceHandler = "handler"
	ErrorSourceTurn    = "turn"
)

// ToolEvent is the payload of tool_execution_started / tool_execution_finished events.
// Result fields are only populated on finished events.
type ToolEvent struct {
	CallID    string        `json:"call_id"`
	Name      string        `json:"name"`
	Arguments string        `json:"arguments,omitempty"`
	Success   bool          `json:"success"`
	Result    any           `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// ErrorDetail is the payload of error events.
type ErrorDetail struct {
	Source   string        `json:"source"`
	Message  string        `json:"message"`
	Tool     string        `json:"tool,omitempty"`
	Attempt  int           `json:"attempt,omitempty"`
	Retrying bool          `json:"retrying"`
	Delay    time.Duration `json:"delay,omitempty"`
}

// Event is an immutable lifecycle notification. Exactly one payload field
// matching Kind is set: Content for stream chunks, thinking and completion
// text, Tool for tool events, Err for error events.
type Event struct {
	ID        string       `json:"id"`
	Kind      EventKind    `json:"kind"`
	ThreadID  string       `json:"thread_id,omitempty"`
	TurnID    string       `json:"turn_id,omitempty"`
	Agent     string       `json:"agent,omitempty"`
	Iteration int          `json:"iteration,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Content   string       `json:"content,omitempty"`
	Tool      *ToolEvent   `json:"tool,omitempty"`
	Err       *ErrorDetail `json:"error,omitempty"`
}

// Scope carries the correlation fields stamped onto every event of a turn.
type Scope struct {
	ThreadID  string
	TurnID    string
	Agent     string
	Iteration int
}

// NewEvent creates a bare event of the given kind bound to scope.
// Prefer the kind specific constructors below.
func NewEvent(kind EventKind, scope Scope) Event {
	return Event{
		ID:        NewID(),
		Kind:      kind,
		ThreadID:  scope.ThreadID,
		TurnID:    scope.TurnID,
		Agent:     scope.Agent,
		Iteration: scope.Iteration,
		Timestamp: time.Now().UTC(),
	}
}

// NewTurnStartedEvent carries the user input that opened the turn.
func NewTurnStartedEvent(scope Scope, input string) Event {
	e := NewEvent(EventTurnStarted, scope)
	e.Content = input
	return e
}

// NewThinkingEvent is published before every model call.
func NewThinkingEvent(scope Scope, note string) Event {
	e := NewEvent(EventAgentThinking, scope)
	e.Content = note
	return e
}

// NewStreamChunkEvent carries one partial content chunk.
func NewStreamChunkEvent(scope Scope, chunk string) Event {
	e := NewEvent(EventStreamChunk, scope)
	e.Content = chunk
	return e
}

// NewToolStartedEvent announces a tool dispatch.
func NewToolStartedEvent(scope Scope, call ToolCall) Event {
	e := NewEvent(EventToolExecutionStarted, scope)
	e.Tool = &ToolEvent{CallID: call.ID, Name: call.Name, Arguments: call.Arguments}
	return e
}

// NewToolFinishedEvent records the outcome of a tool dispatch.
func NewToolFinishedEvent(scope Scope, payload ToolEvent) Event {
	e := NewEvent(EventToolExecutionFinished, scope)
	e.Tool = &payload
	return e
}

// NewTurnCompletedEvent carries the final answer.
func NewTurnCompletedEvent(scope Scope, answer string) Event {
	e := NewEvent(EventTurnCompleted, scope)
	e.Content = answer
	return e
}

// NewErrorEvent wraps a failure description.
func NewErrorEvent(scope Scope, detail ErrorDetail) Event {
	e := NewEvent(EventError, scope)
	e.Err = &detail
	return e
}

// NewID generates a new unique identifier for events, messages and threads.
func NewID() string { return uuid.NewString() }

// IsToolEvent reports whether the event belongs to the tool lifecycle.
func (e Event) IsToolEvent() bool {
	return e.Kind == EventToolExecutionStarted || e.Kind == EventToolExecutionFinished
}

// IsTerminal reports whether the event ends a turn.
func (e Event) IsTerminal() bool {
	if e.Kind == EventTurnCompleted {
		return true
	}
	return e.Kind == EventError && e.Err != nil && e.Err.Source == ErrorSourceTurn
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
