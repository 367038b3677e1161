package core

import (
	"sync"
	"time"
)

// Thread is the ordered conversation state shared across turns. It owns the
// message transcript plus the events recorded for the conversation's lifetime.
//
// Contract:
//   - Messages are append-only; a stored message is never mutated
//   - Messages and Events return defensive copies, so repeated reads without
//     an intervening Append yield identical sequences
//   - Events are only added through Record, which the event bus tee calls
//   - One turn drives a Thread at a time; the mutex only makes reads from
//     observers safe while that turn is in flight
type Thread struct {
	ID       string            `json:"id"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
	Metadata map[string]string `json:"metadata"`

	mu       sync.RWMutex
	messages []Message
	events   []Event
}

// NewThread creates an empty thread with a fresh id.
func NewThread() *Thread {
	return NewThreadWithID(NewID())
}

// NewThreadWithID creates an empty thread with the given id.
func NewThreadWithID(id string) *Thread {
	now := time.Now()
	return &Thread{ID: id, Created: now, Updated: now, Metadata: map[string]string{}}
}

// Append adds msg to the end of the transcript.
func (t *Thread) Append(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg.clone())
	t.Updated = time.Now()
}

// Messages returns a snapshot of the transcript at call time.
func (t *Thread) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.clone()
	}
	return out
}

// Len returns the number of messages.
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// LastAssistantMessage returns the most recent assistant message, if any.
func (t *Thread) LastAssistantMessage() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == RoleAssistant {
			return t.messages[i].clone(), true
		}
	}
	return Message{}, false
}

// Record stores a published event. It implements eventbus.Recorder.
func (t *Thread) Record(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

// Events returns a snapshot of all recorded events.
func (t *Thread) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	events := make([]Event, len(t.events))
	copy(events, t.events)
	return events
}

// EventsForTurn returns the recorded events belonging to one turn.
func (t *Thread) EventsForTurn(turnID string) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var res []Event
	for _, ev := range t.events {
		if ev.TurnID == turnID {
			res = append(res, ev)
		}
	}
	return res
}

// Clone returns a deep copy that can diverge independently.
func (t *Thread) Clone() *Thread {
	t.mu.RLock()
	defer t.mu.RUnlock()
	clone := &Thread{ID: t.ID, Created: t.Created, Updated: t.Updated, Metadata: make(map[string]string, len(t.Metadata))}
	for k, v := range t.Metadata {
		clone.Metadata[k] = v
	}
	clone.messages = make([]Message, len(t.messages))
	for i, m := range t.messages {
		clone.messages[i] = m.clone()
	}
	clone.events = make([]Event, len(t.events))
	copy(clone.events, t.events)
	return clone
}
