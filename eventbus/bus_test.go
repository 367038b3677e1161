package eventbus

import (
	"errors"
	"sync"
	"testing"

	"github.com/kforcode-ai/miniagent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	b := New()
	var order []string
	b.Subscribe(core.EventStreamChunk, func(ev core.Event) error { order = append(order, "first:"+ev.Content); return nil })
	b.Subscribe(core.EventStreamChunk, func(ev core.Event) error { order = append(order, "second:"+ev.Content); return nil })
	b.Subscribe(core.EventTurnCompleted, func(core.Event) error { order = append(order, "other"); return nil })

	b.Publish(core.NewStreamChunkEvent(core.Scope{}, "a"))
	b.Publish(core.NewStreamChunkEvent(core.Scope{}, "b"))

	assert.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, order)
}

func TestBus_SubscribeAll(t *testing.T) {
	b := New()
	var kinds []core.EventKind
	b.SubscribeAll(func(ev core.Event) error { kinds = append(kinds, ev.Kind); return nil })

	for _, k := range core.AllEventKinds() {
		assert.Equal(t, 1, b.HandlerCount(k))
	}

	b.Publish(core.NewTurnStartedEvent(core.Scope{}, "hi"))
	b.Publish(core.NewTurnCompletedEvent(core.Scope{}, "bye"))
	assert.Equal(t, []core.EventKind{core.EventTurnStarted, core.EventTurnCompleted}, kinds)
}

func TestBus_FailingHandlerDoesNotAbortDelivery(t *testing.T) {
	var reported []error
	b := New(func(o *Options) {
		o.OnHandlerError = func(_ core.Event, err error) { reported = append(reported, err) }
	})

	var delivered []string
	var errorEvents []core.Event
	b.Subscribe(core.EventStreamChunk, func(core.Event) error { return errors.New("observer broke") })
	b.Subscribe(core.EventStreamChunk, func(core.Event) error { panic("observer exploded") })
	b.Subscribe(core.EventStreamChunk, func(ev core.Event) error { delivered = append(delivered, ev.Content); return nil })
	b.Subscribe(core.EventError, func(ev core.Event) error { errorEvents = append(errorEvents, ev); return nil })

	require.NotPanics(t, func() {
		b.Publish(core.NewStreamChunkEvent(core.Scope{TurnID: "t1"}, "chunk"))
	})

	assert.Equal(t, []string{"chunk"}, delivered)
	require.Len(t, reported, 2)
	var panicErr *HandlerPanicError
	assert.ErrorAs(t, reported[1], &panicErr)

	require.Len(t, errorEvents, 2)
	for _, ev := range errorEvents {
		assert.Equal(t, core.ErrorSourceHandler, ev.Err.Source)
		assert.Equal(t, "t1", ev.TurnID)
	}
	assert.Contains(t, errorEvents[0].Err.Message, "observer broke")
}

func TestBus_FailingErrorHandlerIsNotRepublished(t *testing.T) {
	b := New()
	calls := 0
	b.Subscribe(core.EventError, func(core.Event) error { calls++; return errors.New("again") })

	b.Publish(core.NewErrorEvent(core.Scope{}, core.ErrorDetail{Source: core.ErrorSourceModel, Message: "x"}))
	assert.Equal(t, 1, calls)
}

type recorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *recorder) Record(ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestBus_TeeRecordsBeforeDelivery(t *testing.T) {
	b := New()
	rec := &recorder{}
	var seenRecorded int
	b.Subscribe(core.EventTurnStarted, func(core.Event) error {
		seenRecorded = len(rec.events)
		return errors.New("fail")
	})

	pub := b.Tee(rec)
	pub.Publish(core.NewTurnStartedEvent(core.Scope{}, "hi"))

	assert.Equal(t, 1, seenRecorded)
	require.Len(t, rec.events, 2)
	assert.Equal(t, core.EventTurnStarted, rec.events[0].Kind)
	assert.Equal(t, core.EventError, rec.events[1].Kind)
}

func TestBus_TeeIntoThread(t *testing.T) {
	b := New()
	th := core.NewThread()
	b.Tee(th).Publish(core.NewThinkingEvent(core.Scope{ThreadID: th.ID}, ""))
	b.Publish(core.NewThinkingEvent(core.Scope{ThreadID: th.ID}, ""))

	assert.Len(t, th.Events(), 1)
}

func TestBus_NilHandlerIgnored(t *testing.T) {
	b := New()
	b.Subscribe(core.EventError, nil)
	assert.Equal(t, 0, b.HandlerCount(core.EventError))
}
