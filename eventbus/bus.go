// Package eventbus implements synchronous, in-order delivery of agent
// lifecycle events to subscribed observers.
//
// Delivery contract:
//   - Handlers subscribed to a kind run in registration order
//   - Publish returns only after every handler for the event's kind ran
//   - A failing or panicking handler never stops delivery to the remaining
//     handlers and never reaches the publisher; the failure is logged and
//     re-published (best effort) as an error event
//   - The bus keeps no history; use Tee to record into a Thread
package eventbus

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/kforcode-ai/miniagent/core"
	"github.com/kforcode-ai/miniagent/logging"
)

// Handler observes one event. Returning an error marks the delivery as failed
// without affecting other handlers.
type Handler func(core.Event) error

// Publisher is the publishing side used by the agent run loop.
type Publisher interface {
	Publish(ev core.Event)
}

// Recorder receives every event published through a Tee. *core.Thread implements it.
type Recorder interface {
	Record(ev core.Event)
}

// Options configures a Bus.
type Options struct {
	// Logger receives diagnostics for failing handlers (defaults to NoOpLogger).
	Logger logging.Logger

	// OnHandlerError, if set, is called synchronously for every handler
	// failure after it has been logged. It cannot abort delivery.
	OnHandlerError func(ev core.Event, err error)
}

// Bus maps event kinds to ordered handler lists.
type Bus struct {
	mu       sync.RWMutex
	handlers map[core.EventKind][]Handler
	opts     Options
}

// New creates an empty bus.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Bus{handlers: make(map[core.EventKind][]Handler), opts: opts}
}

// Subscribe registers h for events of the given kind.
func (b *Bus) Subscribe(kind core.EventKind, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers h for every known event kind.
func (b *Bus) SubscribeAll(h Handler) {
	for _, kind := range core.AllEventKinds() {
		b.Subscribe(kind, h)
	}
}

// HandlerCount returns the number of handlers subscribed to kind.
func (b *Bus) HandlerCount(kind core.EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

// Publish delivers ev to every handler subscribed to its kind, in
// registration order, before returning.
func (b *Bus) Publish(ev core.Event) {
	b.publish(ev, nil)
}

// publish records (when rec is set) and delivers ev, then reports handler
// failures as error events through the same path.
func (b *Bus) publish(ev core.Event, rec Recorder) {
	if rec != nil {
		rec.Record(ev)
	}
	failures := b.deliver(ev)
	if ev.Kind == core.EventError {
		// failures while reporting failures are only logged
		return
	}
	for _, err := range failures {
		b.publish(core.NewErrorEvent(core.Scope{
			ThreadID:  ev.ThreadID,
			TurnID:    ev.TurnID,
			Agent:     ev.Agent,
			Iteration: ev.Iteration,
		}, core.ErrorDetail{
			Source:  core.ErrorSourceHandler,
			Message: err.Error(),
		}), rec)
	}
}

// Tee returns a Publisher that records each event into rec before delivering
// it to the bus subscribers.
func (b *Bus) Tee(rec Recorder) Publisher {
	return &tee{bus: b, rec: rec}
}

func (b *Bus) deliver(ev core.Event) []error {
	b.mu.RLock()
	hs := b.handlers[ev.Kind]
	b.mu.RUnlock()

	var failures []error
	for i, h := range hs {
		if err := b.invoke(h, ev); err != nil {
			b.opts.Logger.Warn("eventbus.handler.failed",
				"kind", string(ev.Kind),
				"event_id", ev.ID,
				"handler_index", i,
				"error", err.Error(),
			)
			if b.opts.OnHandlerError != nil {
				b.opts.OnHandlerError(ev, err)
			}
			failures = append(failures, err)
		}
	}
	return failures
}

// invoke runs one handler converting panics into errors.
func (b *Bus) invoke(h Handler, ev core.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerPanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	if err := h(ev); err != nil {
		return fmt.Errorf("%s handler: %w", ev.Kind, err)
	}
	return nil
}

// HandlerPanicError reports a recovered handler panic.
type HandlerPanicError struct {
	Value any
	Stack []byte
}

func (e *HandlerPanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

type tee struct {
	bus *Bus
	rec Recorder
}

func (t *tee) Publish(ev core.Event) { t.bus.publish(ev, t.rec) }
