package testutil

import (
	"sync"

	"github.com/kforcode-ai/miniagent/core"
)

// Collector records every event it is handed, in delivery order.
//
// Example:
//
//	c := testutil.NewCollector()
//	bus.SubscribeAll(c.Handle)
//	...
//	require.Equal(t, []core.EventKind{core.EventTurnStarted, ...}, c.Kinds())
type Collector struct {
	mu     sync.Mutex
	events []core.Event
}

// NewCollector creates an empty collector.
func NewCollector() *Collector { return &Collector{} }

// Handle records ev. It matches eventbus.Handler.
func (c *Collector) Handle(ev core.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Event(nil), c.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (c *Collector) Kinds() []core.EventKind {
	evs := c.Events()
	kinds := make([]core.EventKind, len(evs))
	for i, ev := range evs {
		kinds[i] = ev.Kind
	}
	return kinds
}

// OfKind returns the recorded events of the given kind.
func (c *Collector) OfKind(kind core.EventKind) []core.Event {
	var out []core.Event
	for _, ev := range c.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
