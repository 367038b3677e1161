// Package miniagent is a façade wiring an agent, its tool registry and an
// event bus with sensible defaults. Most applications:
//  1. create a MiniAgent with New (or FromConfig) and a model client
//  2. register tools
//  3. run turns synchronously (Run) or asynchronously with a per-turn
//     event stream (Invoke / InvokeSync)
//
// Finer control is available through the agent, tool and eventbus packages.
package miniagent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kforcode-ai/miniagent/agent"
	"github.com/kforcode-ai/miniagent/config"
	"github.com/kforcode-ai/miniagent/core"
	"github.com/kforcode-ai/miniagent/eventbus"
	"github.com/kforcode-ai/miniagent/logging"
	"github.com/kforcode-ai/miniagent/model"
	"github.com/kforcode-ai/miniagent/session"
	"github.com/kforcode-ai/miniagent/tool"
)

// ErrThreadBusy is returned by Invoke when the thread already has a turn in flight.
var ErrThreadBusy = errors.New("thread has a turn in flight")

// Options configures a MiniAgent.
type Options struct {
	Config      agent.Config
	Instruction *agent.Instruction

	// Registry defaults to an empty registry.
	Registry *tool.Registry
	// Bus defaults to a new bus.
	Bus *eventbus.Bus
	// Threads defaults to an in-memory store.
	Threads session.Store

	// Logger defaults to NoOp.
	Logger logging.Logger
	// LogEvents subscribes a logging.EventHandler to every event kind.
	LogEvents bool

	// MaxConcurrentInvocations bounds concurrent Invoke calls; 0 is unlimited.
	MaxConcurrentInvocations int
	// EventBufferSize is the per-invocation event channel buffer.
	EventBufferSize int
}

// MiniAgent aggregates an agent with its registry and bus.
type MiniAgent struct {
	agent    *agent.Agent
	registry *tool.Registry
	bus      *eventbus.Bus
	threads  session.Store
	opts     Options
	sem      *semaphore.Weighted

	mu    sync.RWMutex
	sinks map[string]*sink // thread id -> active invocation
}

type sink struct {
	ctx context.Context
	ch  chan core.Event
}

// New creates a MiniAgent around client.
func New(client model.Client, optFns ...func(o *Options)) (*MiniAgent, error) {
	opts := Options{
		Config:          agent.DefaultConfig(),
		Logger:          logging.NoOpLogger{},
		EventBufferSize: 64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Registry == nil {
		opts.Registry = tool.NewRegistry(func(o *tool.RegistryOptions) { o.Logger = opts.Logger })
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.New(func(o *eventbus.Options) { o.Logger = opts.Logger })
	}
	if opts.Threads == nil {
		opts.Threads = session.NewInMemoryStore()
	}
	if opts.EventBufferSize < 0 {
		opts.EventBufferSize = 0
	}

	a, err := agent.New(client, opts.Registry, func(o *agent.Options) {
		o.Config = opts.Config
		o.Instruction = opts.Instruction
		o.Bus = opts.Bus
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	m := &MiniAgent{
		agent:    a,
		registry: opts.Registry,
		bus:      opts.Bus,
		threads:  opts.Threads,
		opts:     opts,
		sinks:    make(map[string]*sink),
	}
	if opts.MaxConcurrentInvocations > 0 {
		m.sem = semaphore.NewWeighted(int64(opts.MaxConcurrentInvocations))
	}
	if opts.LogEvents {
		m.bus.SubscribeAll(logging.EventHandler(opts.Logger))
	}
	m.bus.SubscribeAll(m.forward)
	return m, nil
}

// FromConfig creates a MiniAgent from a loaded configuration file.
func FromConfig(cfg *config.Config, client model.Client, optFns ...func(o *Options)) (*MiniAgent, error) {
	ac, err := cfg.AgentConfig()
	if err != nil {
		return nil, err
	}
	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, err
	}
	return New(client, append([]func(o *Options){func(o *Options) {
		o.Config = ac
		o.Logger = logging.New(lc)
	}}, optFns...)...)
}

// Agent returns the underlying agent.
func (m *MiniAgent) Agent() *agent.Agent { return m.agent }

// Registry returns the tool registry.
func (m *MiniAgent) Registry() *tool.Registry { return m.registry }

// Bus returns the event bus.
func (m *MiniAgent) Bus() *eventbus.Bus { return m.bus }

// Threads returns the thread store.
func (m *MiniAgent) Threads() session.Store { return m.threads }

// Thread returns the stored thread for id, creating it on first use.
func (m *MiniAgent) Thread(id string) *core.Thread { return m.threads.Get(id) }

// RegisterTool adds t to the registry.
func (m *MiniAgent) RegisterTool(t tool.Tool) error { return m.registry.Register(t) }

// RegisterFunction adds a function tool to the registry.
func (m *MiniAgent) RegisterFunction(name, description string, parameters map[string]any, fn tool.Func) error {
	return m.registry.RegisterFunction(name, description, parameters, fn)
}

// Subscribe registers h for events of kind.
func (m *MiniAgent) Subscribe(kind core.EventKind, h eventbus.Handler) { m.bus.Subscribe(kind, h) }

// Run executes one turn synchronously.
func (m *MiniAgent) Run(ctx context.Context, thread *core.Thread, input string, optFns ...func(o *agent.RunOptions)) (string, error) {
	return m.agent.Run(ctx, thread, input, optFns...)
}

// RunThread executes one turn on the stored thread id.
func (m *MiniAgent) RunThread(ctx context.Context, threadID, input string, optFns ...func(o *agent.RunOptions)) (string, error) {
	return m.agent.Run(ctx, m.threads.Get(threadID), input, optFns...)
}

// Reply is the outcome of an asynchronous turn.
type Reply struct {
	Answer string
	Err    error
}

// Invoke starts a turn in the background. The event channel carries the
// turn's events and is closed when the turn ends; the reply channel then
// yields exactly one Reply.
func (m *MiniAgent) Invoke(ctx context.Context, thread *core.Thread, input string, optFns ...func(o *agent.RunOptions)) (<-chan core.Event, <-chan Reply, error) {
	if thread == nil {
		return nil, nil, errors.New("miniagent: thread is nil")
	}
	if m.sem != nil {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			return nil, nil, fmt.Errorf("miniagent: waiting for invocation slot: %w", err)
		}
	}

	s := &sink{ctx: ctx, ch: make(chan core.Event, m.opts.EventBufferSize)}
	m.mu.Lock()
	if _, busy := m.sinks[thread.ID]; busy {
		m.mu.Unlock()
		m.release()
		return nil, nil, fmt.Errorf("miniagent: %w: %s", ErrThreadBusy, thread.ID)
	}
	m.sinks[thread.ID] = s
	m.mu.Unlock()

	replies := make(chan Reply, 1)
	go func() {
		defer m.release()
		answer, err := m.agent.Run(ctx, thread, input, optFns...)

		m.mu.Lock()
		delete(m.sinks, thread.ID)
		m.mu.Unlock()
		close(s.ch)

		replies <- Reply{Answer: answer, Err: err}
		close(replies)
	}()
	return s.ch, replies, nil
}

// InvokeSync runs a turn through Invoke and returns its answer with every
// event it produced.
func (m *MiniAgent) InvokeSync(ctx context.Context, thread *core.Thread, input string, optFns ...func(o *agent.RunOptions)) (string, []core.Event, error) {
	events, replies, err := m.Invoke(ctx, thread, input, optFns...)
	if err != nil {
		return "", nil, err
	}
	var collected []core.Event
	for ev := range events {
		collected = append(collected, ev)
	}
	reply := <-replies
	return reply.Answer, collected, reply.Err
}

// forward delivers events to the invocation driving their thread. Events
// are dropped once the invocation's context is done.
func (m *MiniAgent) forward(ev core.Event) error {
	m.mu.RLock()
	s, ok := m.sinks[ev.ThreadID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	select {
	case s.ch <- ev:
	case <-s.ctx.Done():
	}
	return nil
}

func (m *MiniAgent) release() {
	if m.sem != nil {
		m.sem.Release(1)
	}
}
