package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kforcode-ai/miniagent/core"
	"github.com/kforcode-ai/miniagent/eventbus"
	"github.com/kforcode-ai/miniagent/logging"
	"github.com/kforcode-ai/miniagent/model"
	"github.com/kforcode-ai/miniagent/retry"
	"github.com/kforcode-ai/miniagent/tool"
)

const tracerName = "github.com/kforcode-ai/miniagent/agent"

// Agent drives turns: it alternates model calls and tool phases until the
// model answers without requesting tools, the iteration budget runs out, or
// the context is cancelled.
//
// An Agent is safe for concurrent use across different threads. One thread
// must only be driven by one turn at a time.
type Agent struct {
	client      model.Client
	registry    *tool.Registry
	cfg         Config
	instruction Instruction
	bus         *eventbus.Bus
	logger      logging.Logger
	tracer      trace.Tracer
}

// New creates an Agent. registry may be nil for a tool-less agent.
func New(client model.Client, registry *tool.Registry, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{Config: DefaultConfig()}
	for _, fn := range optFns {
		fn(&opts)
	}

	if client == nil {
		return nil, fmt.Errorf("%w: model client is nil", ErrInvalidConfig)
	}
	cfg := opts.Config
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.RetryPolicy == nil {
		cfg.RetryPolicy = retry.None()
	}
	if cfg.ToolRetryPolicy == nil {
		cfg.ToolRetryPolicy = cfg.RetryPolicy
	}

	instruction := NewInstructionFromText(cfg.SystemPrompt)
	if opts.Instruction != nil {
		instruction = *opts.Instruction
	}
	if err := instruction.validate(); err != nil {
		return nil, fmt.Errorf("%w: system prompt: %w", ErrInvalidConfig, err)
	}

	logger := logging.OrNoOp(opts.Logger)
	bus := opts.Bus
	if bus == nil {
		bus = eventbus.New(func(o *eventbus.Options) { o.Logger = logger })
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Agent{
		client:      client,
		registry:    registry,
		cfg:         cfg,
		instruction: instruction,
		bus:         bus,
		logger:      logger,
		tracer:      tracer,
	}, nil
}

// Name returns the configured agent name.
func (a *Agent) Name() string { return a.cfg.Name }

// Config returns the configuration snapshot.
func (a *Agent) Config() Config { return a.cfg }

// Bus returns the bus the agent publishes to.
func (a *Agent) Bus() *eventbus.Bus { return a.bus }

// Run executes one turn: it appends input to thread as a user message and
// loops until a final answer, which it returns.
//
// Terminal failures are *RunError values matching ErrModelUnavailable,
// ErrIterationLimitExceeded or ErrCancelled. A failure to resolve the system
// prompt is returned before the thread is touched.
func (a *Agent) Run(ctx context.Context, thread *core.Thread, input string, optFns ...func(o *RunOptions)) (string, error) {
	if thread == nil {
		return "", errors.New("agent: thread is nil")
	}
	ro := RunOptions{Stream: a.cfg.StreamByDefault, MaxIterations: a.cfg.MaxIterations}
	for _, fn := range optFns {
		fn(&ro)
	}

	system, err := a.instruction.Resolve(ctx, a.cfg.Name, thread)
	if err != nil {
		return "", fmt.Errorf("agent: resolve system prompt: %w", err)
	}

	t := &turn{
		agent:  a,
		thread: thread,
		id:     core.NewID(),
		input:  input,
		stream: ro.Stream,
		budget: core.NewIterationBudget(ro.MaxIterations),
		system: system,
		pub:    a.bus.Tee(thread),
	}

	ctx, span := a.tracer.Start(ctx, "agent.turn", trace.WithAttributes(
		attribute.String("agent.name", a.cfg.Name),
		attribute.String("thread.id", thread.ID),
		attribute.String("turn.id", t.id),
		attribute.Bool("stream", ro.Stream),
		attribute.Int("max_iterations", t.budget.Max()),
	))
	defer span.End()

	start := time.Now()
	a.logger.Debug("agent.run.start", "agent", a.cfg.Name, "thread_id", thread.ID, "turn_id", t.id)

	answer, err := t.run(ctx)

	span.SetAttributes(attribute.Int("iterations", t.budget.Used()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Warn("agent.run.failed", "agent", a.cfg.Name, "turn_id", t.id,
			"iterations", t.budget.Used(), "duration_ms", time.Since(start).Milliseconds(), "error", err.Error())
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	a.logger.Debug("agent.run.complete", "agent", a.cfg.Name, "turn_id", t.id,
		"iterations", t.budget.Used(), "duration_ms", time.Since(start).Milliseconds())
	return answer, nil
}

// turn holds the state of one Run call.
type turn struct {
	agent  *Agent
	thread *core.Thread
	id     string
	input  string
	stream bool
	budget *core.IterationBudget
	system string
	pub    eventbus.Publisher
}

func (t *turn) scope() core.Scope {
	return core.Scope{
		ThreadID:  t.thread.ID,
		TurnID:    t.id,
		Agent:     t.agent.cfg.Name,
		Iteration: t.budget.Used(),
	}
}

// run is the turn state machine:
//
//	AWAITING_MODEL -> INTERPRETING_RESPONSE -> EXECUTING_TOOLS -> AWAITING_MODEL
//	                                        \-> DONE
func (t *turn) run(ctx context.Context) (string, error) {
	t.thread.Append(core.NewUserMessage(t.input))
	t.pub.Publish(core.NewTurnStartedEvent(t.scope(), t.input))

	for {
		if err := ctx.Err(); err != nil {
			return "", t.fail(KindCancelled, err)
		}
		if err := t.budget.Consume(); err != nil {
			return "", t.fail(KindIterationLimitExceeded, err)
		}

		t.pub.Publish(core.NewThinkingEvent(t.scope(), t.agent.client.Info().Name))
		resp, err := t.callModel(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", t.fail(KindCancelled, ctxErr)
			}
			return "", t.fail(KindModelUnavailable, err)
		}

		if len(resp.ToolCalls) == 0 {
			t.thread.Append(core.NewAssistantMessage(resp.Text, nil))
			t.pub.Publish(core.NewTurnCompletedEvent(t.scope(), resp.Text))
			return resp.Text, nil
		}

		calls := withCallIDs(resp.ToolCalls)
		t.thread.Append(core.NewAssistantMessage(resp.Text, calls))
		t.executeTools(ctx, calls)
	}
}

// withCallIDs returns a copy of calls in which every missing ID is generated.
func withCallIDs(calls []core.ToolCall) []core.ToolCall {
	out := make([]core.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = core.NewID()
		}
		out[i] = c
	}
	return out
}

// fail publishes the terminal error event and builds the RunError.
func (t *turn) fail(kind RunErrorKind, cause error) error {
	runErr := &RunError{
		Kind:       kind,
		Thread:     t.thread,
		TurnID:     t.id,
		Iterations: t.budget.Used(),
		Err:        cause,
	}
	t.pub.Publish(core.NewErrorEvent(t.scope(), core.ErrorDetail{
		Source:  core.ErrorSourceTurn,
		Message: runErr.Error(),
	}))
	return runErr
}

// callModel performs one iteration's model call under the retry policy.
// Stream chunks are published as they arrive; a failed attempt's chunks are
// discarded with it.
func (t *turn) callModel(ctx context.Context) (model.Response, error) {
	a := t.agent
	req := model.Request{
		SystemPrompt: t.system,
		Messages:     t.thread.Messages(),
		Tools:        a.toolDefinitions(),
		Stream:       t.stream,
	}
	info := a.client.Info()

	var final model.Response
	attempts, err := retry.Do(ctx, a.cfg.RetryPolicy, func(ctx context.Context, attempt int) error {
		ctx, span := a.tracer.Start(ctx, "agent.model_call", trace.WithAttributes(
			attribute.String("model.name", info.Name),
			attribute.String("model.provider", info.Provider),
			attribute.Int("attempt", attempt),
			attribute.Int("iteration", t.budget.Used()),
		))
		defer span.End()

		start := time.Now()
		var buf strings.Builder
		respCh, errCh := a.client.Generate(ctx, req)
		resp, err := model.Collect(respCh, errCh, func(r model.Response) {
			if r.Text == "" {
				return
			}
			buf.WriteString(r.Text)
			if t.stream {
				t.pub.Publish(core.NewStreamChunkEvent(t.scope(), r.Text))
			}
		})
		logging.LogModelCall(a.logger, info.Name, attempt, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if resp.Text == "" && buf.Len() > 0 {
			resp.Text = buf.String()
		}
		final = resp
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		t.pub.Publish(core.NewErrorEvent(t.scope(), core.ErrorDetail{
			Source:   core.ErrorSourceModel,
			Message:  err.Error(),
			Attempt:  attempt,
			Retrying: true,
			Delay:    delay,
		}))
	})
	if err != nil {
		if ctx.Err() == nil {
			t.pub.Publish(core.NewErrorEvent(t.scope(), core.ErrorDetail{
				Source:  core.ErrorSourceModel,
				Message: err.Error(),
				Attempt: attempts,
			}))
		}
		return model.Response{}, err
	}
	return final, nil
}

func (a *Agent) toolDefinitions() []model.ToolDefinition {
	if a.registry == nil {
		return nil
	}
	defs := a.registry.Definitions()
	out := make([]model.ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = model.NewFunctionDefinition(d.Name, d.Description, d.Parameters)
	}
	return out
}
