package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kforcode-ai/miniagent/core"
	"github.com/kforcode-ai/miniagent/eventbus"
	"github.com/kforcode-ai/miniagent/tool"
)

// errNotDispatched marks tool calls skipped because the turn was cancelled.
var errNotDispatched = errors.New("tool call not dispatched: turn cancelled")

// lockedPublisher serializes publishing from concurrent tool goroutines so
// observers never see two events at once.
type lockedPublisher struct {
	mu  sync.Mutex
	pub eventbus.Publisher
}

func (l *lockedPublisher) Publish(ev core.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pub.Publish(ev)
}

// executeTools runs one tool phase.
//
// Started events go out in request order and finished events in completion
// order. Tool messages are appended in request order once the phase is over,
// whatever the completion order. After cancellation no new call is
// dispatched; calls already running finish, and skipped calls still get a
// failed tool message so the transcript stays well formed.
func (t *turn) executeTools(ctx context.Context, calls []core.ToolCall) {
	a := t.agent
	start := time.Now()
	results := make([]tool.Result, len(calls))

	if a.cfg.MaxParallelTools <= 1 || len(calls) == 1 {
		for i, call := range calls {
			if ctx.Err() != nil {
				results[i] = notDispatched(call)
				t.thread.Append(toolMessage(call, results[i]))
				continue
			}
			t.pub.Publish(core.NewToolStartedEvent(t.scope(), call))
			results[i] = t.runTool(ctx, call, t.pub)
			t.pub.Publish(core.NewToolFinishedEvent(t.scope(), toolEvent(call, results[i])))
			t.thread.Append(toolMessage(call, results[i]))
		}
		a.logger.Debug("agent.tools.batch.complete", "agent", a.cfg.Name, "count", len(calls),
			"parallelism", 1, "duration_ms", time.Since(start).Milliseconds())
		return
	}

	pub := &lockedPublisher{pub: t.pub}
	slots := semaphore.NewWeighted(int64(a.cfg.MaxParallelTools))
	var g errgroup.Group

	// Slots are taken in request order before anything is published, so a
	// call still queued when the turn is cancelled is never dispatched.
	for i, call := range calls {
		if err := slots.Acquire(ctx, 1); err != nil {
			results[i] = notDispatched(call)
			continue
		}
		if ctx.Err() != nil {
			slots.Release(1)
			results[i] = notDispatched(call)
			continue
		}
		pub.Publish(core.NewToolStartedEvent(t.scope(), call))
		g.Go(func() error {
			defer slots.Release(1)
			res := t.runTool(ctx, call, pub)
			results[i] = res
			pub.Publish(core.NewToolFinishedEvent(t.scope(), toolEvent(call, res)))
			return nil
		})
	}
	_ = g.Wait() // tool goroutines never return errors

	for i, call := range calls {
		t.thread.Append(toolMessage(call, results[i]))
	}
	a.logger.Debug("agent.tools.batch.complete", "agent", a.cfg.Name, "count", len(calls),
		"parallelism", a.cfg.MaxParallelTools, "duration_ms", time.Since(start).Milliseconds())
}

// runTool resolves one call through the registry. Protocol errors (unknown
// tool, malformed or invalid arguments) become failed results the model can
// react to on its next iteration.
func (t *turn) runTool(ctx context.Context, call core.ToolCall, pub eventbus.Publisher) tool.Result {
	a := t.agent
	ctx, span := a.tracer.Start(ctx, "agent.tool", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer span.End()

	res, err := t.execute(ctx, call, pub)
	if err != nil {
		a.logger.Warn("agent.tool.protocol_error", "agent", a.cfg.Name, "tool", call.Name, "call_id", call.ID, "error", err.Error())
	}

	span.SetAttributes(attribute.Int("tool.attempts", res.Attempts), attribute.Bool("tool.success", res.Success))
	if !res.Success {
		msg := "tool failed"
		if res.Err != nil {
			msg = res.Err.Error()
			span.RecordError(res.Err)
		}
		span.SetStatus(codes.Error, msg)
		pub.Publish(core.NewErrorEvent(t.scope(), core.ErrorDetail{
			Source:  core.ErrorSourceTool,
			Tool:    call.Name,
			Message: msg,
			Attempt: res.Attempts,
		}))
	}
	return res
}

func (t *turn) execute(ctx context.Context, call core.ToolCall, pub eventbus.Publisher) (tool.Result, error) {
	failed := tool.Result{CallID: call.ID, Name: call.Name}

	args, err := tool.DecodeArguments(call.Arguments)
	if err != nil {
		failed.Err = err
		return failed, err
	}
	if t.agent.registry == nil {
		failed.Err = tool.ErrUnknownTool
		return failed, tool.ErrUnknownTool
	}

	return t.agent.registry.Execute(ctx, call.Name, args, func(o *tool.ExecuteOptions) {
		o.CallID = call.ID
		o.Policy = t.agent.cfg.ToolRetryPolicy
		o.OnRetry = func(attempt int, err error, delay time.Duration) {
			pub.Publish(core.NewErrorEvent(t.scope(), core.ErrorDetail{
				Source:   core.ErrorSourceTool,
				Tool:     call.Name,
				Message:  err.Error(),
				Attempt:  attempt,
				Retrying: true,
				Delay:    delay,
			}))
		}
	})
}

func notDispatched(call core.ToolCall) tool.Result {
	return tool.Result{CallID: call.ID, Name: call.Name, Err: errNotDispatched}
}

func toolMessage(call core.ToolCall, res tool.Result) core.Message {
	return core.NewToolMessage(call, res.Content(), !res.Success)
}

func toolEvent(call core.ToolCall, res tool.Result) core.ToolEvent {
	ev := core.ToolEvent{
		CallID:    call.ID,
		Name:      call.Name,
		Arguments: call.Arguments,
		Success:   res.Success,
		Result:    res.Data,
		Attempts:  res.Attempts,
		Duration:  res.Duration,
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}
