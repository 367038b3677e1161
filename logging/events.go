package logging

import "github.com/kforcode-ai/miniagent/core"

// EventHandler returns an event observer that writes one structured record per
// lifecycle event. Stream chunks are logged at debug level only.
// The returned function matches eventbus.Handler.
func EventHandler(l Logger) func(core.Event) error {
	l = OrNoOp(l)
	return func(ev core.Event) error {
		if ev.IsToolEvent() && ev.Tool == nil {
			return nil
		}
		base := []any{"agent", ev.Agent, "thread_id", ev.ThreadID, "turn_id", ev.TurnID}
		switch ev.Kind {
		case core.EventTurnStarted:
			l.Info("agent.turn.start", append(base, "input_len", len(ev.Content))...)
		case core.EventAgentThinking:
			l.Debug("agent.thinking", append(base, "iteration", ev.Iteration)...)
		case core.EventStreamChunk:
			l.Debug("agent.stream.chunk", append(base, "bytes", len(ev.Content))...)
		case core.EventToolExecutionStarted:
			l.Info("agent.tool.start", append(base, "tool", ev.Tool.Name, "call_id", ev.Tool.CallID)...)
		case core.EventToolExecutionFinished:
			args := append(base, "tool", ev.Tool.Name, "success", ev.Tool.Success, "attempts", ev.Tool.Attempts, "duration_ms", ev.Tool.Duration.Milliseconds())
			if ev.Tool.Success {
				l.Info("agent.tool.finish", args...)
			} else {
				l.Warn("agent.tool.finish", append(args, "error", ev.Tool.Error)...)
			}
		case core.EventTurnCompleted:
			l.Info("agent.turn.complete", append(base, "iteration", ev.Iteration)...)
		case core.EventError:
			if ev.Err == nil {
				return nil
			}
			args := append(base, "source", ev.Err.Source, "error", ev.Err.Message, "attempt", ev.Err.Attempt, "retrying", ev.Err.Retrying)
			if ev.Err.Retrying {
				l.Warn("agent.error", args...)
			} else {
				l.Error("agent.error", args...)
			}
		}
		return nil
	}
}
