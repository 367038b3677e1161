package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kforcode-ai/miniagent/core"
)

// Step is one scripted generation.
//
// A step with Err and no Chunks fails immediately. A step with both streams
// its chunks (when the request streams) and then fails, which simulates a
// connection dropped mid-response.
type Step struct {
	Text      string
	ToolCalls []core.ToolCall // an empty ID is generated
	Chunks    []string
	Err       error
}

// ScriptFunc produces the step for the n-th call (1-based).
type ScriptFunc func(call int, req Request) Step

// ScriptedModel is a deterministic Client replaying scripted steps. It is
// safe for concurrent use and records every request it receives.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	next     ScriptFunc
	calls    int
	requests []Request
}

var _ Client = (*ScriptedModel)(nil)

// NewScriptedModel replays steps in order. Once the script is exhausted the
// last step is repeated; an empty script answers with an error.
func NewScriptedModel(steps ...Step) *ScriptedModel {
	cloned := append([]Step(nil), steps...)
	return NewScriptFuncModel(func(call int, _ Request) Step {
		if len(cloned) == 0 {
			return Step{Err: fmt.Errorf("script is empty")}
		}
		if call > len(cloned) {
			return cloned[len(cloned)-1]
		}
		return cloned[call-1]
	})
}

// NewScriptFuncModel answers every call with fn.
func NewScriptFuncModel(fn ScriptFunc) *ScriptedModel {
	return &ScriptedModel{
		info: Info{Name: "scripted", Provider: "scripted", SupportsTools: true},
		next: fn,
	}
}

// Calls returns how many times Generate was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of the received requests.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Info implements Client.
func (m *ScriptedModel) Info() Info { return m.info }

// Generate implements Client.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	step := m.next(call, req)

	out := make(chan Response, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)

		if step.Err != nil && len(step.Chunks) == 0 {
			errCh <- step.Err
			return
		}

		if req.Stream {
			chunks := step.Chunks
			if len(chunks) == 0 {
				chunks = splitWords(step.Text)
			}
			for _, c := range chunks {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- Response{Partial: true, Text: c}:
				}
			}
		}
		if step.Err != nil {
			errCh <- step.Err
			return
		}

		final := Response{
			ID:           fmt.Sprintf("scripted-%d", call),
			Text:         step.Text,
			FinishReason: "stop",
		}
		for i, tc := range step.ToolCalls {
			if tc.ID == "" {
				tc.ID = fmt.Sprintf("call_%d_%d", call, i+1)
			}
			final.ToolCalls = append(final.ToolCalls, tc)
		}
		if len(final.ToolCalls) > 0 {
			final.FinishReason = "tool_calls"
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case out <- final:
		}
	}()
	return out, errCh
}

// splitWords chunks text at word boundaries, keeping the separators so the
// chunks concatenate back to text.
func splitWords(text string) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for _, w := range strings.SplitAfter(text, " ") {
		if w != "" {
			chunks = append(chunks, w)
		}
	}
	return chunks
}
