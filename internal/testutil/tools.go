package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrFlaky is returned by FlakyTool while it is still failing.
var ErrFlaky = errors.New("transient tool failure")

// FlakyTool fails its first Failures calls and then returns Result.
// A negative Failures makes it fail forever. It satisfies tool.Tool.
type FlakyTool struct {
	ToolName string
	Failures int
	Result   any
	Delay    time.Duration

	calls atomic.Int64
}

// Name implements tool.Tool.
func (f *FlakyTool) Name() string { return f.ToolName }

// Description implements tool.Tool.
func (f *FlakyTool) Description() string { return "fails a fixed number of times before succeeding" }

// Parameters implements tool.Tool.
func (f *FlakyTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// Call implements tool.Tool.
func (f *FlakyTool) Call(ctx context.Context, _ map[string]any) (any, error) {
	n := int(f.calls.Add(1))
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	if f.Failures < 0 || n <= f.Failures {
		return nil, fmt.Errorf("call %d: %w", n, ErrFlaky)
	}
	return f.Result, nil
}

// Calls returns how many times Call ran.
func (f *FlakyTool) Calls() int { return int(f.calls.Load()) }

// SleepTool sleeps for a per-call duration read from the "ms" argument and
// returns the "id" argument. It records the order in which calls finished.
type SleepTool struct {
	ToolName string

	finished chan string
}

// NewSleepTool creates a SleepTool able to record up to capacity completions.
func NewSleepTool(name string, capacity int) *SleepTool {
	return &SleepTool{ToolName: name, finished: make(chan string, capacity)}
}

// Name implements tool.Tool.
func (s *SleepTool) Name() string { return s.ToolName }

// Description implements tool.Tool.
func (s *SleepTool) Description() string { return "sleeps then echoes its id" }

// Parameters implements tool.Tool.
func (s *SleepTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string"},
			"ms": map[string]any{"type": "integer"},
		},
		"required": []string{"id", "ms"},
	}
}

// Call implements tool.Tool.
func (s *SleepTool) Call(ctx context.Context, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	var ms float64
	switch v := args["ms"].(type) {
	case float64:
		ms = v
	case int:
		ms = float64(v)
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	s.finished <- id
	return id, nil
}

// Finished returns the ids in completion order.
func (s *SleepTool) Finished() []string {
	var ids []string
	for {
		select {
		case id := <-s.finished:
			ids = append(ids, id)
		default:
			return ids
		}
	}
}
