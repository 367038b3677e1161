package agent

import (
	"context"
	"time"

	"github.com/kforcode-ai/miniagent/core"
	"github.com/kforcode-ai/miniagent/internal/util"
)

// Provider supplies dynamic system prompt text at the start of a turn.
type Provider interface {
	Instruction(ctx context.Context, thread *core.Thread) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(ctx context.Context, thread *core.Thread) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ctx context.Context, thread *core.Thread) (string, error) {
	return f(ctx, thread)
}

// Instruction is either a static system prompt template or a dynamic provider.
//
// Static text may use text/template syntax. The data available is:
//
//	.agent      the agent name
//	.thread_id  the thread id
//	.metadata   the thread metadata map
//	.date       the current date (2006-01-02)
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static template.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, thread *core.Thread) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static template.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// validate checks the static template once at construction.
func (i Instruction) validate() error {
	if !i.IsStatic() {
		return nil
	}
	_, err := util.ParseTemplate(i.text)
	return err
}

// Resolve returns the system prompt for one turn.
func (i Instruction) Resolve(ctx context.Context, agentName string, thread *core.Thread) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx, thread)
	}
	data := map[string]any{
		"agent": agentName,
		"date":  time.Now().Format("2006-01-02"),
	}
	if thread != nil {
		data["thread_id"] = thread.ID
		data["metadata"] = thread.Metadata
	}
	return util.RenderTemplate(i.text, data)
}
