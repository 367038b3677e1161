package agent

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kforcode-ai/miniagent/eventbus"
	"github.com/kforcode-ai/miniagent/logging"
	"github.com/kforcode-ai/miniagent/retry"
)

// Config is the immutable configuration snapshot of an Agent. It is copied
// at construction and shared by every turn run through that Agent.
type Config struct {
	// Name identifies the agent in events and logs.
	Name string
	// SystemPrompt is the static system prompt template (see Instruction).
	SystemPrompt string
	// RetryPolicy governs model calls.
	RetryPolicy retry.Policy
	// ToolRetryPolicy governs tool bodies; nil means RetryPolicy.
	ToolRetryPolicy retry.Policy
	// StreamByDefault is the stream flag used when RunOptions does not override it.
	StreamByDefault bool
	// MaxIterations is the default iteration budget of a turn.
	MaxIterations int
	// MaxParallelTools bounds concurrent tool calls in one phase; 0 or 1 runs them sequentially.
	MaxParallelTools int
}

// DefaultConfig returns the baseline configuration: agent "Assistant",
// streaming on, 10 iterations, constant retry 3 x 500ms, sequential tools.
func DefaultConfig() Config {
	return Config{
		Name:            "Assistant",
		SystemPrompt:    "You are a helpful assistant.",
		RetryPolicy:     retry.Constant(3, 500*time.Millisecond),
		StreamByDefault: true,
		MaxIterations:   10,
	}
}

func (c Config) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidConfig)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be >= 1, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.MaxParallelTools < 0 {
		return fmt.Errorf("%w: max parallel tools must be >= 0, got %d", ErrInvalidConfig, c.MaxParallelTools)
	}
	return nil
}

// Options configures New.
type Options struct {
	Config Config

	// Instruction overrides Config.SystemPrompt with a dynamic provider.
	Instruction *Instruction

	// Bus receives lifecycle events; a private bus is created when nil.
	Bus *eventbus.Bus

	Logger logging.Logger

	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// RunOptions are per-turn overrides of the agent defaults.
type RunOptions struct {
	Stream        bool
	MaxIterations int
}

// WithStream overrides the streaming flag for one turn.
func WithStream(stream bool) func(*RunOptions) {
	return func(o *RunOptions) { o.Stream = stream }
}

// WithMaxIterations overrides the iteration budget for one turn.
func WithMaxIterations(n int) func(*RunOptions) {
	return func(o *RunOptions) { o.MaxIterations = n }
}
