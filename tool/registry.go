package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/kforcode-ai/miniagent/internal/schema"
	"github.com/kforcode-ai/miniagent/logging"
	"github.com/kforcode-ai/miniagent/retry"
)

// Definition is the declaration of one tool as offered to a model.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Result is the outcome of one tool invocation. It is immutable once returned.
type Result struct {
	CallID   string
	Name     string
	Success  bool
	Data     any
	Err      error
	Attempts int
	Duration time.Duration
}

// Content renders the result as the text of a tool message.
func (r Result) Content() string {
	if !r.Success {
		if r.Err == nil {
			return "Error: tool failed"
		}
		return "Error: " + r.Err.Error()
	}
	switch v := r.Data.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	b, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Sprint(r.Data)
	}
	return string(b)
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Policy is the default retry policy for tool bodies (defaults to retry.None()).
	Policy retry.Policy
	Logger logging.Logger
}

// ExecuteOptions overrides registry defaults for a single Execute call.
type ExecuteOptions struct {
	// CallID is copied into the Result.
	CallID string
	// Policy overrides the registry policy when set.
	Policy retry.Policy
	// OnRetry is invoked for every failed attempt that will be retried.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Registry maps tool names to tools. It is expected to be fully populated
// before any turn begins; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
	opts  RegistryOptions
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Policy: retry.None(), Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Policy == nil {
		opts.Policy = retry.None()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Registry{tools: make(map[string]Tool), opts: opts}
}

// Register adds t. It fails with ErrDuplicateToolName or ErrInvalidSchema.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("%w: nil tool", ErrInvalidSchema)
	}
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", ErrInvalidSchema)
	}
	if err := schema.Check(t.Parameters()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSchema, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateToolName, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	r.opts.Logger.Debug("tool.registered", "tool", name)
	return nil
}

// RegisterFunction wraps fn into a FunctionTool and registers it.
func (r *Registry) RegisterFunction(name, description string, parameters map[string]any, fn Func) error {
	return r.Register(NewFunctionTool(name, description, parameters, fn))
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Definitions returns the tool declarations in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{Name: name, Description: t.Description(), Parameters: t.Parameters()})
	}
	return defs
}

// Execute resolves name, validates args and runs the tool body under the
// retry policy.
//
// The returned error is non-nil only for protocol errors (ErrUnknownTool,
// ErrInvalidArguments); the Result then describes the same failure with zero
// attempts. A body that keeps failing until the policy gives up yields a
// failed Result and a nil error.
//
// Tool bodies are never cancelled mid-call: they run detached from ctx
// cancellation. ctx only stops further retries.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, optFns ...func(o *ExecuteOptions)) (Result, error) {
	opts := ExecuteOptions{Policy: r.opts.Policy}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Policy == nil {
		opts.Policy = r.opts.Policy
	}

	res := Result{CallID: opts.CallID, Name: name}

	t, ok := r.Get(name)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTool, name)
		res.Err = &ToolError{Tool: name, Message: err.Error(), Code: CodeNotFound, cause: err}
		r.opts.Logger.Warn("tool.call.unknown", "tool", name)
		return res, err
	}

	if err := schema.Validate(args, t.Parameters()); err != nil {
		werr := fmt.Errorf("%w: %s: %w", ErrInvalidArguments, name, err)
		res.Err = &ToolError{Tool: name, Message: err.Error(), Code: CodeValidation, Details: err, cause: werr}
		r.opts.Logger.Warn("tool.call.validation_failed", "tool", name, "error", err.Error())
		return res, werr
	}

	start := time.Now()
	bodyCtx := context.WithoutCancel(ctx)
	var data any
	attempts, err := retry.Do(ctx, opts.Policy, func(_ context.Context, attempt int) error {
		r.opts.Logger.Debug("tool.call.start", "tool", name, "call_id", opts.CallID, "attempt", attempt)
		out, err := invoke(bodyCtx, t, args)
		if err != nil {
			return err
		}
		data = out
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		r.opts.Logger.Warn("tool.call.retry", "tool", name, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err.Error())
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err, delay)
		}
	})

	res.Attempts = attempts
	res.Duration = time.Since(start)
	logging.LogToolCall(r.opts.Logger, name, attempts, res.Duration, err)
	if err != nil {
		res.Err = asToolError(name, CodeExecution, err)
		return res, nil
	}
	res.Success = true
	res.Data = data
	return res, nil
}

// invoke runs one attempt, converting a panic into a failed attempt.
func invoke(ctx context.Context, t Tool, args map[string]any) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ToolError{
				Tool:    t.Name(),
				Message: fmt.Sprintf("panic: %v", p),
				Code:    CodePanic,
				Details: string(debug.Stack()),
			}
		}
	}()
	return t.Call(ctx, args)
}

// DecodeArguments parses a model emitted JSON argument string. An empty
// string decodes to an empty map.
func DecodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
