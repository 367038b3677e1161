package agent

import (
	"errors"
	"fmt"

	"github.com/kforcode-ai/miniagent/core"
)

var (
	// ErrModelUnavailable reports a model failure that outlived the retry policy.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrIterationLimitExceeded reports a turn that used its iteration budget
	// without producing a final answer.
	ErrIterationLimitExceeded = errors.New("iteration limit exceeded")
	// ErrCancelled reports a turn stopped by its context.
	ErrCancelled = errors.New("turn cancelled")
	// ErrInvalidConfig is returned by New for unusable configuration.
	ErrInvalidConfig = errors.New("invalid agent config")
)

// RunErrorKind classifies terminal turn failures.
type RunErrorKind string

const (
	KindModelUnavailable       RunErrorKind = "model_unavailable"
	KindIterationLimitExceeded RunErrorKind = "iteration_limit_exceeded"
	KindCancelled              RunErrorKind = "cancelled"
)

func (k RunErrorKind) sentinel() error {
	switch k {
	case KindModelUnavailable:
		return ErrModelUnavailable
	case KindIterationLimitExceeded:
		return ErrIterationLimitExceeded
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// RunError is returned by Run for every terminal failure. It carries the
// thread in the state the turn left it, so no work is silently lost.
//
// errors.Is matches both the kind's sentinel and the underlying cause:
//
//	if errors.Is(err, agent.ErrModelUnavailable) { ... }
//	var runErr *agent.RunError
//	if errors.As(err, &runErr) { inspect(runErr.Thread.Messages()) }
type RunError struct {
	Kind       RunErrorKind
	Thread     *core.Thread
	TurnID     string
	Iterations int
	Err        error
}

func (e *RunError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("agent: %s after %d iteration(s)", e.Kind, e.Iterations)
	}
	return fmt.Sprintf("agent: %s after %d iteration(s): %v", e.Kind, e.Iterations, e.Err)
}

// Unwrap exposes the kind sentinel and the cause to errors.Is / errors.As.
func (e *RunError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
