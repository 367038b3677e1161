// Package retry provides stateless retry policies and a small executor that
// re-invokes an operation according to a policy.
//
// A Policy only decides; it never sleeps or counts. The attempt number is
// threaded through every decision so no counter is shared between
// invocations, and one policy value can serve any number of concurrent calls.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Decision is the outcome of one policy consultation.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Stop is the give-up decision.
var Stop = Decision{}

// Wait returns a retry decision with the given delay.
func Wait(d time.Duration) Decision { return Decision{Retry: true, Delay: d} }

// Policy decides whether a failed attempt should be retried. attempt is the
// 1-based number of the attempt that just failed.
type Policy interface {
	Decide(attempt int, err error) Decision
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(attempt int, err error) Decision

// Decide implements Policy.
func (f PolicyFunc) Decide(attempt int, err error) Decision { return f(attempt, err) }

// ConstantPolicy retries with a fixed delay up to MaxRetries times.
type ConstantPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// Constant returns a fixed delay policy. maxRetries = 0 means exactly one attempt.
func Constant(maxRetries int, delay time.Duration) ConstantPolicy {
	return ConstantPolicy{MaxRetries: maxRetries, Delay: delay}
}

// Decide implements Policy.
func (p ConstantPolicy) Decide(attempt int, err error) Decision {
	if !Retryable(err) || attempt > p.MaxRetries {
		return Stop
	}
	return Wait(nonNegative(p.Delay))
}

// ExponentialPolicy grows the delay by Multiplier after every failure, capped at MaxDelay.
type ExponentialPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration // 0 disables the cap
}

// Exponential returns an exponential backoff policy. A multiplier below 1 is treated as 2.
func Exponential(maxRetries int, initial time.Duration, multiplier float64, maxDelay time.Duration) ExponentialPolicy {
	return ExponentialPolicy{MaxRetries: maxRetries, InitialDelay: initial, Multiplier: multiplier, MaxDelay: maxDelay}
}

// Decide implements Policy.
func (p ExponentialPolicy) Decide(attempt int, err error) Decision {
	if !Retryable(err) || attempt > p.MaxRetries {
		return Stop
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	delay := float64(nonNegative(p.InitialDelay)) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which overflows on conversion.
	if delay >= float64(math.MaxInt64) {
		return Wait(time.Duration(math.MaxInt64))
	}
	return Wait(time.Duration(delay))
}

// None never retries.
func None() Policy { return Constant(0, 0) }

// permanentError marks an error as not worth retrying.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that every policy in this package stops on it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Retryable reports whether err may be retried at all: cancellations and
// permanent errors are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsPermanent(err)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
