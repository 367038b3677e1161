package retry

import (
	"context"
	"time"
)

// Operation is one attempt of a retried call. attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// Notify is called after a failed attempt that will be retried, before the delay.
type Notify func(attempt int, err error, delay time.Duration)

// Do runs op until it succeeds or policy gives up. It returns the number of
// attempts made (always >= 1) and the error of the last attempt.
//
// Each attempt re-invokes op from scratch; op owns its side effects. The wait
// between attempts is abandoned when ctx is done, in which case the last
// attempt's error is returned.
func Do(ctx context.Context, policy Policy, op Operation, notify Notify) (int, error) {
	if policy == nil {
		policy = None()
	}

	attempt := 0
	for {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}

		decision := policy.Decide(attempt, err)
		if !decision.Retry || ctx.Err() != nil {
			return attempt, err
		}

		if notify != nil {
			notify(attempt, err, decision.Delay)
		}

		if !sleep(ctx, decision.Delay) {
			return attempt, err
		}
	}
}

// sleep waits for d or until ctx is done; it reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
