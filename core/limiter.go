package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBudgetExhausted is returned by IterationBudget.Consume once the maximum is used up.
var ErrBudgetExhausted = errors.New("iteration budget exhausted")

// IterationBudget enforces the maximum number of model iterations in one turn.
type IterationBudget struct {
	max  int
	used int
	mu   sync.Mutex
}

// NewIterationBudget creates a budget allowing max iterations. max < 1 is
// treated as 1 so a turn always gets at least one model call.
func NewIterationBudget(max int) *IterationBudget {
	if max < 1 {
		max = 1
	}
	return &IterationBudget{max: max}
}

// Consume claims one iteration or reports exhaustion.
func (b *IterationBudget) Consume() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used >= b.max {
		return fmt.Errorf("%w: max %d", ErrBudgetExhausted, b.max)
	}
	b.used++

	return nil
}

// Used returns the number of iterations consumed so far.
func (b *IterationBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.used
}

// Remaining returns how many iterations are left.
func (b *IterationBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.max - b.used
}

// Max returns the configured limit.
func (b *IterationBudget) Max() int { return b.max }
