package core

import (
	"fmt"
	"sync"
)

// CallBudget enforces a maximum number of remote generation calls per session.
// A nil *CallBudget or a max of 0 allows unlimited calls.
type CallBudget struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewCallBudget creates a new budget with a max number of calls.
func NewCallBudget(max int) *CallBudget {
	return &CallBudget{max: max}
}

// Spend reserves one call and returns ErrBudgetExceeded once the limit is used up.
// A rejected call is not counted.
func (b *CallBudget) Spend() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.count >= b.max {
		return fmt.Errorf("%w: limit %d", ErrBudgetExceeded, b.max)
	}
	b.count++
	return nil
}

// Count returns the number of calls spent.
func (b *CallBudget) Count() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Remaining returns how many calls are left, or -1 when unlimited.
func (b *CallBudget) Remaining() int {
	if b == nil {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max == 0 {
		return -1
	}
	return b.max - b.count
}
