package runner

import "fmt"

// FailureBudget counts template failures in a run and enforces a limit.
//
// A template failure consumes its step and the run moves on. The budget
// stops a run whose template fails on most tuples from filling the store
// with error rows.
type FailureBudget struct {
	limit   int // zero means unlimited
	current int
}

// NewFailureBudget creates a budget allowing limit failures. Zero allows
// any number.
func NewFailureBudget(limit int) *FailureBudget {
	return &FailureBudget{limit: limit}
}

// Check records one failure and validates against the limit.
//
// Returns FailureBudgetExceededError once the count passes the limit.
func (b *FailureBudget) Check(runID string) error {
	b.current++
	if b.limit > 0 && b.current > b.limit {
		return &FailureBudgetExceededError{
			RunID:    runID,
			Failures: b.current,
			Limit:    b.limit,
		}
	}
	return nil
}

// Current returns the number of failures recorded.
func (b *FailureBudget) Current() int {
	return b.current
}

// Limit returns the configured limit.
func (b *FailureBudget) Limit() int {
	return b.limit
}

// FailureBudgetExceededError is returned when a run exceeds its failure
// budget. The run stops after checkpointing; resuming it starts a fresh
// budget.
type FailureBudgetExceededError struct {
	RunID    string
	Failures int
	Limit    int
}

// Error implements the error interface.
func (e *FailureBudgetExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded failure budget: %d failures > %d limit",
		e.RunID, e.Failures, e.Limit)
}
