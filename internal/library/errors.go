package library

import (
	"fmt"

	"github.com/roach88/rxnenum/internal/engine"
)

// TemplateError reports a failure of the template collaborator, as opposed
// to a failure of the enumeration itself.
//
// When a TemplateError is returned the cursor has already moved past the
// failing tuple. Step and Position identify that tuple so callers can log
// it or Seek back to retry.
type TemplateError struct {
	Step     uint64
	Position engine.Position
	Template string
	Err      error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s at step %d %v: %v", e.Template, e.Step, e.Position, e.Err)
}

// Unwrap returns the collaborator's error. Cancellation is visible with
// errors.Is(err, context.Canceled).
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Source tags the error with the collaborator that produced it.
func (e *TemplateError) Source() string {
	return "template"
}
