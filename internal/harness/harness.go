package harness

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/roach88/rxnenum/internal/engine"
)

// Harness is the scenario execution state: the named cursors and the
// saved state blobs.
type Harness struct {
	cursors map[string]*engine.Cursor
	saved   map[string][]byte
	result  *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario builds a fresh cursor, so runs are isolated and
// reproducible. A failed expect clause or assertion is reported in the
// result; an error return means the scenario could not be set up or an
// operation failed without expect_error.
func Run(scenario *Scenario) (*Result, error) {
	cursor, err := NewCursor(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to build cursor: %w", err)
	}

	h := &Harness{
		cursors: map[string]*engine.Cursor{MainCursor: cursor},
		saved:   make(map[string][]byte),
		result:  NewResult(),
	}

	for i, step := range scenario.Steps {
		if err := h.execute(i, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, h.cursors) {
		h.result.AddError(msg)
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"events", len(h.result.Trace),
		"pass", h.result.Pass,
	)
	return h.result, nil
}

// NewCursor builds the scenario's cursor. A filtered walk drops the
// positions listed in Reject.
func NewCursor(scenario *Scenario) (*engine.Cursor, error) {
	spec, err := scenario.Strategy.Spec()
	if err != nil {
		return nil, err
	}
	var accept engine.PositionPredicate
	if spec.Kind == engine.KindFiltered {
		reject := lo.Map(scenario.Reject, func(p []int, _ int) engine.Position { return p })
		accept = func(pos engine.Position) (bool, error) {
			return !lo.ContainsBy(reject, func(r engine.Position) bool { return r.Equal(pos) }), nil
		}
	}
	strategy, err := spec.Build(accept)
	if err != nil {
		return nil, err
	}
	return engine.NewCursor(strategy, scenario.Sizes)
}

func (h *Harness) execute(index int, step Step) error {
	name := step.cursor()
	c, ok := h.cursors[name]
	if !ok {
		return fmt.Errorf("unknown cursor %q", name)
	}

	if step.Op == OpAdvance {
		return h.advance(index, step, c)
	}

	var err error
	switch step.Op {
	case OpSkip:
		err = c.Skip(step.count())
	case OpSeek:
		err = c.Seek(*step.To)
	case OpReset:
		err = c.Reset()
	case OpSave:
		var blob []byte
		if blob, err = c.MarshalState(); err == nil {
			h.saved[step.Slot] = blob
		}
	case OpRestore:
		blob, ok := h.saved[step.Slot]
		if !ok {
			return fmt.Errorf("no saved state %q", step.Slot)
		}
		err = c.RestoreState(blob)
	case OpClone:
		h.cursors[step.Slot] = c.Clone()
	}

	event := TraceEvent{Op: step.Op, On: name, Slot: step.Slot}
	if err := h.checkError(index, step, err, &event); err != nil {
		return err
	}
	event.Step = c.Step()
	event.Exhausted = c.Exhausted()
	h.result.addEvent(event)
	return nil
}

// advance produces count positions, one trace event each. It stops at the
// first error.
func (h *Harness) advance(index int, step Step, c *engine.Cursor) error {
	name := step.cursor()
	for n := uint64(0); n < step.count(); n++ {
		pos, err := c.Advance()
		event := TraceEvent{Op: OpAdvance, On: name, Position: pos}
		if err != nil {
			if err := h.checkError(index, step, err, &event); err != nil {
				return err
			}
			event.Step = c.Step()
			event.Exhausted = c.Exhausted()
			h.result.addEvent(event)
			return nil
		}
		event.Step = c.Step()
		event.Exhausted = c.Exhausted()
		h.result.addEvent(event)
		h.result.Emitted[name] = append(h.result.Emitted[name], pos)

		if len(step.Expect) > 0 {
			want := engine.Position(step.Expect[n])
			if !want.Equal(pos) {
				h.result.AddError(fmt.Sprintf("steps[%d]: advance %d: expected %s, got %s", index, n, want, pos))
			}
		}
	}
	if step.ExpectError != "" {
		h.result.AddError(fmt.Sprintf("steps[%d]: expected %s error, got none", index, step.ExpectError))
	}
	return nil
}

// checkError matches err against the step's expect_error. A mismatch is a
// scenario failure; an unexpected error aborts the run.
func (h *Harness) checkError(index int, step Step, err error, event *TraceEvent) error {
	switch {
	case err == nil && step.ExpectError != "":
		h.result.AddError(fmt.Sprintf("steps[%d]: expected %s error, got none", index, step.ExpectError))
	case err != nil && step.ExpectError == "":
		return err
	case err != nil:
		event.Error = ErrorName(err)
		if event.Error != step.ExpectError {
			h.result.AddError(fmt.Sprintf("steps[%d]: expected %s error, got %v", index, step.ExpectError, err))
		}
	}
	return nil
}

// ErrorName maps an engine error to its expect_error name. Unknown errors
// map to their message.
func ErrorName(err error) string {
	switch {
	case errors.Is(err, engine.ErrExhausted):
		return ErrNameExhausted
	case engine.IsOutOfRange(err):
		return ErrNameOutOfRange
	case engine.IsCorruptState(err):
		return ErrNameCorruptState
	case engine.IsUnsupported(err):
		return ErrNameUnsupported
	case engine.IsInvalidConfiguration(err):
		return ErrNameInvalidConfiguration
	default:
		return err.Error()
	}
}
