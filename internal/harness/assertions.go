package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/rxnenum/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Cursor   string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s on %s\n", e.Type, e.Cursor)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, cursors map[string]*engine.Cursor) []string {
	var errs []string
	for _, a := range assertions {
		c, ok := cursors[a.cursor()]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown cursor %q", a.Type, a.cursor()))
			continue
		}
		emitted := result.Emitted[a.cursor()]

		var err error
		switch a.Type {
		case AssertState:
			err = assertState(c, a)
		case AssertEmitted:
			err = assertEmitted(emitted, a)
		case AssertDistinct:
			err = assertDistinct(emitted, a)
		case AssertCovers:
			err = assertCovers(c.Sizes(), emitted, a)
		case AssertSameAs:
			err = assertSameAs(emitted, result.Emitted[a.Other], a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertState(c *engine.Cursor, a Assertion) error {
	if a.Step != nil && c.Step() != *a.Step {
		return &AssertionError{
			Type:     AssertState,
			Cursor:   a.cursor(),
			Expected: fmt.Sprintf("step %d", *a.Step),
			Actual:   fmt.Sprintf("step %d", c.Step()),
		}
	}
	if a.Exhausted != nil && c.Exhausted() != *a.Exhausted {
		return &AssertionError{
			Type:     AssertState,
			Cursor:   a.cursor(),
			Expected: fmt.Sprintf("exhausted=%v", *a.Exhausted),
			Actual:   fmt.Sprintf("exhausted=%v", c.Exhausted()),
		}
	}
	return nil
}

func assertEmitted(emitted []engine.Position, a Assertion) error {
	if len(emitted) != *a.Count {
		return &AssertionError{
			Type:     AssertEmitted,
			Cursor:   a.cursor(),
			Expected: fmt.Sprintf("%d position(s)", *a.Count),
			Actual:   fmt.Sprintf("%d position(s)", len(emitted)),
		}
	}
	return nil
}

func assertDistinct(emitted []engine.Position, a Assertion) error {
	seen := make(map[string]int, len(emitted))
	for i, p := range emitted {
		key := p.String()
		if first, dup := seen[key]; dup {
			return &AssertionError{
				Type:     AssertDistinct,
				Cursor:   a.cursor(),
				Expected: "no repeated position",
				Actual:   fmt.Sprintf("%s produced at %d and %d", key, first, i),
			}
		}
		seen[key] = i
	}
	return nil
}

// assertCovers checks that emitted is a permutation of the whole space.
func assertCovers(sizes engine.Sizes, emitted []engine.Position, a Assertion) error {
	total, err := sizes.Total()
	if err != nil {
		return err
	}
	if err := assertDistinct(emitted, a); err != nil {
		return err
	}
	if uint64(len(emitted)) != total {
		return &AssertionError{
			Type:     AssertCovers,
			Cursor:   a.cursor(),
			Expected: fmt.Sprintf("all %d positions", total),
			Actual:   fmt.Sprintf("%d distinct position(s)", len(emitted)),
		}
	}
	for _, p := range emitted {
		if !sizes.Contains(p) {
			return &AssertionError{
				Type:     AssertCovers,
				Cursor:   a.cursor(),
				Expected: fmt.Sprintf("positions within %v", []int(sizes)),
				Actual:   fmt.Sprintf("%s out of bounds", p),
			}
		}
	}
	return nil
}

func assertSameAs(emitted, other []engine.Position, a Assertion) error {
	if len(emitted) != len(other) {
		return &AssertionError{
			Type:     AssertSameAs,
			Cursor:   a.cursor(),
			Expected: fmt.Sprintf("%d position(s) like %s", len(other), a.Other),
			Actual:   fmt.Sprintf("%d position(s)", len(emitted)),
		}
	}
	for i := range emitted {
		if !emitted[i].Equal(other[i]) {
			return &AssertionError{
				Type:     AssertSameAs,
				Cursor:   a.cursor(),
				Expected: fmt.Sprintf("position %d = %s (from %s)", i, other[i], a.Other),
				Actual:   emitted[i].String(),
			}
		}
	}
	return nil
}
