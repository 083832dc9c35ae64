package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnenum/internal/engine"
)

func positions(ps ...[]int) []engine.Position {
	out := make([]engine.Position, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

func newTestCursor(t *testing.T, sizes ...int) *engine.Cursor {
	t.Helper()
	c, err := engine.NewCursor(engine.CartesianProduct{}, sizes)
	require.NoError(t, err)
	return c
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertState, Cursor: "main", Expected: "step 3", Actual: "step 2"}
	assert.Equal(t, "Assertion failed: state on main\n  Expected: step 3\n  Actual: step 2", err.Error())
}

func TestEvaluateAssertions_UnknownCursor(t *testing.T) {
	cursors := map[string]*engine.Cursor{MainCursor: newTestCursor(t, 2)}
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertDistinct, On: "copy"}}, cursors)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown cursor "copy"`)
}

func TestAssertState(t *testing.T) {
	c := newTestCursor(t, 3)
	require.NoError(t, c.Skip(2))

	assert.NoError(t, assertState(c, Assertion{Type: AssertState, Step: u64(2), Exhausted: boolPtr(false)}))

	err := assertState(c, Assertion{Type: AssertState, Step: u64(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: step 1")

	err = assertState(c, Assertion{Type: AssertState, Exhausted: boolPtr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted=false")
}

func TestAssertEmitted(t *testing.T) {
	emitted := positions([]int{0}, []int{1})
	assert.NoError(t, assertEmitted(emitted, Assertion{Count: intPtr(2)}))
	assert.Error(t, assertEmitted(emitted, Assertion{Count: intPtr(3)}))
}

func TestAssertDistinct(t *testing.T) {
	assert.NoError(t, assertDistinct(positions([]int{0, 1}, []int{1, 0}), Assertion{}))

	err := assertDistinct(positions([]int{0, 1}, []int{1, 0}, []int{0, 1}), Assertion{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[0 1] produced at 0 and 2")
}

func TestAssertCovers(t *testing.T) {
	sizes := engine.Sizes{2, 1}

	assert.NoError(t, assertCovers(sizes, positions([]int{1, 0}, []int{0, 0}), Assertion{}))

	err := assertCovers(sizes, positions([]int{0, 0}), Assertion{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 positions")

	err = assertCovers(sizes, positions([]int{0, 0}, []int{0, 5}), Assertion{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of bounds")
}

func TestAssertSameAs(t *testing.T) {
	a := positions([]int{1, 2}, []int{0, 0})
	assert.NoError(t, assertSameAs(a, positions([]int{1, 2}, []int{0, 0}), Assertion{Other: "main"}))

	err := assertSameAs(a, positions([]int{1, 2}), Assertion{Other: "main"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 position(s) like main")

	err = assertSameAs(a, positions([]int{1, 2}, []int{0, 1}), Assertion{Other: "main"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 1 = [0 1]")
}
