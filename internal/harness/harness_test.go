package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnenum/internal/engine"
)

func u64(n uint64) *uint64 { return &n }
func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestRun_CartesianExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:        "lf",
		Description: "last fastest",
		Sizes:       []int{2, 2},
		Steps: []Step{
			{Op: OpAdvance, Count: 4, Expect: [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}}},
		},
		Assertions: []Assertion{
			{Type: AssertState, Step: u64(4), Exhausted: boolPtr(true)},
			{Type: AssertCovers},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trace, 4)
	assert.Len(t, result.Emitted[MainCursor], 4)
	assert.True(t, result.Trace[3].Exhausted)
}

func TestRun_ExpectMismatchFailsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "wrong expectation",
		Sizes:       []int{2, 2},
		Steps: []Step{
			{Op: OpAdvance, Count: 2, Expect: [][]int{{0, 0}, {1, 0}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected [1 0], got [0 1]")
}

func TestRun_ExpectedErrorRecorded(t *testing.T) {
	scenario := &Scenario{
		Name:        "overshoot",
		Description: "skip past the end",
		Sizes:       []int{3},
		Steps: []Step{
			{Op: OpSkip, Count: 4, ExpectError: ErrNameOutOfRange},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, ErrNameOutOfRange, result.Trace[0].Error)
	assert.Equal(t, uint64(0), result.Trace[0].Step)
}

func TestRun_MissingExpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_error",
		Description: "skip within range",
		Sizes:       []int{3},
		Steps: []Step{
			{Op: OpSkip, Count: 2, ExpectError: ErrNameOutOfRange},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected out_of_range error, got none")
}

func TestRun_WrongErrorName(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_error",
		Description: "advance past the end",
		Sizes:       []int{1},
		Steps: []Step{
			{Op: OpAdvance},
			{Op: OpAdvance, ExpectError: ErrNameOutOfRange},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected out_of_range error")
}

func TestRun_UnexpectedErrorAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "abort",
		Description: "advance past the end without expect_error",
		Sizes:       []int{1},
		Steps: []Step{
			{Op: OpAdvance, Count: 2},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrExhausted)
	assert.Contains(t, err.Error(), "step 0 (advance)")
}

func TestRun_UnknownCursor(t *testing.T) {
	scenario := &Scenario{
		Name:        "ghost",
		Description: "advance a cursor that was never cloned",
		Sizes:       []int{2},
		Steps:       []Step{{Op: OpAdvance, On: "ghost"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown cursor "ghost"`)
}

func TestRun_RestoreUnknownSlot(t *testing.T) {
	scenario := &Scenario{
		Name:        "nothing_saved",
		Description: "restore before save",
		Sizes:       []int{2},
		Steps:       []Step{{Op: OpRestore, Slot: "nope"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no saved state "nope"`)
}

func TestRun_SaveRestoreResumesWalk(t *testing.T) {
	scenario := &Scenario{
		Name:        "resume",
		Description: "a restored cursor repeats the walk from the saved step",
		Sizes:       []int{3, 3},
		Strategy:    StrategySpec{Kind: "random", Seed: 11},
		Steps: []Step{
			{Op: OpSkip, Count: 4},
			{Op: OpSave, Slot: "s"},
			{Op: OpClone, Slot: "twin"},
			{Op: OpAdvance, Count: 3},
			{Op: OpRestore, Slot: "s"},
			{Op: OpAdvance, On: "twin", Count: 3},
		},
		Assertions: []Assertion{
			{Type: AssertSameAs, On: "twin", Other: MainCursor},
			{Type: AssertState, Step: u64(4)},
			{Type: AssertState, On: "twin", Step: u64(7)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FilteredRejectsPositions(t *testing.T) {
	scenario := &Scenario{
		Name:        "diag",
		Description: "keep the diagonal",
		Sizes:       []int{2, 2},
		Strategy:    StrategySpec{Kind: "filtered"},
		Reject:      [][]int{{0, 1}, {1, 0}},
		Steps: []Step{
			{Op: OpAdvance, Count: 2, Expect: [][]int{{0, 0}, {1, 1}}},
			{Op: OpAdvance, ExpectError: ErrNameExhausted},
		},
		Assertions: []Assertion{
			{Type: AssertDistinct},
			{Type: AssertEmitted, Count: intPtr(2)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_CoversNeedsEveryPosition(t *testing.T) {
	scenario := &Scenario{
		Name:        "partial",
		Description: "one position of two does not cover the space",
		Sizes:       []int{2},
		Strategy:    StrategySpec{Kind: "filtered"},
		Steps:       []Step{{Op: OpAdvance}},
		Assertions:  []Assertion{{Type: AssertCovers}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "2 positions")
}

func TestErrorName(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"exhausted", engine.ErrExhausted, ErrNameExhausted},
		{"wrapped exhausted", errors.Join(errors.New("ctx"), engine.ErrExhausted), ErrNameExhausted},
		{"out of range", engine.NewOutOfRange("skip", 9, 3), ErrNameOutOfRange},
		{"invalid configuration", engine.NewInvalidConfiguration("cursor", "bad"), ErrNameInvalidConfiguration},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorName(tt.err))
		})
	}
}

func TestTraceEvent_OmitsMainCursor(t *testing.T) {
	mainEvent := TraceEvent{Op: OpReset, On: MainCursor}.toIR()
	_, ok := mainEvent["on"]
	assert.False(t, ok)

	other := TraceEvent{Op: OpReset, On: "copy"}.toIR()
	assert.Contains(t, other, "on")
}
