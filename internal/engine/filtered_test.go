package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evenSum(p Position) (bool, error) {
	sum := 0
	for _, v := range p {
		sum += v
	}
	return sum%2 == 0, nil
}

func newFilteredCursor(t *testing.T, sizes Sizes, accept PositionPredicate) *Cursor {
	t.Helper()
	s, err := Spec{Kind: KindFiltered}.Build(accept)
	require.NoError(t, err)
	c, err := NewCursor(s, sizes)
	require.NoError(t, err)
	return c
}

func TestFiltered_KeepsAcceptedInCartesianOrder(t *testing.T) {
	c := newFilteredCursor(t, Sizes{3, 3}, evenSum)

	assert.Equal(t, []Position{
		{0, 0}, {0, 2}, {1, 1}, {2, 0}, {2, 2},
	}, drain(t, c))
	assert.Equal(t, uint64(5), c.Step())
}

func TestFiltered_SkipSteps(t *testing.T) {
	c := newFilteredCursor(t, Sizes{3, 3}, evenSum)

	require.NoError(t, c.Skip(3))
	pos, err := c.Advance()
	require.NoError(t, err)
	assert.Equal(t, Position{2, 0}, pos)

	err = c.Skip(2)
	assert.True(t, IsOutOfRange(err))
	assert.Equal(t, Position{2, 2}, c.Position(), "overshoot leaves the cursor unchanged")

	require.NoError(t, c.Skip(1))
	assert.True(t, c.Exhausted())
}

func TestFiltered_SeekRewalks(t *testing.T) {
	c := newFilteredCursor(t, Sizes{3, 3}, evenSum)
	drain(t, c)

	require.NoError(t, c.Seek(2))
	assert.Equal(t, Position{1, 1}, c.Position())
	assert.False(t, c.Exhausted())
}

func TestFiltered_NoRandomAccess(t *testing.T) {
	c := newFilteredCursor(t, Sizes{3, 3}, evenSum)

	_, err := c.Total()
	assert.True(t, IsUnsupported(err))
	_, err = c.Remaining()
	assert.True(t, IsUnsupported(err))
}

func TestFiltered_EmptyWalk(t *testing.T) {
	c := newFilteredCursor(t, Sizes{2, 2}, func(Position) (bool, error) { return false, nil })

	assert.True(t, c.Exhausted())
	assert.Equal(t, uint64(0), c.Step())
	_, err := c.Advance()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestFiltered_PredicateErrorLeavesCursor(t *testing.T) {
	boom := errors.New("boom")
	c := newFilteredCursor(t, Sizes{3, 3}, func(p Position) (bool, error) {
		if p.Equal(Position{1, 0}) {
			return false, boom
		}
		return true, nil
	})

	for i := 0; i < 2; i++ {
		_, err := c.Advance()
		require.NoError(t, err)
	}
	assert.Equal(t, Position{0, 2}, c.Position())

	_, err := c.Advance()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Position{0, 2}, c.Position())
	assert.Equal(t, uint64(2), c.Step())
}

func TestSpec_BuildFilteredRequiresPredicate(t *testing.T) {
	_, err := Spec{Kind: KindFiltered}.Build(nil)
	assert.True(t, IsInvalidConfiguration(err))

	_, err = Spec{Kind: "annealing"}.Build(nil)
	assert.True(t, IsInvalidConfiguration(err))

	s, err := Spec{}.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, KindCartesian, s.Spec().Kind)
}

func TestParseKindAndOrder(t *testing.T) {
	k, err := ParseKind("random")
	require.NoError(t, err)
	assert.Equal(t, KindRandom, k)

	_, err = ParseKind("exhaustive")
	assert.True(t, IsInvalidConfiguration(err))

	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, LastFastest, o)

	o, err = ParseOrder("first_fastest")
	require.NoError(t, err)
	assert.Equal(t, FirstFastest, o)
	assert.Equal(t, "first_fastest", o.String())

	_, err = ParseOrder("middle_out")
	assert.True(t, IsInvalidConfiguration(err))
}

func TestCursor_BindPredicate(t *testing.T) {
	c := newFilteredCursor(t, Sizes{2, 2}, evenSum)
	clone := c.Clone()

	all := func(Position) (bool, error) { return true, nil }
	require.True(t, clone.BindPredicate(all))
	assert.Len(t, drain(t, clone), 4, "rebound clone walks every position")
	assert.Len(t, drain(t, c), 2, "original keeps its predicate")

	assert.False(t, newTestCursor(t, Sizes{2}).BindPredicate(all))
}
