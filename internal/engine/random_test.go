package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSample_Deterministic(t *testing.T) {
	sizes := Sizes{17, 5, 300}

	a, err := NewCursor(RandomSample{Seed: 42}, sizes)
	require.NoError(t, err)
	b, err := NewCursor(RandomSample{Seed: 42}, sizes)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		pa, err := a.Advance()
		require.NoError(t, err)
		pb, err := b.Advance()
		require.NoError(t, err)
		require.Equal(t, pa, pb, "draw %d", i)
		require.True(t, sizes.Contains(pa), "draw %d out of bounds: %v", i, pa)
	}
}

func TestRandomSample_SeedsDiffer(t *testing.T) {
	sizes := Sizes{1000, 1000}
	a := RandomSample{Seed: 1}
	b := RandomSample{Seed: 2}

	same := 0
	for n := uint64(0); n < 20; n++ {
		pa, err := a.PositionAt(sizes, n)
		require.NoError(t, err)
		pb, err := b.PositionAt(sizes, n)
		require.NoError(t, err)
		if pa.Equal(pb) {
			same++
		}
	}
	assert.Less(t, same, 20)
}

func TestRandomSample_SkipEquivalence(t *testing.T) {
	sizes := Sizes{9, 9, 9}

	for _, k := range []uint64{0, 1, 7, 64, 1000} {
		skipped, err := NewCursor(RandomSample{Seed: 7}, sizes)
		require.NoError(t, err)
		require.NoError(t, skipped.Skip(k))
		got, err := skipped.Advance()
		require.NoError(t, err)

		stepped, err := NewCursor(RandomSample{Seed: 7}, sizes)
		require.NoError(t, err)
		var want Position
		for i := uint64(0); i <= k; i++ {
			want, err = stepped.Advance()
			require.NoError(t, err)
		}

		assert.Equal(t, want, got, "k=%d", k)
	}
}

func TestRandomSample_PositionReflectsNextDraw(t *testing.T) {
	c, err := NewCursor(RandomSample{Seed: 99}, Sizes{4, 4})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		next := c.Position()
		got, err := c.Advance()
		require.NoError(t, err)
		assert.Equal(t, next, got)
	}
}

func TestRandomSample_Unbounded(t *testing.T) {
	c, err := NewCursor(RandomSample{Seed: 3}, Sizes{2})
	require.NoError(t, err)

	_, err = c.Total()
	assert.True(t, IsUnsupported(err))

	require.NoError(t, c.Skip(1<<40))
	_, err = c.Advance()
	assert.NoError(t, err, "a sampling walk never exhausts")
	assert.False(t, c.Exhausted())
}

func TestRandomSample_SingleCandidatePools(t *testing.T) {
	c, err := NewCursor(RandomSample{Seed: 5}, Sizes{1, 1, 1})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		pos, err := c.Advance()
		require.NoError(t, err)
		assert.Equal(t, Position{0, 0, 0}, pos)
	}
}
