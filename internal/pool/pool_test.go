package pool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
)

func rawCandidates(n int) []ir.Candidate {
	out := make([]ir.Candidate, n)
	for i := range out {
		out[i] = ir.Candidate{ID: fmt.Sprintf("c%d", i), Structure: fmt.Sprintf("C%d", i)}
	}
	return out
}

func rejectIDs(ids ...string) Matcher {
	return MatchFunc(func(_ context.Context, _ int, c ir.Candidate) (bool, error) {
		for _, id := range ids {
			if c.ID == id {
				return false, nil
			}
		}
		return true, nil
	})
}

func TestNew_FilterCompaction(t *testing.T) {
	p, err := New(context.Background(), 0, rawCandidates(5), rejectIDs("c1", "c3"))
	require.NoError(t, err)

	assert.Equal(t, 3, p.Size())
	assert.Equal(t, 2, p.Rejected())

	var ids []string
	for i := 0; i < p.Size(); i++ {
		c, err := p.Get(i)
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c0", "c2", "c4"}, ids, "survivors keep their original order")
}

func TestNew_NilMatcherKeepsAll(t *testing.T) {
	p, err := New(context.Background(), 1, rawCandidates(4), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, p.Size())
	assert.Zero(t, p.Rejected())
	assert.Equal(t, 1, p.Role())
}

func TestNew_MatcherSeesRole(t *testing.T) {
	var roles []int
	m := MatchFunc(func(_ context.Context, role int, _ ir.Candidate) (bool, error) {
		roles = append(roles, role)
		return true, nil
	})

	_, err := New(context.Background(), 2, rawCandidates(2), m)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, roles)
}

func TestNew_MatcherErrorAborts(t *testing.T) {
	boom := errors.New("bad smiles")
	m := MatchFunc(func(_ context.Context, _ int, c ir.Candidate) (bool, error) {
		if c.ID == "c2" {
			return false, boom
		}
		return true, nil
	})

	_, err := New(context.Background(), 0, rawCandidates(4), m)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "candidate 2 (c2)")
}

func TestNew_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, 0, rawCandidates(3), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGet_IndexOutOfRange(t *testing.T) {
	p := FromCandidates(0, rawCandidates(2), 0)

	_, err := p.Get(2)
	assert.True(t, engine.IsIndexOutOfRange(err))
	_, err = p.Get(-1)
	assert.True(t, engine.IsIndexOutOfRange(err))
}

func TestCandidates_ReturnsCopy(t *testing.T) {
	p := FromCandidates(0, rawCandidates(2), 0)
	cs := p.Candidates()
	cs[0].ID = "mutated"

	c, err := p.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "c0", c.ID)
}

func TestDigest_DependsOnFilteredContents(t *testing.T) {
	all, err := New(context.Background(), 0, rawCandidates(3), nil)
	require.NoError(t, err)
	filtered, err := New(context.Background(), 0, rawCandidates(3), rejectIDs("c1"))
	require.NoError(t, err)
	same := FromCandidates(0, rawCandidates(3), 0)

	d1, err := all.Digest()
	require.NoError(t, err)
	d2, err := filtered.Digest()
	require.NoError(t, err)
	d3, err := same.Digest()
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
	assert.Equal(t, d1, d3)
}

func TestSizes(t *testing.T) {
	pools := []*Pool{FromCandidates(0, rawCandidates(2), 0), FromCandidates(1, rawCandidates(5), 0)}
	assert.Equal(t, engine.Sizes{2, 5}, Sizes(pools))
}
