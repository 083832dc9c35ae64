// Package testutil provides candidate fixtures and a fake template for
// tests that need a library without compiling CEL expressions.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/library"
	"github.com/roach88/rxnenum/internal/pool"
)

// Candidates returns n candidates with IDs prefix0..prefix(n-1) and
// structures PREFIX0..PREFIX(n-1).
func Candidates(prefix string, n int) []ir.Candidate {
	out := make([]ir.Candidate, n)
	for i := range out {
		out[i] = ir.Candidate{
			ID:        fmt.Sprintf("%s%d", prefix, i),
			Structure: strings.ToUpper(prefix) + fmt.Sprint(i),
		}
	}
	return out
}

// Pools builds one unfiltered pool per size. Role r draws its candidates
// with prefix 'a'+r, so role 0 holds a0, a1, ... and role 1 holds b0, ...
func Pools(sizes ...int) []*pool.Pool {
	pools := make([]*pool.Pool, len(sizes))
	for r, n := range sizes {
		pools[r] = pool.FromCandidates(r, Candidates(string(rune('a'+r)), n), 0)
	}
	return pools
}

// NewLibrary builds a library over Pools(sizes...) with a JoinTemplate of
// matching arity. It fails the test on error.
func NewLibrary(t *testing.T, spec engine.Spec, sizes ...int) *library.Library {
	t.Helper()
	return NewLibraryWith(t, NewJoinTemplate(len(sizes)), spec, sizes...)
}

// NewLibraryWith is NewLibrary with a caller-provided template.
func NewLibraryWith(t *testing.T, tmpl library.Template, spec engine.Spec, sizes ...int) *library.Library {
	t.Helper()
	lib, err := library.New(tmpl, Pools(sizes...), library.Params{}, spec)
	require.NoError(t, err)
	return lib
}
