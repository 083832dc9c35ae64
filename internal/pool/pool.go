// Package pool holds the reagent pools an enumeration draws from.
//
// A Pool is built once per reactant role from the loader's raw candidate
// list. Construction runs the template's per-role match predicate over every
// candidate, drops the ones that cannot react, and compacts the survivors so
// indices run 0..Size()-1 in their original order. After construction a Pool
// is immutable and safe to share between library clones and goroutines.
package pool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
)

// Matcher decides whether a candidate can fill a reactant role.
// Implementations must be pure: the same role and candidate always give the
// same answer.
type Matcher interface {
	Matches(ctx context.Context, role int, c ir.Candidate) (bool, error)
}

// MatchFunc adapts a function to the Matcher interface.
type MatchFunc func(ctx context.Context, role int, c ir.Candidate) (bool, error)

// Matches implements Matcher.
func (f MatchFunc) Matches(ctx context.Context, role int, c ir.Candidate) (bool, error) {
	return f(ctx, role, c)
}

// Pool is the ordered, filtered candidate list for one role.
type Pool struct {
	role       int
	candidates []ir.Candidate
	rejected   int
}

// New filters raw through m and returns the compacted pool. A nil Matcher
// keeps every candidate. Rejections are logged as a warning and reported by
// Rejected; they are never an error. A matcher error aborts construction.
//
// The pool may be empty; the library rejects empty pools when it is built.
func New(ctx context.Context, role int, raw []ir.Candidate, m Matcher) (*Pool, error) {
	kept := make([]ir.Candidate, 0, len(raw))
	for i, c := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m != nil {
			ok, err := m.Matches(ctx, role, c)
			if err != nil {
				return nil, fmt.Errorf("role %d candidate %d (%s): %w", role, i, c.ID, err)
			}
			if !ok {
				continue
			}
		}
		kept = append(kept, c)
	}

	p := &Pool{role: role, candidates: kept, rejected: len(raw) - len(kept)}
	if p.rejected > 0 {
		slog.Warn("candidates rejected by template",
			"role", role,
			"rejected", p.rejected,
			"kept", len(kept),
		)
	}
	return p, nil
}

// FromCandidates builds a pool without filtering. Used when restoring a
// library, whose pools were filtered before they were frozen; rejected
// carries the original rejection count.
func FromCandidates(role int, candidates []ir.Candidate, rejected int) *Pool {
	out := make([]ir.Candidate, len(candidates))
	copy(out, candidates)
	return &Pool{role: role, candidates: out, rejected: rejected}
}

// Role returns the reactant role the pool fills.
func (p *Pool) Role() int { return p.role }

// Size returns the number of candidates after filtering.
func (p *Pool) Size() int { return len(p.candidates) }

// Rejected returns how many raw candidates the matcher discarded.
func (p *Pool) Rejected() int { return p.rejected }

// Get returns candidate i. Fails with IndexOutOfRange outside [0, Size()).
func (p *Pool) Get(i int) (ir.Candidate, error) {
	if i < 0 || i >= len(p.candidates) {
		return ir.Candidate{}, engine.NewIndexOutOfRange("get", i, len(p.candidates))
	}
	return p.candidates[i], nil
}

// Candidates returns a copy of the filtered candidate list.
func (p *Pool) Candidates() []ir.Candidate {
	out := make([]ir.Candidate, len(p.candidates))
	copy(out, p.candidates)
	return out
}

// Digest identifies the filtered contents of the pool.
func (p *Pool) Digest() (string, error) {
	return ir.PoolDigest(p.candidates)
}

// Sizes returns the size vector of pools, in role order.
func Sizes(pools []*Pool) engine.Sizes {
	sizes := make(engine.Sizes, len(pools))
	for i, p := range pools {
		sizes[i] = p.Size()
	}
	return sizes
}
