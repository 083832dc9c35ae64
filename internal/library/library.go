// Package library couples a reaction template, one reagent pool per reactant
// role, enumeration parameters and a cursor into a restartable producer of
// enumeration results.
//
// A Library is single-goroutine. Concurrent consumers each take a Clone;
// clones share the immutable template and pools and own their cursor.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/rxnenum/internal/engine"
	"github.com/roach88/rxnenum/internal/ir"
	"github.com/roach88/rxnenum/internal/pool"
)

// ErrNoMatch is returned by Template.Apply when the template does not apply
// to a tuple. Next turns it into an unmatched Result; it is not a failure.
var ErrNoMatch = errors.New("template does not apply")

// Template turns a candidate tuple into product groups.
//
// Apply must be a pure function of its tuple and params: skip and resume
// rely on replaying a position giving the same products. It returns one
// group per product role, or ErrNoMatch.
type Template interface {
	Name() string
	ReactantCount() int
	ProductCount() int
	Apply(ctx context.Context, tuple []ir.Candidate, params Params) ([][]ir.Product, error)
}

// PositionFilter is implemented by templates that can restrict the walk to
// tuples worth applying. It backs the filtered strategy.
//
// ctx is the context of the Next call that moves the cursor, or
// context.Background for Skip, Seek and Reset.
type PositionFilter interface {
	Accept(ctx context.Context, tuple []ir.Candidate) (bool, error)
}

// Definer is implemented by templates that can describe themselves for a
// self-contained library blob.
type Definer interface {
	Definition() (ir.IRObject, error)
}

// TemplateDecoder rebuilds a template from its Definition.
type TemplateDecoder func(def ir.IRObject) (Template, error)

// Library walks the product space of a template over its pools.
type Library struct {
	tmpl   Template
	pools  []*pool.Pool
	params Params
	cursor *engine.Cursor
	filter *filterScope // nil unless the strategy is filtered
}

// New builds a library positioned at the strategy's initial position.
//
// Fails with InvalidConfiguration when the pool count differs from the
// template's reactant count, a pool is empty, the permutation count
// overflows, or the strategy is filtered and the template has no
// PositionFilter.
func New(tmpl Template, pools []*pool.Pool, params Params, spec engine.Spec) (*Library, error) {
	if tmpl == nil {
		return nil, engine.NewInvalidConfiguration("library", "template is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if n := tmpl.ReactantCount(); n < 1 || len(pools) != n {
		return nil, engine.NewInvalidConfiguration("library",
			"template %s declares %d reactant roles, got %d pools", tmpl.Name(), n, len(pools))
	}
	for r, p := range pools {
		if p == nil || p.Size() == 0 {
			return nil, engine.NewInvalidConfiguration("library", "pool for role %d is empty", r)
		}
	}

	var (
		scope  *filterScope
		accept engine.PositionPredicate
	)
	if spec.Kind == engine.KindFiltered {
		f, ok := tmpl.(PositionFilter)
		if !ok {
			return nil, engine.NewInvalidConfiguration("library",
				"template %s cannot filter positions", tmpl.Name())
		}
		scope = newFilterScope(f, pools)
		accept = scope.accept
	}
	strategy, err := spec.Build(accept)
	if err != nil {
		return nil, err
	}

	sizes := pool.Sizes(pools)
	cursor, err := engine.NewCursor(strategy, sizes)
	if err != nil {
		return nil, err
	}

	slog.Debug("library constructed",
		"template", tmpl.Name(),
		"sizes", []int(sizes),
		"strategy", spec.String(),
	)
	return &Library{tmpl: tmpl, pools: pools, params: params, cursor: cursor, filter: scope}, nil
}

// filterScope adapts a tuple filter to the engine predicate and carries the
// context of the walk in progress. Each library owns its scope, so clones
// walking on other goroutines never share one.
type filterScope struct {
	f     PositionFilter
	pools []*pool.Pool
	ctx   context.Context
}

func newFilterScope(f PositionFilter, pools []*pool.Pool) *filterScope {
	return &filterScope{f: f, pools: pools, ctx: context.Background()}
}

// accept rejects a position whose filter fails to evaluate: a deterministic
// failure would otherwise stall the walk at the same successor forever.
// Cancellation is returned instead, leaving the cursor where it was.
func (s *filterScope) accept(pos engine.Position) (bool, error) {
	tuple, err := resolve(s.pools, pos)
	if err != nil {
		return false, err
	}
	ok, err := s.f.Accept(s.ctx, tuple)
	if err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		slog.Debug("position filter failed, rejecting", "position", pos.String(), "error", err)
		return false, nil
	}
	return ok, nil
}

// derive wraps c in a library sharing l's template, pools and params. A
// filtered cursor is rebound to a fresh scope.
func (l *Library) derive(c *engine.Cursor) *Library {
	out := &Library{tmpl: l.tmpl, pools: l.pools, params: l.params, cursor: c}
	if l.filter != nil {
		out.filter = newFilterScope(l.filter.f, l.pools)
		c.BindPredicate(out.filter.accept)
	}
	return out
}

func resolve(pools []*pool.Pool, pos engine.Position) ([]ir.Candidate, error) {
	tuple := make([]ir.Candidate, len(pools))
	for r, p := range pools {
		c, err := p.Get(pos[r])
		if err != nil {
			return nil, fmt.Errorf("role %d: %w", r, err)
		}
		tuple[r] = c
	}
	return tuple, nil
}

// Next produces the result for the current position and advances.
//
// Returns engine.ErrExhausted once the walk is complete; the library stays
// exhausted until Reset. A template that does not apply yields a Result with
// Matched false. A template failure is returned as a *TemplateError after the
// cursor has moved past the failing tuple, so the following Next resumes
// with the next combination.
//
// If ctx is already done, Next returns its error without consuming a step.
// The same holds when ctx ends while a filtered walk scans for the next
// accepted position.
func (l *Library) Next(ctx context.Context) (*ir.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.filter != nil {
		l.filter.ctx = ctx
		defer func() { l.filter.ctx = context.Background() }()
	}

	pos, err := l.cursor.Advance()
	if err != nil {
		return nil, err
	}
	step := l.cursor.Step() - 1

	tuple, err := resolve(l.pools, pos)
	if err != nil {
		return nil, err
	}

	res := &ir.Result{
		Step:     step,
		Position: pos,
		Groups:   make([][]ir.Product, l.tmpl.ProductCount()),
	}
	groups, err := l.tmpl.Apply(ctx, tuple, l.params)
	switch {
	case errors.Is(err, ErrNoMatch):
		return res, nil
	case err != nil:
		return nil, &TemplateError{Step: step, Position: pos, Template: l.tmpl.Name(), Err: err}
	}
	if len(groups) != len(res.Groups) {
		return nil, &TemplateError{
			Step:     step,
			Position: pos,
			Template: l.tmpl.Name(),
			Err:      fmt.Errorf("returned %d product groups, want %d", len(groups), len(res.Groups)),
		}
	}
	copy(res.Groups, groups)
	res.Matched = true
	return res, nil
}

// Skip moves k positions forward without applying the template.
func (l *Library) Skip(k uint64) error {
	return l.cursor.Skip(k)
}

// Seek positions the library at step n of its walk.
func (l *Library) Seek(n uint64) error {
	return l.cursor.Seek(n)
}

// Reset returns to the initial position and clears exhaustion.
func (l *Library) Reset() error {
	return l.cursor.Reset()
}

// Position returns the position the next call to Next will use.
func (l *Library) Position() engine.Position {
	return l.cursor.Position()
}

// Step returns the index of the current position in the walk.
func (l *Library) Step() uint64 {
	return l.cursor.Step()
}

// Exhausted reports whether the walk is complete.
func (l *Library) Exhausted() bool {
	return l.cursor.Exhausted()
}

// Total returns the number of positions of a ranked walk.
func (l *Library) Total() (uint64, error) {
	return l.cursor.Total()
}

// Sizes returns the filtered pool sizes.
func (l *Library) Sizes() engine.Sizes {
	return l.cursor.Sizes()
}

// Spec returns the strategy configuration.
func (l *Library) Spec() engine.Spec {
	return l.cursor.Spec()
}

// Params returns the enumeration parameters.
func (l *Library) Params() Params {
	return l.params
}

// Template returns the template the library applies.
func (l *Library) Template() Template {
	return l.tmpl
}

// Pool returns the pool for role r.
func (l *Library) Pool(r int) (*pool.Pool, error) {
	if r < 0 || r >= len(l.pools) {
		return nil, engine.NewIndexOutOfRange("pool", r, len(l.pools))
	}
	return l.pools[r], nil
}

// Rejected returns, per role, how many raw candidates the template rejected
// when the pools were built.
func (l *Library) Rejected() []int {
	out := make([]int, len(l.pools))
	for r, p := range l.pools {
		out[r] = p.Rejected()
	}
	return out
}

// Clone returns a library with an independent cursor. Pools and template are
// shared.
func (l *Library) Clone() *Library {
	return l.derive(l.cursor.Clone())
}

// Partition splits a ranked walk into n contiguous ranges and returns one
// clone per range, positioned at its start. Worker i must stop after
// ranges[i].Len() results.
func (l *Library) Partition(n int) ([]*Library, []engine.Range, error) {
	cursors, ranges, err := engine.PartitionCursor(l.cursor, n)
	if err != nil {
		return nil, nil, err
	}
	out := make([]*Library, len(cursors))
	for i, c := range cursors {
		out[i] = l.derive(c)
	}
	return out, ranges, nil
}
