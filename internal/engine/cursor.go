package engine

import (
	"errors"
	"math"
)

// Cursor is the mutable progress marker of a walk.
//
// A Cursor is owned by one goroutine. Concurrent readers each take a Clone;
// clones share the immutable strategy and nothing else.
//
// INVARIANTS:
//   - pos is always within sizes
//   - step is the index of pos in the strategy's walk
//   - once exhausted, pos is the last position of the walk and step is the
//     number of positions walked, saturating at math.MaxUint64 for a
//     random walk
type Cursor struct {
	strategy  Strategy
	sizes     Sizes
	pos       Position
	step      uint64
	exhausted bool
}

// NewCursor creates a cursor at the strategy's initial position.
// Fails with InvalidConfiguration if any pool is empty or the permutation
// count overflows.
func NewCursor(strategy Strategy, sizes Sizes) (*Cursor, error) {
	if strategy == nil {
		return nil, NewInvalidConfiguration("cursor", "strategy is required")
	}
	if _, err := sizes.Total(); err != nil {
		return nil, err
	}
	c := &Cursor{strategy: strategy, sizes: sizes.Clone()}
	if err := c.Reset(); err != nil {
		return nil, err
	}
	return c, nil
}

// Advance returns the current position and then moves to its successor.
// The first call after construction or Reset returns the initial position.
// Returns ErrExhausted once every position has been returned.
//
// If the strategy fails (a Filtered predicate error), the cursor is left
// unchanged.
func (c *Cursor) Advance() (Position, error) {
	if c.exhausted {
		return nil, ErrExhausted
	}
	cur := c.pos.Clone()
	next, err := c.strategy.Successor(c.sizes, c.step, c.pos)
	switch {
	case errors.Is(err, ErrExhausted):
		c.exhausted = true
	case err != nil:
		return nil, err
	default:
		c.pos = next
	}
	if c.step < math.MaxUint64 {
		c.step++
	}
	return cur, nil
}

// Skip moves k positions forward without producing them. It is equivalent
// to k calls to Advance.
//
// Ranker strategies jump directly through OffsetOf and PositionAt, Seeker
// strategies through PositionAt; others step. Landing exactly on the end of
// the walk exhausts the cursor and succeeds. Overshooting returns OutOfRange
// and leaves the cursor unchanged.
func (c *Cursor) Skip(k uint64) error {
	if k == 0 {
		return nil
	}
	if c.exhausted {
		return NewOutOfRange("skip", saturatingAdd(c.step, k), c.step)
	}

	switch s := c.strategy.(type) {
	case Ranker:
		total, err := s.Total(c.sizes)
		if err != nil {
			return err
		}
		off, err := s.OffsetOf(c.sizes, c.pos)
		if err != nil {
			return err
		}
		remaining := total - off
		if k > remaining {
			return NewOutOfRange("skip", saturatingAdd(off, k), total)
		}
		return c.jump(s, off+k, total)

	case Seeker:
		if k > math.MaxUint64-c.step {
			return NewOutOfRange("skip", math.MaxUint64, math.MaxUint64)
		}
		pos, err := s.PositionAt(c.sizes, c.step+k)
		if err != nil {
			return err
		}
		c.pos = pos
		c.step += k
		return nil

	default:
		return c.walk("skip", k)
	}
}

// Seek positions the cursor at step n of the walk, clearing exhaustion.
// Seeking to exactly the end of a finite walk exhausts the cursor.
func (c *Cursor) Seek(n uint64) error {
	switch s := c.strategy.(type) {
	case Ranker:
		total, err := s.Total(c.sizes)
		if err != nil {
			return err
		}
		if n > total {
			return NewOutOfRange("seek", n, total)
		}
		return c.jump(s, n, total)

	case Seeker:
		pos, err := s.PositionAt(c.sizes, n)
		if err != nil {
			return err
		}
		c.pos = pos
		c.step = n
		c.exhausted = false
		return nil

	default:
		scratch := c.Clone()
		if err := scratch.Reset(); err != nil {
			return err
		}
		if err := scratch.walk("seek", n); err != nil {
			return err
		}
		*c = *scratch
		return nil
	}
}

// jump moves a ranked cursor to offset target <= total.
func (c *Cursor) jump(s Ranker, target, total uint64) error {
	if target == total {
		last, err := s.PositionAt(c.sizes, total-1)
		if err != nil {
			return err
		}
		c.pos = last
		c.step = total
		c.exhausted = true
		return nil
	}
	pos, err := s.PositionAt(c.sizes, target)
	if err != nil {
		return err
	}
	c.pos = pos
	c.step = target
	c.exhausted = false
	return nil
}

// walk advances k steps on a scratch copy and commits only on success.
func (c *Cursor) walk(op string, k uint64) error {
	if k == 0 {
		return nil
	}
	if c.exhausted {
		return NewOutOfRange(op, saturatingAdd(c.step, k), c.step)
	}
	scratch := c.Clone()
	for i := uint64(0); i < k; i++ {
		if scratch.exhausted {
			return NewOutOfRange(op, saturatingAdd(c.step, k), scratch.step)
		}
		if _, err := scratch.Advance(); err != nil {
			return err
		}
	}
	*c = *scratch
	return nil
}

// Reset returns the cursor to the strategy's initial position and clears
// the exhaustion flag. A strategy whose walk is empty (a Filtered predicate
// that rejects everything) leaves the cursor exhausted at step 0.
func (c *Cursor) Reset() error {
	pos, err := c.strategy.Initial(c.sizes)
	switch {
	case errors.Is(err, ErrExhausted):
		c.pos = make(Position, len(c.sizes))
		c.step = 0
		c.exhausted = true
		return nil
	case err != nil:
		return err
	}
	c.pos = pos
	c.step = 0
	c.exhausted = false
	return nil
}

// Position returns a snapshot of the position the next Advance will return.
func (c *Cursor) Position() Position {
	return c.pos.Clone()
}

// Step returns the index of the current position in the walk.
func (c *Cursor) Step() uint64 {
	return c.step
}

// Exhausted reports whether every position has been returned.
func (c *Cursor) Exhausted() bool {
	return c.exhausted
}

// Sizes returns a copy of the pool sizes the cursor walks.
func (c *Cursor) Sizes() Sizes {
	return c.sizes.Clone()
}

// Spec returns the strategy configuration.
func (c *Cursor) Spec() Spec {
	return c.strategy.Spec()
}

// Strategy returns the strategy the cursor walks.
func (c *Cursor) Strategy() Strategy {
	return c.strategy
}

// Total returns the number of positions of a ranked walk. Unbounded and
// filtered walks return an Unsupported error.
func (c *Cursor) Total() (uint64, error) {
	r, ok := c.strategy.(Ranker)
	if !ok {
		return 0, newUnsupported("total", c.strategy.Spec().Kind)
	}
	return r.Total(c.sizes)
}

// Remaining returns how many positions Advance will still return.
func (c *Cursor) Remaining() (uint64, error) {
	total, err := c.Total()
	if err != nil {
		return 0, err
	}
	if c.exhausted {
		return 0, nil
	}
	return total - c.step, nil
}

// Clone returns an independent copy. Advancing the copy never affects c.
func (c *Cursor) Clone() *Cursor {
	return &Cursor{
		strategy:  c.strategy,
		sizes:     c.sizes.Clone(),
		pos:       c.pos.Clone(),
		step:      c.step,
		exhausted: c.exhausted,
	}
}

// BindPredicate replaces the predicate of a filtered walk on this cursor
// only; clones made earlier keep theirs. Reports false, leaving the cursor
// unchanged, when the strategy is not Filtered.
func (c *Cursor) BindPredicate(accept PositionPredicate) bool {
	f, ok := c.strategy.(Filtered)
	if !ok {
		return false
	}
	f.Accept = accept
	c.strategy = f
	return true
}

func saturatingAdd(a, b uint64) uint64 {
	if b > math.MaxUint64-a {
		return math.MaxUint64
	}
	return a + b
}
