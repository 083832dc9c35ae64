package engine

import (
	"errors"
	"fmt"
)

// Filtered walks its Base cartesian order and yields only positions that
// Accept keeps.
//
// The walk is finite but its length is unknown until it has been walked,
// so Filtered supports neither PositionAt nor OffsetOf: Skip steps through
// the predicate, and Successor scans over rejected runs.
//
// Accept is not part of the serialized state. Whoever restores a Filtered
// cursor must rebuild the same predicate.
type Filtered struct {
	Base   CartesianProduct
	Accept PositionPredicate
}

var _ Strategy = Filtered{}

// Spec implements Strategy.
func (f Filtered) Spec() Spec {
	return Spec{Kind: KindFiltered, Order: f.Base.Order}
}

// Initial returns the first accepted position.
func (f Filtered) Initial(sizes Sizes) (Position, error) {
	pos, err := f.Base.Initial(sizes)
	if err != nil {
		return nil, err
	}
	return f.scan(sizes, pos)
}

// Successor returns the next accepted position after pos.
func (f Filtered) Successor(sizes Sizes, _ uint64, pos Position) (Position, error) {
	next, err := f.Base.Successor(sizes, 0, pos)
	if err != nil {
		return nil, err
	}
	return f.scan(sizes, next)
}

// scan returns the first accepted position at or after pos.
func (f Filtered) scan(sizes Sizes, pos Position) (Position, error) {
	for {
		ok, err := f.Accept(pos)
		if err != nil {
			return nil, fmt.Errorf("filter %v: %w", pos, err)
		}
		if ok {
			return pos, nil
		}
		pos, err = f.Base.Successor(sizes, 0, pos)
		if errors.Is(err, ErrExhausted) {
			return nil, ErrExhausted
		}
		if err != nil {
			return nil, err
		}
	}
}
