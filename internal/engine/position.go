package engine

import (
	"fmt"
	"math/bits"
	"strings"
)

// Position holds one candidate index per role: Position[r] < Sizes[r].
type Position []int

// Clone returns an independent copy.
func (p Position) Clone() Position {
	if p == nil {
		return nil
	}
	out := make(Position, len(p))
	copy(out, p)
	return out
}

// Equal reports whether both positions select the same indices.
func (p Position) Equal(o Position) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the position as "[i j k]".
func (p Position) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Sizes is the pool-size vector a strategy walks: one size per role.
type Sizes []int

// Clone returns an independent copy.
func (s Sizes) Clone() Sizes {
	out := make(Sizes, len(s))
	copy(out, s)
	return out
}

// Equal reports whether both vectors are identical.
func (s Sizes) Equal(o Sizes) bool {
	return Position(s).Equal(Position(o))
}

// Validate checks that there is at least one role and no empty pool.
func (s Sizes) Validate() error {
	if len(s) == 0 {
		return NewInvalidConfiguration("sizes", "at least one role is required")
	}
	for r, n := range s {
		if n <= 0 {
			return NewInvalidConfiguration("sizes", "pool for role %d is empty", r)
		}
	}
	return nil
}

// Total returns the product of all sizes. Overflow of uint64 is an
// InvalidConfiguration error, never a silent wrap.
func (s Sizes) Total() (uint64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	total := uint64(1)
	for _, n := range s {
		hi, lo := bits.Mul64(total, uint64(n))
		if hi != 0 {
			return 0, NewInvalidConfiguration("total", "permutation count of %v overflows uint64", []int(s))
		}
		total = lo
	}
	return total, nil
}

// Contains reports whether p is a valid position for these sizes.
func (s Sizes) Contains(p Position) bool {
	if len(p) != len(s) {
		return false
	}
	for r, v := range p {
		if v < 0 || v >= s[r] {
			return false
		}
	}
	return true
}

func (s Sizes) checkPosition(op string, p Position) error {
	if !s.Contains(p) {
		return &Error{
			Code:    CodeOutOfRange,
			Op:      op,
			Message: fmt.Sprintf("position %v outside sizes %v", p, []int(s)),
		}
	}
	return nil
}
