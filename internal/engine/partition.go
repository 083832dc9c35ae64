package engine

import "fmt"

// Range is a half-open span [Start, End) of walk offsets.
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of offsets in the range.
func (r Range) Len() uint64 {
	return r.End - r.Start
}

// String renders the range as "[start, end)".
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Partition splits [0, total) into n contiguous, disjoint ranges that cover
// it exactly. Sizes differ by at most one; the first total%n ranges carry the
// extra element. When n > total the trailing ranges are empty.
func Partition(total uint64, n int) ([]Range, error) {
	if n < 1 {
		return nil, NewInvalidConfiguration("partition", "partition count must be positive, got %d", n)
	}
	parts := uint64(n)
	base := total / parts
	extra := total % parts

	out := make([]Range, n)
	var start uint64
	for i := range out {
		size := base
		if uint64(i) < extra {
			size++
		}
		out[i] = Range{Start: start, End: start + size}
		start += size
	}
	return out, nil
}

// PartitionCursor splits a ranked cursor's walk into n ranges and returns one
// clone per range, each positioned at its range start. Unranked strategies
// return Unsupported.
func PartitionCursor(c *Cursor, n int) ([]*Cursor, []Range, error) {
	total, err := c.Total()
	if err != nil {
		return nil, nil, err
	}
	ranges, err := Partition(total, n)
	if err != nil {
		return nil, nil, err
	}
	cursors := make([]*Cursor, len(ranges))
	for i, r := range ranges {
		cur := c.Clone()
		if err := cur.Seek(r.Start); err != nil {
			return nil, nil, fmt.Errorf("partition %d: %w", i, err)
		}
		cursors[i] = cur
	}
	return cursors, ranges, nil
}
